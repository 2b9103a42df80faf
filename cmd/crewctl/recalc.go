package main

import (
	"errors"

	"github.com/spf13/cobra"

	app "github.com/okian/crewscore/internal/app"
)

func newRecalcCmd() *cobra.Command {
	var (
		groupID string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate and persist crew scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if groupID == "" && !all {
				return errors.New("either --group or --all is required")
			}
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			return e.withService(ctx, func(svc *app.Service) error {
				var (
					out    any
					runErr error
				)
				if all {
					out, runErr = svc.RecalculateAll(ctx)
				} else {
					out, runErr = svc.Recalculate(ctx, groupID)
				}
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				return runErr
			})
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "Group id to recalculate")
	cmd.Flags().BoolVar(&all, "all", false, "Recalculate every group")
	return cmd
}
