package main

import (
	"github.com/spf13/cobra"

	app "github.com/okian/crewscore/internal/app"
)

func newScoreCmd() *cobra.Command {
	var groupID, memberID string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute one member's score without persisting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			return e.withService(ctx, func(svc *app.Service) error {
				resp, err := svc.MemberScore(ctx, groupID, memberID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "Group id")
	cmd.Flags().StringVar(&memberID, "member", "", "Member id")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("member")
	return cmd
}
