package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/crewscore/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var cfg seed.Config

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic cohort",
		Long:  "Generate a group with synthetic members and activity counters. The same --seed always produces the same cohort.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cohort, err := seed.Generate(cfg)
			if err != nil {
				return err
			}
			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			rows, err := seed.Write(ctx, e.store, cohort)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded group %s: %d members (%d approved), %d rows\n",
				cohort.Group.ID, len(cohort.Memberships), cohort.Approved(), rows)
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.GroupID, "group", "", "Group id to create or overwrite")
	cmd.Flags().StringVar(&cfg.GroupName, "name", "", "Group display name (defaults to the id)")
	cmd.Flags().StringVar(&cfg.Theme, "theme", "classic", "Tier theme of the group")
	cmd.Flags().IntVar(&cfg.Members, "members", 50, "Number of members to generate")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 1, "Generator seed")
	cmd.Flags().BoolVar(&cfg.Announce, "announce", false, "Announce promotions in the group channel")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}
