package main

import (
	"fmt"

	"github.com/OFFIS-RIT/ris/internal/backend"

	"github.com/spf13/cobra"
)

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the graph normalizers I_MAX and R",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backends, err := backend.OpenGraph(ctx, c.cfg, c.resolver())
			if err != nil {
				return err
			}
			defer backends.Close(ctx)

			stats, err := backends.Oracle.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "I_MAX\t%d\nR\t%d\n", stats.MaxDegree, stats.RelationTypes)
			return nil
		},
	}
}
