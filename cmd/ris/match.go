package main

import (
	"fmt"
	"io"

	"github.com/OFFIS-RIT/ris/internal/backend"
	"github.com/OFFIS-RIT/ris/pkg/scoring"

	"github.com/spf13/cobra"
)

func newMatchCmd(c *cli) *cobra.Command {
	var (
		flags     runFlags
		rulesPath string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "List candidate pairs realized by the top rules",
		Long: `Match keeps the rules whose confidence reaches that of the k-th best rule
and writes every (head, tail) pair connected by at least one of their
chains, sorted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			flags.apply(cmd, &cfg.Run)
			if rulesPath != "" {
				cfg.RulesFile = rulesPath
			}
			if cfg.RulesFile == "" {
				return fmt.Errorf("--rules is required")
			}
			if err := cfg.Run.Validate(); err != nil {
				return err
			}

			resolver := c.resolver()
			backends, err := backend.OpenGraph(ctx, cfg, resolver)
			if err != nil {
				return err
			}
			defer backends.Close(ctx)

			repo, err := backend.LoadRules(ctx, resolver, cfg.RulesFile)
			if err != nil {
				return err
			}
			engine := scoring.NewEngine(backends.Oracle, backends.Embeddings, repo, cfg.Run.Options())
			pairs, err := engine.Match(ctx, cfg.Run.TopK)
			if err != nil {
				return err
			}
			return c.write(ctx, out, func(w io.Writer) error {
				return scoring.WritePairs(w, pairs)
			})
		},
	}

	flags.register(cmd.Flags(), false)
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule file (chain<TAB>frequency per line)")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}
