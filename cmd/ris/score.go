package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/OFFIS-RIT/ris/internal/backend"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/scoring"

	"github.com/spf13/cobra"
)

func newScoreCmd(c *cli) *cobra.Command {
	var (
		flags     runFlags
		rulesPath string
		relation  string
		pairsPath string
		out       string
		tuned     bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score predicted pairs of a relation",
		Long: `Score reads predicted pairs (head<TAB>tail<TAB>fp per line), selects the
top cases of the relation through the rule set and writes one line per pair:

  head<TAB>tail<TAB>CSSM<TAB>FSCM<TAB>RIS<TAB>fp

sorted by RIS descending.

Examples:
  ris score --rules rules.tsv --relation worksfor --pairs pairs.tsv
  ris score --rules s3://runs/rules.tsv --relation worksfor --pairs pairs.tsv --tuned --out s3://runs/scores.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			if tuned {
				p := scoring.TunedParams()
				cfg.Run.Sigma, cfg.Run.Mu, cfg.Run.Theta = p.Sigma, p.Mu, p.Theta
			}
			flags.apply(cmd, &cfg.Run)
			if rulesPath != "" {
				cfg.RulesFile = rulesPath
			}
			if cfg.RulesFile == "" {
				return fmt.Errorf("--rules is required")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			resolver := c.resolver()
			data, err := resolver.Read(ctx, pairsPath)
			if err != nil {
				return err
			}
			pairs, _, err := scoring.ParsePredictedPairs(bytes.NewReader(data))
			if err != nil {
				return err
			}

			backends, err := backend.Open(ctx, cfg, resolver)
			if err != nil {
				return err
			}
			defer backends.Close(ctx)

			repo, err := backend.LoadRules(ctx, resolver, cfg.RulesFile)
			if err != nil {
				return err
			}
			engine, err := backend.NewEngine(ctx, cfg.Run, backends, repo)
			if err != nil {
				return err
			}

			params := engine.Options().Params
			records, err := engine.Score(ctx, relation, pairs, params)
			if err != nil {
				return err
			}

			summary := scoring.Summarize(records, params)
			logger.Info("[CLI] Scored pairs",
				"relation", relation,
				"pairs", len(records),
				"flagged_suppressed", summary.FlaggedSuppressed,
				"unflagged_suppressed", summary.UnflaggedSuppressed,
			)
			return c.write(ctx, out, func(w io.Writer) error {
				return scoring.WriteRecords(w, records)
			})
		},
	}

	flags.register(cmd.Flags(), true)
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule file (chain<TAB>frequency per line)")
	cmd.Flags().StringVar(&relation, "relation", "", "relation the pairs were predicted for")
	cmd.Flags().StringVar(&pairsPath, "pairs", "", "predicted pairs file")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&tuned, "tuned", false, "use the tuned weights (sigma=1.8, mu=0.8)")
	cmd.MarkFlagRequired("relation")
	cmd.MarkFlagRequired("pairs")
	return cmd
}
