package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/oracle"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// CaseSelector finds the reference pairs of a relation and ranks them by
// support degree.
type CaseSelector struct {
	oracle  oracle.GraphOracle
	q       querier
	workers int
}

func NewCaseSelector(o oracle.GraphOracle, opts Options) *CaseSelector {
	return &CaseSelector{
		oracle:  o,
		q:       opts.querier(),
		workers: opts.workers(),
	}
}

// FindCases returns every pair joined by a relation edge, sorted.
func (s *CaseSelector) FindCases(ctx context.Context, relation string) ([]common.Pair, error) {
	pairs, err := query(ctx, s.q, "same_relation_pairs", func(ctx context.Context) ([]common.Pair, error) {
		return s.oracle.SameRelationPairs(ctx, relation)
	})
	if err != nil {
		return nil, fmt.Errorf("find cases for %s: %w", relation, err)
	}
	return oracle.SortPairs(pairs), nil
}

// SupportDegree is the mean confidence of the rules whose chain is realized
// between the pair's endpoints, or 0 when none is. A failed existence check
// counts as not realized; only cancellation of ctx is returned as an error.
func (s *CaseSelector) SupportDegree(ctx context.Context, pair common.Pair, rules []common.Rule) (float64, error) {
	matched := make([]float64, 0, len(rules))
	for _, rule := range rules {
		ok, err := query(ctx, s.q, "chain_exists", func(ctx context.Context) (bool, error) {
			return s.oracle.ChainExists(ctx, rule.Relations, pair.Head, pair.Tail)
		})
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if err != nil {
			metrics.oracleFailures.WithLabelValues("chain_exists").Inc()
			logger.Warn("[Scoring] Rule check failed, treating as no match",
				"rule", rule.Relations.String(), "head", pair.Head, "tail", pair.Tail, "err", err)
			continue
		}
		if ok {
			matched = append(matched, rule.Conf)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}
	return stat.Mean(matched, nil), nil
}

// ScoreCases computes the support degree of every case in parallel. The
// result keeps the order of cases.
func (s *CaseSelector) ScoreCases(ctx context.Context, cases []common.Pair, rules []common.Rule) ([]common.CaseScore, error) {
	scores := make([]common.CaseScore, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sd, err := s.SupportDegree(gctx, c, rules)
			if err != nil {
				return err
			}
			scores[i] = common.CaseScore{Pair: c, SD: sd}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// checks interrupted by cancellation would read as unmatched rules
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// TopCases keeps the cases that fall into the k highest distinct SD values.
// Ranking is by distinct value, so a tie never splits a rank group. The
// result is ordered by SD descending, ties in input order.
func TopCases(scores []common.CaseScore, k int) []common.CaseScore {
	if len(scores) == 0 || k <= 0 {
		return []common.CaseScore{}
	}
	sorted := make([]common.CaseScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SD > sorted[j].SD
	})

	rank := 1
	out := make([]common.CaseScore, 0, len(sorted))
	for i, c := range sorted {
		if i > 0 && c.SD != sorted[i-1].SD {
			rank++
		}
		if rank > k {
			break
		}
		out = append(out, c)
	}
	return out
}

// Select runs the whole case pipeline for relation: find, score, rank.
func (s *CaseSelector) Select(ctx context.Context, relation string, rules []common.Rule, k int) ([]common.CaseScore, error) {
	cases, err := s.FindCases(ctx, relation)
	if err != nil {
		return nil, err
	}
	logger.Info("[Scoring] Found case pairs", "relation", relation, "cases", len(cases))

	scores, err := s.ScoreCases(ctx, cases, rules)
	if err != nil {
		return nil, err
	}
	top := TopCases(scores, k)
	metrics.casesSelected.Set(float64(len(top)))
	logger.Info("[Scoring] Selected top cases", "relation", relation, "top_k", k, "selected", len(top))
	return top, nil
}
