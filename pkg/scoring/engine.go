package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/embedding"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/oracle"
	"github.com/OFFIS-RIT/ris/pkg/rules"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Engine scores predicted pairs against a loaded rule set. Top cases are
// computed once per relation and kept for the engine's lifetime; path and
// property caches live in a fresh Run per Score call.
type Engine struct {
	oracle     oracle.GraphOracle
	embeddings embedding.Store
	rules      *rules.Repository
	opts       Options
	selector   *CaseSelector

	casesMu sync.RWMutex
	cases   map[string][]common.CaseScore
	casesSF singleflight.Group
}

func NewEngine(o oracle.GraphOracle, store embedding.Store, repo *rules.Repository, opts Options) *Engine {
	if store == nil {
		store = embedding.None{}
	}
	return &Engine{
		oracle:     o,
		embeddings: store,
		rules:      repo,
		opts:       opts,
		selector:   NewCaseSelector(o, opts),
		cases:      make(map[string][]common.CaseScore),
	}
}

func (e *Engine) Options() Options { return e.opts }

// ResolveNormalizers fills I_MAX and R from the graph when they are not
// positive.
func ResolveNormalizers(ctx context.Context, o oracle.GraphOracle, opts Options) (Options, error) {
	if opts.IMax > 0 && opts.R > 0 {
		return opts, nil
	}
	stats, err := o.Stats(ctx)
	if err != nil {
		return opts, fmt.Errorf("graph stats: %w", err)
	}
	if opts.IMax <= 0 {
		opts.IMax = float64(stats.MaxDegree)
	}
	if opts.R <= 0 {
		opts.R = float64(stats.RelationTypes)
	}
	logger.Info("[Scoring] Derived normalizers from graph", "i_max", opts.IMax, "r", opts.R)
	return opts, nil
}

// Cases returns the top cases of relation, computing them on first use.
// The computation is shared by concurrent callers and is not bound to any
// single caller's cancellation; a caller whose ctx ends stops waiting while
// the selection finishes for the others. A failed computation is not
// remembered.
func (e *Engine) Cases(ctx context.Context, relation string) ([]common.CaseScore, error) {
	e.casesMu.RLock()
	if top, ok := e.cases[relation]; ok {
		e.casesMu.RUnlock()
		return top, nil
	}
	e.casesMu.RUnlock()

	selectCtx := context.WithoutCancel(ctx)
	ch := e.casesSF.DoChan(relation, func() (any, error) {
		e.casesMu.RLock()
		if top, ok := e.cases[relation]; ok {
			e.casesMu.RUnlock()
			return top, nil
		}
		e.casesMu.RUnlock()

		top, err := e.selector.Select(selectCtx, relation, e.rules.Rules(), e.opts.TopK)
		if err != nil {
			return nil, err
		}

		e.casesMu.Lock()
		e.cases[relation] = top
		e.casesMu.Unlock()
		return top, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]common.CaseScore), nil
	}
}

// Score evaluates every predicted pair for relation and returns the records
// sorted by RIS descending; pairs with equal RIS keep their input order.
func (e *Engine) Score(ctx context.Context, relation string, pairs []common.PredictedPair, params Params) ([]common.ScoreRecord, error) {
	runID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	log := logger.With("run", runID)
	start := time.Now()

	top, err := e.Cases(ctx, relation)
	if err != nil {
		return nil, err
	}

	run := NewRun(e.oracle, e.embeddings, e.opts)
	records, err := scorePairs(ctx, run, pairs, top, params, e.opts.workers())
	if err != nil {
		return nil, err
	}
	SortByRIS(records)

	accepted := 0
	for _, r := range records {
		if r.Accepted {
			accepted++
		}
	}
	metrics.pairsScored.Add(float64(len(records)))
	metrics.pairsAccepted.Add(float64(accepted))

	paths, props := run.Cache().Len()
	log.Info("[Scoring] Run finished",
		"relation", relation,
		"pairs", len(records),
		"accepted", accepted,
		"cases", len(top),
		"cached_paths", paths,
		"cached_props", props,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return records, nil
}

func scorePairs(ctx context.Context, run *Run, pairs []common.PredictedPair, top []common.CaseScore, params Params, workers int) ([]common.ScoreRecord, error) {
	records := make([]common.ScoreRecord, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = run.Score(gctx, p, top, params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// swallowed oracle errors after cancellation would leave partial scores
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Match generates candidate pairs from the top-k rules: the union of the
// endpoint pairs of every kept rule chain, sorted. A failing chain is logged
// and skipped.
func (e *Engine) Match(ctx context.Context, k int) ([]common.Pair, error) {
	top := e.rules.Top(k)
	q := e.opts.querier()

	var mu sync.Mutex
	set := oracle.PairSet{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.workers())
	for _, rule := range top {
		g.Go(func() error {
			pairs, err := query(gctx, q, "match_chain", func(ctx context.Context) ([]common.Pair, error) {
				return e.oracle.MatchChain(ctx, rule.Relations)
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				metrics.oracleFailures.WithLabelValues("match_chain").Inc()
				logger.Warn("[Scoring] Chain match failed, skipping rule", "rule", rule.Relations.String(), "err", err)
				return nil
			}
			mu.Lock()
			for _, p := range pairs {
				set.Add(p)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := set.Sorted()
	logger.Info("[Scoring] Matched candidate pairs", "rules", len(top), "pairs", len(out))
	return out, nil
}
