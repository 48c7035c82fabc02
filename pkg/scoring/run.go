package scoring

import (
	"context"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/embedding"
	"github.com/OFFIS-RIT/ris/pkg/oracle"

	"gonum.org/v1/gonum/stat"
)

// Run is the state of one scoring pass. It owns the path and property
// caches, which are discarded with it. A Run is safe for concurrent use.
type Run struct {
	cache      *Cache
	embeddings embedding.Store
	opts       Options
}

// NewRun starts a scoring pass with empty caches.
func NewRun(o oracle.GraphOracle, store embedding.Store, opts Options) *Run {
	if store == nil {
		store = embedding.None{}
	}
	return &Run{
		cache:      NewCache(o, opts.MaxPathDepth, opts.querier()),
		embeddings: store,
		opts:       opts,
	}
}

func (r *Run) Cache() *Cache { return r.cache }

// Similarity compares a predicted pair with a case pair.
func (r *Run) Similarity(ctx context.Context, predicted, reference common.Pair) Similarity {
	return Similarity{
		HES: EntitySimilarity(ctx, r.embeddings, predicted.Head, reference.Head),
		TES: EntitySimilarity(ctx, r.embeddings, predicted.Tail, reference.Tail),
		PS:  PathSimilarity(r.cache.Paths(ctx, predicted), r.cache.Paths(ctx, reference)),
	}
}

// CSSM is the mean of SD·SS over the top cases, 0 without cases.
func (r *Run) CSSM(ctx context.Context, predicted common.Pair, top []common.CaseScore) float64 {
	if len(top) == 0 {
		return 0
	}
	terms := make([]float64, len(top))
	for i, c := range top {
		terms[i] = c.SD * r.Similarity(ctx, predicted, c.Pair).SS()
	}
	return stat.Mean(terms, nil)
}

// Connectivity returns AV and ART of the pair's own paths. For each path the
// unique nodes are averaged on degree/I_MAX and relation types/R; the path
// values are then averaged. AV is capped at 1, ART is not.
func (r *Run) Connectivity(ctx context.Context, pair common.Pair) (av, art float64) {
	paths := r.cache.Paths(ctx, pair)
	if len(paths) == 0 {
		return 0, 0
	}

	pathAV := make([]float64, len(paths))
	pathART := make([]float64, len(paths))
	for i, p := range paths {
		nodes := uniqueNodes(p.Nodes)
		if len(nodes) == 0 {
			continue
		}
		var sumAV, sumART float64
		for _, n := range nodes {
			props := r.cache.Props(ctx, n)
			sumAV += ratio(float64(props.Degree), r.opts.IMax)
			sumART += ratio(float64(props.RelationTypeCount), r.opts.R)
		}
		pathAV[i] = sumAV / float64(len(nodes))
		pathART[i] = sumART / float64(len(nodes))
	}

	av = min(stat.Mean(pathAV, nil), 1)
	art = stat.Mean(pathART, nil)
	return av, art
}

// FSCM is the mean of AV and ART.
func (r *Run) FSCM(ctx context.Context, pair common.Pair) float64 {
	av, art := r.Connectivity(ctx, pair)
	return (av + art) / 2
}

// Score evaluates one predicted pair against the selected cases.
func (r *Run) Score(ctx context.Context, p common.PredictedPair, top []common.CaseScore, params Params) common.ScoreRecord {
	// populate the path cache before the case comparisons read it
	r.cache.Paths(ctx, p.Pair)

	cssm := r.CSSM(ctx, p.Pair, top)
	fscm := r.FSCM(ctx, p.Pair)
	ris := Reliability(cssm, fscm, params)
	return common.ScoreRecord{
		Pair:     p.Pair,
		CSSM:     cssm,
		FSCM:     fscm,
		RIS:      ris,
		FP:       p.FP,
		Accepted: Accept(ris, params),
	}
}

func uniqueNodes(nodes []string) []string {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func ratio(v, norm float64) float64 {
	if norm <= 0 {
		return 0
	}
	return v / norm
}
