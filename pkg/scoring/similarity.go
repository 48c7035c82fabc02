package scoring

import (
	"context"
	"math"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/embedding"
	"github.com/OFFIS-RIT/ris/pkg/logger"

	"github.com/viterin/vek/vek32"
)

// Cosine returns the cosine similarity of a and b. A zero vector, or
// vectors of different length, have similarity 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := math.Sqrt(float64(vek32.Dot(a, a)))
	nb := math.Sqrt(float64(vek32.Dot(b, b)))
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b)) / (na * nb)
}

// EntitySimilarity maps the cosine of two entity vectors into [0,1]. It is
// 0 when either entity has no vector or the store fails.
func EntitySimilarity(ctx context.Context, store embedding.Store, a, b string) float64 {
	va, ok := lookup(ctx, store, a)
	if !ok {
		return 0
	}
	vb, ok := lookup(ctx, store, b)
	if !ok {
		return 0
	}
	if len(va) != len(vb) {
		logger.Warn("[Scoring] Embedding dimensions differ", "a", a, "b", b, "dim_a", len(va), "dim_b", len(vb))
		return 0
	}
	return (Cosine(va, vb) + 1) / 2
}

func lookup(ctx context.Context, store embedding.Store, entity string) ([]float32, bool) {
	if store == nil {
		return nil, false
	}
	vec, ok, err := store.Lookup(ctx, entity)
	if err != nil {
		logger.Warn("[Scoring] Embedding lookup failed, treating as missing", "entity", entity, "err", err)
		return nil, false
	}
	return vec, ok
}

func signatures(paths []common.Path) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p.Signature()] = struct{}{}
	}
	return set
}

// PathSimilarity is the share of the predicted pair's distinct path
// signatures that also connect the case pair. 0 when the predicted pair has
// no paths.
func PathSimilarity(predicted, reference []common.Path) float64 {
	pred := signatures(predicted)
	if len(pred) == 0 {
		return 0
	}
	ref := signatures(reference)
	shared := 0
	for sig := range pred {
		if _, ok := ref[sig]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(pred))
}

// Similarity holds the components of one subgraph comparison.
type Similarity struct {
	HES float64
	TES float64
	PS  float64
}

// SS is the unweighted mean of the three components.
func (s Similarity) SS() float64 {
	return (s.HES + s.TES + s.PS) / 3
}
