// Package oracle defines the read-only query surface the scoring engine needs
// from a knowledge-graph store. Query text for a concrete store is built only
// inside its adapter package.
package oracle

import (
	"context"
	"errors"
	"sort"

	"github.com/OFFIS-RIT/ris/pkg/common"
)

// ErrUnknownEntity is returned by NodeProps when the entity has no node.
var ErrUnknownEntity = errors.New("unknown entity")

// GraphOracle answers the path and property queries of a scoring run.
//
// ChainExists and SimplePaths are deliberately separate: the first stops at
// the first realizing path, the second enumerates every simple path.
type GraphOracle interface {
	// MatchChain returns every endpoint pair connected by a directed path
	// whose edge labels equal chain in order. Sorted, no duplicates.
	MatchChain(ctx context.Context, chain common.Chain) ([]common.Pair, error)
	// ChainExists reports whether chain is realized from head to tail.
	ChainExists(ctx context.Context, chain common.Chain, head, tail string) (bool, error)
	// SimplePaths returns all directed paths of 1..maxDepth edges from head
	// to tail that visit no node twice.
	SimplePaths(ctx context.Context, head, tail string, maxDepth int) ([]common.Path, error)
	// SameRelationPairs returns every pair joined by an edge labeled
	// relation. Sorted, no duplicates.
	SameRelationPairs(ctx context.Context, relation string) ([]common.Pair, error)
	// NodeProps returns degree and distinct relation-label count of entity.
	NodeProps(ctx context.Context, entity string) (common.EntityProps, error)
	// Stats returns the graph-wide degree and relation-type normalizers.
	Stats(ctx context.Context) (common.GraphStats, error)
	Close(ctx context.Context) error
}

// SortPairs sorts pairs by (head, tail) and removes duplicates in place.
func SortPairs(pairs []common.Pair) []common.Pair {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Less(pairs[j]) })
	out := pairs[:0]
	for i, p := range pairs {
		if i > 0 && p == pairs[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PairSet collects pairs without duplicates.
type PairSet map[common.Pair]struct{}

func (s PairSet) Add(p common.Pair) { s[p] = struct{}{} }

// Sorted returns the members ordered by (head, tail).
func (s PairSet) Sorted() []common.Pair {
	out := make([]common.Pair, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return SortPairs(out)
}
