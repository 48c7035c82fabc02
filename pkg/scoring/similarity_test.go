package scoring

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/embedding"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 3}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); !approx(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEntitySimilarity(t *testing.T) {
	store := embedding.NewMemoryStore()
	store.Put("a", []float32{1, 0})
	store.Put("b", []float32{-1, 0})
	store.Put("z", []float32{0, 0})
	ctx := context.Background()

	if got := EntitySimilarity(ctx, store, "a", "a"); !approx(got, 1) {
		t.Fatalf("expected 1 for identical vectors, got %v", got)
	}
	if got := EntitySimilarity(ctx, store, "a", "b"); !approx(got, 0) {
		t.Fatalf("expected 0 for opposite vectors, got %v", got)
	}
	if got := EntitySimilarity(ctx, store, "a", "z"); !approx(got, 0.5) {
		t.Fatalf("expected 0.5 against a zero vector, got %v", got)
	}
	if got := EntitySimilarity(ctx, store, "a", "missing"); got != 0 {
		t.Fatalf("expected 0 for a missing vector, got %v", got)
	}
	if got := EntitySimilarity(ctx, embedding.None{}, "a", "a"); got != 0 {
		t.Fatalf("expected 0 without embeddings, got %v", got)
	}
}

func paths(sigs ...[]string) []common.Path {
	out := make([]common.Path, len(sigs))
	for i, rels := range sigs {
		nodes := make([]string, len(rels)+1)
		for j := range nodes {
			nodes[j] = string(rune('a' + j))
		}
		out[i] = common.Path{Nodes: nodes, Relations: rels}
	}
	return out
}

func TestPathSimilarity(t *testing.T) {
	pred := paths([]string{"r1"}, []string{"r1", "r2"}, []string{"r1"})
	if got := PathSimilarity(pred, paths([]string{"r1"}, []string{"r1", "r2"}, []string{"r3"})); got != 1 {
		t.Fatalf("expected 1 for a subset, got %v", got)
	}
	if got := PathSimilarity(pred, paths([]string{"r1"})); got != 0.5 {
		t.Fatalf("expected 0.5 over distinct signatures, got %v", got)
	}
	if got := PathSimilarity(pred, nil); got != 0 {
		t.Fatalf("expected 0 without case paths, got %v", got)
	}
	if got := PathSimilarity(nil, pred); got != 0 {
		t.Fatalf("expected 0 without predicted paths, got %v", got)
	}
}

func TestSimilaritySS(t *testing.T) {
	s := Similarity{HES: 1, TES: 0.5, PS: 0}
	if !approx(s.SS(), 0.5) {
		t.Fatalf("expected 0.5, got %v", s.SS())
	}
}
