package memory

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/oracle"
)

var _ oracle.GraphOracle = (*Oracle)(nil)

func newTestOracle(t *testing.T, triples string) *Oracle {
	t.Helper()
	g, _, err := LoadTriples(strings.NewReader(triples))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return NewOracle(g)
}

const diamond = `a	r1	b
b	r2	c
a	r3	c
c	r1	a
b	r1	d
d	r2	c
`

func TestSimplePathsNoRepeatedNodes(t *testing.T) {
	o := newTestOracle(t, diamond)
	paths, err := o.SimplePaths(context.Background(), "a", "c", 3)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	got := map[string]bool{}
	for _, p := range paths {
		seen := map[string]bool{}
		for _, n := range p.Nodes {
			if seen[n] {
				t.Fatalf("path %v repeats node %s", p.Nodes, n)
			}
			seen[n] = true
		}
		if len(p.Relations) != len(p.Nodes)-1 {
			t.Fatalf("path %v has %d relations", p.Nodes, len(p.Relations))
		}
		if p.Nodes[0] != "a" || p.Nodes[len(p.Nodes)-1] != "c" {
			t.Fatalf("unexpected endpoints %v", p.Nodes)
		}
		got[p.Signature()] = true
	}
	want := map[string]bool{"r1->r2": true, "r3": true, "r1->r1->r2": true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected signatures %v, got %v", want, got)
	}
}

func TestSimplePathsDepthBound(t *testing.T) {
	o := newTestOracle(t, diamond)
	paths, err := o.SimplePaths(context.Background(), "a", "c", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0].Signature() != "r3" {
		t.Fatalf("expected only the direct edge, got %v", paths)
	}
}

func TestSimplePathsSameEndpoints(t *testing.T) {
	o := newTestOracle(t, diamond)
	paths, err := o.SimplePaths(context.Background(), "a", "a", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no paths for head == tail, got %v", paths)
	}
}

func TestChainExists(t *testing.T) {
	o := newTestOracle(t, diamond)
	ctx := context.Background()
	tests := []struct {
		chain      common.Chain
		head, tail string
		want       bool
	}{
		{common.Chain{"r1", "r2"}, "a", "c", true},
		{common.Chain{"r2", "r1"}, "a", "c", false},
		{common.Chain{"r3"}, "a", "c", true},
		{common.Chain{"r1", "r2", "r1"}, "a", "a", true},
		{common.Chain{"r9"}, "a", "c", false},
		{common.Chain{"r1"}, "unknown", "c", false},
	}
	for _, tt := range tests {
		got, err := o.ChainExists(ctx, tt.chain, tt.head, tt.tail)
		if err != nil {
			t.Fatalf("%v: expected nil error, got %v", tt.chain, err)
		}
		if got != tt.want {
			t.Fatalf("%v %s->%s: expected %v, got %v", tt.chain, tt.head, tt.tail, tt.want, got)
		}
	}
}

func TestChainExistsDoesNotReuseEdges(t *testing.T) {
	o := newTestOracle(t, "x\tloop\tx\n")
	ok, err := o.ChainExists(context.Background(), common.Chain{"loop"}, "x", "x")
	if err != nil || !ok {
		t.Fatalf("expected single loop to match, got %v (%v)", ok, err)
	}
	ok, err = o.ChainExists(context.Background(), common.Chain{"loop", "loop"}, "x", "x")
	if err != nil || ok {
		t.Fatalf("expected a single edge not to be traversed twice, got %v (%v)", ok, err)
	}
}

func TestMatchChain(t *testing.T) {
	o := newTestOracle(t, diamond)
	got, err := o.MatchChain(context.Background(), common.Chain{"r1", "r2"})
	if err != nil {
		t.Fatal(err)
	}
	want := []common.Pair{{Head: "a", Tail: "c"}, {Head: "b", Tail: "c"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSameRelationPairsCollapsesDuplicates(t *testing.T) {
	o := newTestOracle(t, diamond+"a\tr1\tb\n")
	got, err := o.SameRelationPairs(context.Background(), "r1")
	if err != nil {
		t.Fatal(err)
	}
	want := []common.Pair{{Head: "a", Tail: "b"}, {Head: "b", Tail: "d"}, {Head: "c", Tail: "a"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNodeProps(t *testing.T) {
	o := newTestOracle(t, diamond)
	props, err := o.NodeProps(context.Background(), "c")
	if err != nil {
		t.Fatal(err)
	}
	// in: b-r2, a-r3, d-r2; out: r1
	want := common.EntityProps{Degree: 4, RelationTypeCount: 3}
	if props != want {
		t.Fatalf("expected %+v, got %+v", want, props)
	}

	if _, err := o.NodeProps(context.Background(), "nobody"); !errors.Is(err, oracle.ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestStats(t *testing.T) {
	o := newTestOracle(t, diamond)
	stats, err := o.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := common.GraphStats{MaxDegree: 4, RelationTypes: 3}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestLoadTriplesSkipsShortLines(t *testing.T) {
	_, skipped, err := LoadTriples(strings.NewReader("a\tr\tb\nbroken\tline\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped line, got %d", skipped)
	}
}
