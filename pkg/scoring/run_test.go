package scoring

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/embedding"
)

// p1 reaches p2 directly and through hub; hub has degree 4.
const connectivityGraph = `p1	r1	p2
p1	r2	hub
hub	r3	p2
hub	r1	q
q	r4	hub
`

func TestConnectivity(t *testing.T) {
	o := newMemoryOracle(t, connectivityGraph)
	opts := testOptions()
	opts.IMax = 10
	opts.R = 10
	run := NewRun(o, nil, opts)

	av, art := run.Connectivity(context.Background(), common.Pair{Head: "p1", Tail: "p2"})
	// p1: degree 2, types 2; p2: degree 2, types 2; hub: degree 4, types 4
	// path r1: AV (0.2+0.2)/2 = 0.2, ART 0.2
	// path r2->r3: AV (0.2+0.4+0.2)/3, ART same
	wantAV := (0.2 + 0.8/3) / 2
	if !approx(av, wantAV) || !approx(art, wantAV) {
		t.Fatalf("expected AV=ART=%v, got AV=%v ART=%v", wantAV, av, art)
	}
	if fscm := run.FSCM(context.Background(), common.Pair{Head: "p1", Tail: "p2"}); !approx(fscm, wantAV) {
		t.Fatalf("expected FSCM %v, got %v", wantAV, fscm)
	}
}

func TestConnectivityClampsOnlyAV(t *testing.T) {
	o := newMemoryOracle(t, connectivityGraph)
	opts := testOptions()
	opts.IMax = 1
	opts.R = 1
	run := NewRun(o, nil, opts)

	av, art := run.Connectivity(context.Background(), common.Pair{Head: "p1", Tail: "p2"})
	if av != 1 {
		t.Fatalf("expected AV clamped to 1, got %v", av)
	}
	if art <= 1 {
		t.Fatalf("expected ART to stay unclamped above 1, got %v", art)
	}
}

func TestConnectivityWithoutPaths(t *testing.T) {
	o := newMemoryOracle(t, connectivityGraph)
	run := NewRun(o, nil, testOptions())
	av, art := run.Connectivity(context.Background(), common.Pair{Head: "p2", Tail: "p1"})
	if av != 0 || art != 0 {
		t.Fatalf("expected (0, 0), got (%v, %v)", av, art)
	}
}

func TestCSSMEmptyCases(t *testing.T) {
	o := newMemoryOracle(t, connectivityGraph)
	run := NewRun(o, nil, testOptions())
	if got := run.CSSM(context.Background(), common.Pair{Head: "p1", Tail: "p2"}, nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestCSSMWeightsBySD(t *testing.T) {
	o := newMemoryOracle(t, "a\tr1\tb\nc\tr1\td\ne\tr9\tf\n")
	store := embedding.NewMemoryStore()
	for _, e := range []string{"a", "b", "c", "d", "e", "f"} {
		store.Put(e, []float32{1, 1})
	}
	run := NewRun(o, store, testOptions())
	top := []common.CaseScore{
		{Pair: common.Pair{Head: "c", Tail: "d"}, SD: 1},
		{Pair: common.Pair{Head: "e", Tail: "f"}, SD: 0.5},
	}
	// SS(c,d) = (1+1+1)/3, SS(e,f) = (1+1+0)/3
	want := (1*1.0 + 0.5*(2.0/3)) / 2
	if got := run.CSSM(context.Background(), common.Pair{Head: "a", Tail: "b"}, top); !approx(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCachePathsReturnsCopies(t *testing.T) {
	o := newMemoryOracle(t, connectivityGraph)
	c := NewCache(o, 3, querier{})
	pair := common.Pair{Head: "p1", Tail: "p2"}

	first := c.Paths(context.Background(), pair)
	first[0].Nodes[0] = "mutated"
	first[0].Relations = nil

	second := c.Paths(context.Background(), pair)
	if second[0].Nodes[0] != "p1" || len(second[0].Relations) == 0 {
		t.Fatalf("expected cache to be unaffected by caller mutation, got %+v", second[0])
	}
}

func TestCachePathsSingleQueryUnderConcurrency(t *testing.T) {
	o := &countingOracle{GraphOracle: newMemoryOracle(t, connectivityGraph), delay: 20 * time.Millisecond}
	c := NewCache(o, 3, querier{})
	pair := common.Pair{Head: "p1", Tail: "p2"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := c.Paths(context.Background(), pair); len(got) != 2 {
				t.Errorf("expected 2 paths, got %d", len(got))
			}
		}()
	}
	wg.Wait()
	if n := o.pathCalls.Load(); n != 1 {
		t.Fatalf("expected 1 oracle query, got %d", n)
	}
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	o := &countingOracle{GraphOracle: newMemoryOracle(t, connectivityGraph)}
	o.failPaths.Store(1)
	c := NewCache(o, 3, querier{})
	pair := common.Pair{Head: "p1", Tail: "p2"}

	if got := c.Paths(context.Background(), pair); len(got) != 0 {
		t.Fatalf("expected no paths on failure, got %v", got)
	}
	if got := c.Paths(context.Background(), pair); len(got) != 2 {
		t.Fatalf("expected the retry to succeed with 2 paths, got %d", len(got))
	}
}

func TestCachePropsUnknownEntity(t *testing.T) {
	o := newMemoryOracle(t, connectivityGraph)
	c := NewCache(o, 3, querier{retries: 3})
	if got := c.Props(context.Background(), "ghost"); got != (common.EntityProps{}) {
		t.Fatalf("expected zero props, got %+v", got)
	}
	if got := c.Props(context.Background(), "hub"); !reflect.DeepEqual(got, common.EntityProps{Degree: 4, RelationTypeCount: 4}) {
		t.Fatalf("unexpected hub props %+v", got)
	}
}
