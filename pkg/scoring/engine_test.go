package scoring

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/embedding"
	"github.com/OFFIS-RIT/ris/pkg/oracle"
	"github.com/OFFIS-RIT/ris/pkg/rules"
)

// c1->c2 is the only worksfor case and is reachable only through r1.
// p1->p2 is connected by r3 alone.
const scenarioGraph = `c1	worksfor	c2
c1	r1	c2
p1	r3	p2
`

func scenarioEngine(t *testing.T, store embedding.Store) *Engine {
	t.Helper()
	repo, err := rules.ParseBytes([]byte("r1\t10\nr1->r2\t5\n"))
	if err != nil {
		t.Fatalf("parse rules: %v", err)
	}
	return NewEngine(newMemoryOracle(t, scenarioGraph), store, repo, testOptions())
}

func TestScenario(t *testing.T) {
	e := scenarioEngine(t, nil)
	ctx := context.Background()

	confs := []float64{}
	for _, r := range e.rules.Rules() {
		confs = append(confs, r.Conf)
	}
	if !reflect.DeepEqual(confs, []float64{1.0, 0.0}) {
		t.Fatalf("expected confidences [1 0], got %v", confs)
	}

	top, err := e.Cases(ctx, "worksfor")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(top) != 1 || top[0].SD != 1.0 {
		t.Fatalf("expected one case with SD 1.0, got %v", top)
	}

	pred := common.Pair{Head: "p1", Tail: "p2"}
	run := NewRun(e.oracle, e.embeddings, e.opts)
	sim := run.Similarity(ctx, pred, top[0].Pair)
	if sim.PS != 0 || sim.SS() != 0 {
		t.Fatalf("expected PS=0 and SS=0, got %+v", sim)
	}

	records, err := e.Score(ctx, "worksfor", []common.PredictedPair{{Pair: pred, FP: "1"}}, DefaultParams())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if records[0].CSSM != 0 {
		t.Fatalf("expected CSSM 0, got %v", records[0].CSSM)
	}
	if records[0].FP != "1" || records[0].Accepted {
		t.Fatalf("unexpected record %+v", records[0])
	}
}

func TestScoreSortedAndIdempotent(t *testing.T) {
	store := embedding.NewMemoryStore()
	store.Put("c1", []float32{1, 0})
	store.Put("c2", []float32{0, 1})
	store.Put("a", []float32{1, 0})
	store.Put("b", []float32{0, 1})
	e := scenarioEngine(t, store)
	ctx := context.Background()

	pairs := []common.PredictedPair{
		{Pair: common.Pair{Head: "p1", Tail: "p2"}, FP: "1"},
		{Pair: common.Pair{Head: "a", Tail: "b"}, FP: "0"},
		{Pair: common.Pair{Head: "x", Tail: "y"}, FP: "1"},
	}
	first, err := e.Score(ctx, "worksfor", pairs, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if first[0].Pair.Head != "a" {
		t.Fatalf("expected the embedded pair to rank first, got %+v", first)
	}
	// a->b: HES=TES=1, PS=0, SD=1
	if !approx(first[0].CSSM, 2.0/3) || !first[0].Accepted {
		t.Fatalf("expected CSSM 2/3 and acceptance, got %+v", first[0])
	}
	for i := 1; i < len(first); i++ {
		if first[i].RIS > first[i-1].RIS {
			t.Fatalf("records not sorted by RIS: %+v", first)
		}
	}
	if first[1].Pair.Head != "p1" || first[2].Pair.Head != "x" {
		t.Fatalf("expected equal RIS to keep input order, got %+v", first)
	}

	second, err := e.Score(ctx, "worksfor", pairs, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	var b1, b2 bytes.Buffer
	if err := WriteRecords(&b1, first); err != nil {
		t.Fatal(err)
	}
	if err := WriteRecords(&b2, second); err != nil {
		t.Fatal(err)
	}
	if b1.String() != b2.String() {
		t.Fatalf("expected identical output, got\n%s\nvs\n%s", b1.String(), b2.String())
	}
}

func TestScoreUnknownRelation(t *testing.T) {
	e := scenarioEngine(t, nil)
	records, err := e.Score(context.Background(), "nothing", []common.PredictedPair{{Pair: common.Pair{Head: "p1", Tail: "p2"}, FP: "0"}}, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if records[0].CSSM != 0 {
		t.Fatalf("expected CSSM 0 without cases, got %v", records[0].CSSM)
	}
}

func TestScoreCanceled(t *testing.T) {
	e := scenarioEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Score(ctx, "worksfor", []common.PredictedPair{{Pair: common.Pair{Head: "p1", Tail: "p2"}}}, DefaultParams()); err == nil {
		t.Fatal("expected an error for a canceled context")
	}
}

// gatedOracle holds every chain check until release is closed and signals
// started on the first one.
type gatedOracle struct {
	oracle.GraphOracle
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedOracle) ChainExists(ctx context.Context, chain common.Chain, head, tail string) (bool, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return g.GraphOracle.ChainExists(ctx, chain, head, tail)
}

func TestCasesSurviveCanceledCaller(t *testing.T) {
	repo, err := rules.ParseBytes([]byte("r1\t10\nr1->r2\t5\n"))
	if err != nil {
		t.Fatal(err)
	}
	o := &gatedOracle{
		GraphOracle: newMemoryOracle(t, scenarioGraph),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	e := NewEngine(o, nil, repo, testOptions())

	canceledCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	canceledErr := make(chan error, 1)
	go func() {
		_, err := e.Cases(canceledCtx, "worksfor")
		canceledErr <- err
	}()

	type result struct {
		top []common.CaseScore
		err error
	}
	waiting := make(chan result, 1)
	go func() {
		top, err := e.Cases(context.Background(), "worksfor")
		waiting <- result{top, err}
	}()

	<-o.started
	cancel()
	select {
	case err := <-canceledErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled for the canceled caller, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting for the selection")
	}

	close(o.release)
	want := []common.CaseScore{{Pair: common.Pair{Head: "c1", Tail: "c2"}, SD: 1}}
	select {
	case res := <-waiting:
		if res.err != nil {
			t.Fatalf("expected nil error for the live caller, got %v", res.err)
		}
		if !reflect.DeepEqual(res.top, want) {
			t.Fatalf("expected %v, got %v", want, res.top)
		}
	case <-time.After(time.Second):
		t.Fatal("live caller did not receive the cases")
	}

	top, err := e.Cases(context.Background(), "worksfor")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !reflect.DeepEqual(top, want) {
		t.Fatalf("expected cached %v, got %v", want, top)
	}
}

func TestMatchUsesTopRulesWithTies(t *testing.T) {
	graph := "a\tr1\tb\nc\tr2\td\ne\tr3\tf\ng\tr4\th\n"
	repo, err := rules.ParseBytes([]byte("r1\t10\nr2\t6\nr3\t6\nr4\t2\n"))
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(newMemoryOracle(t, graph), nil, repo, testOptions())
	pairs, err := e.Match(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []common.Pair{{Head: "a", Tail: "b"}, {Head: "c", Tail: "d"}, {Head: "e", Tail: "f"}}
	if !reflect.DeepEqual(pairs, want) {
		t.Fatalf("expected %v, got %v", want, pairs)
	}

	var buf bytes.Buffer
	if err := WritePairs(&buf, pairs); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "a\tb\n") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestResolveNormalizers(t *testing.T) {
	o := newMemoryOracle(t, scenarioGraph)
	opts := testOptions()
	opts.IMax = 0
	got, err := ResolveNormalizers(context.Background(), o, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got.IMax != 2 || got.R != opts.R {
		t.Fatalf("expected I_MAX from graph and R kept, got %v %v", got.IMax, got.R)
	}
}
