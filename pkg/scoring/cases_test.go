package scoring

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/oracle"
)

func caseScores(sds ...float64) []common.CaseScore {
	out := make([]common.CaseScore, len(sds))
	for i, sd := range sds {
		out[i] = common.CaseScore{Pair: common.Pair{Head: string(rune('a' + i)), Tail: "t"}, SD: sd}
	}
	return out
}

func TestTopCasesIncludesTies(t *testing.T) {
	scores := caseScores(0.9, 0.7, 0.9, 0.5)

	top := TopCases(scores, 1)
	if len(top) != 2 {
		t.Fatalf("expected 2 cases for k=1, got %d", len(top))
	}
	for _, c := range top {
		if c.SD != 0.9 {
			t.Fatalf("expected only 0.9 cases, got %v", c.SD)
		}
	}
	if top[0].Pair.Head != "a" || top[1].Pair.Head != "c" {
		t.Fatalf("expected ties in input order, got %v", top)
	}

	if got := TopCases(scores, 2); len(got) != 3 {
		t.Fatalf("expected 3 cases for k=2, got %d", len(got))
	}
	if got := TopCases(scores, 10); len(got) != 4 {
		t.Fatalf("expected all cases when k exceeds distinct values, got %d", len(got))
	}
}

func TestTopCasesEmpty(t *testing.T) {
	if got := TopCases(nil, 3); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestTopCasesDoesNotMutateInput(t *testing.T) {
	scores := caseScores(0.1, 0.9)
	TopCases(scores, 1)
	if scores[0].SD != 0.1 {
		t.Fatal("expected input order to be preserved")
	}
}

const supportGraph = `c1	r1	c2
c1	worksfor	c2
c3	r1	x
x	r2	c4
c3	worksfor	c4
`

func TestSupportDegree(t *testing.T) {
	o := newMemoryOracle(t, supportGraph)
	s := NewCaseSelector(o, testOptions())
	rules := []common.Rule{
		{Relations: common.Chain{"r1"}, Conf: 1.0},
		{Relations: common.Chain{"r1", "r2"}, Conf: 0.0},
		{Relations: common.Chain{"worksfor"}, Conf: 0.5},
	}
	ctx := context.Background()

	if sd, _ := s.SupportDegree(ctx, common.Pair{Head: "c1", Tail: "c2"}, rules); !approx(sd, 0.75) {
		t.Fatalf("expected SD 0.75, got %v", sd)
	}
	if sd, _ := s.SupportDegree(ctx, common.Pair{Head: "c3", Tail: "c4"}, rules); !approx(sd, 0.25) {
		t.Fatalf("expected SD 0.25, got %v", sd)
	}
	if sd, _ := s.SupportDegree(ctx, common.Pair{Head: "c2", Tail: "c1"}, rules); sd != 0 {
		t.Fatalf("expected SD 0 without matches, got %v", sd)
	}
}

func TestSupportDegreeTreatsFailuresAsNoMatch(t *testing.T) {
	o := &countingOracle{GraphOracle: newMemoryOracle(t, supportGraph), failChains: true}
	opts := testOptions()
	opts.QueryRetries = 2
	s := NewCaseSelector(o, opts)
	rules := []common.Rule{{Relations: common.Chain{"r1"}, Conf: 1.0}}

	sd, err := s.SupportDegree(context.Background(), common.Pair{Head: "c1", Tail: "c2"}, rules)
	if err != nil {
		t.Fatalf("expected failures to be swallowed, got %v", err)
	}
	if sd != 0 {
		t.Fatalf("expected SD 0 on oracle failure, got %v", sd)
	}
	if n := o.chainCalls.Load(); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestSelect(t *testing.T) {
	o := newMemoryOracle(t, supportGraph)
	s := NewCaseSelector(o, testOptions())
	rules := []common.Rule{
		{Relations: common.Chain{"r1"}, Conf: 1.0},
		{Relations: common.Chain{"r1", "r2"}, Conf: 0.0},
	}
	top, err := s.Select(context.Background(), "worksfor", rules, 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// c1->c2 matches r1 only (SD 1), c3->c4 matches r1->r2 only (SD 0)
	want := []common.CaseScore{{Pair: common.Pair{Head: "c1", Tail: "c2"}, SD: 1}}
	if !reflect.DeepEqual(top, want) {
		t.Fatalf("expected %v, got %v", want, top)
	}
}

// cancelingOracle cancels the selection from inside its first chain check,
// so the check fails with the caller's cancellation.
type cancelingOracle struct {
	oracle.GraphOracle
	cancel context.CancelFunc
}

func (c *cancelingOracle) ChainExists(ctx context.Context, chain common.Chain, head, tail string) (bool, error) {
	c.cancel()
	<-ctx.Done()
	return false, ctx.Err()
}

func TestSelectCanceledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o := &cancelingOracle{GraphOracle: newMemoryOracle(t, supportGraph), cancel: cancel}
	s := NewCaseSelector(o, testOptions())
	rules := []common.Rule{{Relations: common.Chain{"r1"}, Conf: 1.0}}

	top, err := s.Select(ctx, "worksfor", rules, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v (top %v)", err, top)
	}

	if _, err := s.SupportDegree(ctx, common.Pair{Head: "c1", Tail: "c2"}, rules); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected SupportDegree to report cancellation, got %v", err)
	}
}
