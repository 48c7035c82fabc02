package scoring

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/oracle"
	"github.com/OFFIS-RIT/ris/pkg/oracle/memory"
)

func newMemoryOracle(t *testing.T, triples string) *memory.Oracle {
	t.Helper()
	g, _, err := memory.LoadTriples(strings.NewReader(triples))
	if err != nil {
		t.Fatalf("load triples: %v", err)
	}
	return memory.NewOracle(g)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.QueryTimeout = time.Second
	opts.QueryRetries = 0
	opts.QueryBackoff = time.Millisecond
	return opts
}

func approx(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	return d < eps && d > -eps
}

// countingOracle counts calls and can fail or stall selected operations.
type countingOracle struct {
	oracle.GraphOracle
	pathCalls  atomic.Int32
	chainCalls atomic.Int32
	failPaths  atomic.Int32
	failChains bool
	delay      time.Duration
}

type errFlaky struct{}

func (errFlaky) Error() string { return "connection reset by peer" }

func (c *countingOracle) SimplePaths(ctx context.Context, head, tail string, maxDepth int) ([]common.Path, error) {
	c.pathCalls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.failPaths.Load() > 0 {
		c.failPaths.Add(-1)
		return nil, errFlaky{}
	}
	return c.GraphOracle.SimplePaths(ctx, head, tail, maxDepth)
}

func (c *countingOracle) ChainExists(ctx context.Context, chain common.Chain, head, tail string) (bool, error) {
	c.chainCalls.Add(1)
	if c.failChains {
		return false, errFlaky{}
	}
	return c.GraphOracle.ChainExists(ctx, chain, head, tail)
}
