// Package memory is an in-process GraphOracle over a triple list. It backs
// tests and small offline runs.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/oracle"
)

type edge struct {
	from  string
	to    string
	label string
}

type triple struct {
	from, label, to string
}

// Graph is a directed multigraph with labeled edges. A (head, label, tail)
// triple is stored at most once.
type Graph struct {
	mu    sync.RWMutex
	edges []edge
	out   map[string][]int
	in    map[string][]int
	seen  map[triple]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		out:  make(map[string][]int),
		in:   make(map[string][]int),
		seen: make(map[triple]struct{}),
	}
}

// AddTriple inserts head -label-> tail. It reports false for a duplicate.
func (g *Graph) AddTriple(head, label, tail string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := triple{head, label, tail}
	if _, ok := g.seen[key]; ok {
		return false
	}
	g.seen[key] = struct{}{}

	idx := len(g.edges)
	g.edges = append(g.edges, edge{from: head, to: tail, label: label})
	g.out[head] = append(g.out[head], idx)
	g.in[tail] = append(g.in[tail], idx)
	return true
}

// LoadTriples reads `head\trelation\ttail` lines. Lines with fewer than three
// fields are skipped and counted.
func LoadTriples(r io.Reader) (*Graph, int, error) {
	g := NewGraph()
	skipped := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			skipped++
			continue
		}
		g.AddTriple(parts[0], parts[1], parts[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read triples: %w", err)
	}
	if skipped > 0 {
		logger.Warn("[Oracle] Skipped malformed triple lines", "skipped", skipped)
	}
	return g, skipped, nil
}

func (g *Graph) hasNode(name string) bool {
	_, out := g.out[name]
	_, in := g.in[name]
	return out || in
}

// Oracle answers GraphOracle queries against a Graph.
type Oracle struct {
	graph *Graph
}

func NewOracle(g *Graph) *Oracle {
	return &Oracle{graph: g}
}

// walkChain follows chain from start without reusing an edge and calls visit
// with every end node reached. visit returns false to stop the walk.
func (o *Oracle) walkChain(start string, chain common.Chain, used map[int]bool, visit func(end string) bool) bool {
	if len(chain) == 0 {
		return visit(start)
	}
	g := o.graph
	for _, idx := range g.out[start] {
		e := g.edges[idx]
		if e.label != chain[0] || used[idx] {
			continue
		}
		used[idx] = true
		cont := o.walkChain(e.to, chain[1:], used, visit)
		delete(used, idx)
		if !cont {
			return false
		}
	}
	return true
}

func (o *Oracle) MatchChain(ctx context.Context, chain common.Chain) ([]common.Pair, error) {
	if len(chain) == 0 {
		return []common.Pair{}, nil
	}
	g := o.graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := oracle.PairSet{}
	starts := make(map[string]struct{})
	for _, e := range g.edges {
		if e.label == chain[0] {
			starts[e.from] = struct{}{}
		}
	}
	for start := range starts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.walkChain(start, chain, map[int]bool{}, func(end string) bool {
			set.Add(common.Pair{Head: start, Tail: end})
			return true
		})
	}
	return set.Sorted(), nil
}

func (o *Oracle) ChainExists(ctx context.Context, chain common.Chain, head, tail string) (bool, error) {
	if len(chain) == 0 {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g := o.graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	found := false
	o.walkChain(head, chain, map[int]bool{}, func(end string) bool {
		if end == tail {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

func (o *Oracle) SimplePaths(ctx context.Context, head, tail string, maxDepth int) ([]common.Path, error) {
	paths := []common.Path{}
	if head == tail || maxDepth < 1 {
		return paths, nil
	}
	g := o.graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := []string{head}
	rels := []string{}
	onPath := map[string]bool{head: true}

	var dfs func(cur string) error
	dfs = func(cur string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, idx := range g.out[cur] {
			e := g.edges[idx]
			if onPath[e.to] {
				continue
			}
			nodes = append(nodes, e.to)
			rels = append(rels, e.label)
			if e.to == tail {
				paths = append(paths, common.Path{
					Nodes:     append([]string(nil), nodes...),
					Relations: append([]string(nil), rels...),
				})
			} else if len(rels) < maxDepth {
				onPath[e.to] = true
				if err := dfs(e.to); err != nil {
					return err
				}
				delete(onPath, e.to)
			}
			nodes = nodes[:len(nodes)-1]
			rels = rels[:len(rels)-1]
		}
		return nil
	}
	if err := dfs(head); err != nil {
		return nil, err
	}
	return paths, nil
}

func (o *Oracle) SameRelationPairs(ctx context.Context, relation string) ([]common.Pair, error) {
	g := o.graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := oracle.PairSet{}
	for _, e := range g.edges {
		if e.label == relation {
			set.Add(common.Pair{Head: e.from, Tail: e.to})
		}
	}
	return set.Sorted(), nil
}

func (o *Oracle) NodeProps(ctx context.Context, entity string) (common.EntityProps, error) {
	g := o.graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasNode(entity) {
		return common.EntityProps{}, fmt.Errorf("%w: %s", oracle.ErrUnknownEntity, entity)
	}
	labels := make(map[string]struct{})
	for _, idx := range g.out[entity] {
		labels[g.edges[idx].label] = struct{}{}
	}
	for _, idx := range g.in[entity] {
		labels[g.edges[idx].label] = struct{}{}
	}
	return common.EntityProps{
		Degree:            len(g.out[entity]) + len(g.in[entity]),
		RelationTypeCount: len(labels),
	}, nil
}

func (o *Oracle) Stats(ctx context.Context) (common.GraphStats, error) {
	g := o.graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := common.GraphStats{}
	labels := make(map[string]struct{})
	degree := make(map[string]int)
	for _, e := range g.edges {
		labels[e.label] = struct{}{}
		degree[e.from]++
		degree[e.to]++
	}
	for _, d := range degree {
		stats.MaxDegree = max(stats.MaxDegree, d)
	}
	stats.RelationTypes = len(labels)
	return stats, nil
}

func (o *Oracle) Close(ctx context.Context) error { return nil }
