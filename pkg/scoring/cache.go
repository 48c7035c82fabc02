package scoring

import (
	"context"
	"errors"
	"sync"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/oracle"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes path enumeration and entity properties for one scoring
// run. Concurrent lookups of the same key share one oracle query, and every
// returned path slice is a private copy.
//
// Failed lookups are not cached, so a later caller retries the query.
type Cache struct {
	oracle   oracle.GraphOracle
	maxDepth int
	q        querier

	pathsMu sync.RWMutex
	paths   map[common.Pair][]common.Path
	pathsSF singleflight.Group

	propsMu sync.RWMutex
	props   map[string]common.EntityProps
	propsSF singleflight.Group
}

func NewCache(o oracle.GraphOracle, maxDepth int, q querier) *Cache {
	return &Cache{
		oracle:   o,
		maxDepth: maxDepth,
		q:        q,
		paths:    make(map[common.Pair][]common.Path),
		props:    make(map[string]common.EntityProps),
	}
}

func pairKey(p common.Pair) string {
	return p.Head + "\x00" + p.Tail
}

// Paths returns the simple paths of pair. An oracle failure is logged and
// yields no paths.
func (c *Cache) Paths(ctx context.Context, pair common.Pair) []common.Path {
	c.pathsMu.RLock()
	if cached, ok := c.paths[pair]; ok {
		c.pathsMu.RUnlock()
		metrics.cacheHits.WithLabelValues("paths").Inc()
		return common.ClonePaths(cached)
	}
	c.pathsMu.RUnlock()

	result, err, _ := c.pathsSF.Do(pairKey(pair), func() (any, error) {
		c.pathsMu.RLock()
		if cached, ok := c.paths[pair]; ok {
			c.pathsMu.RUnlock()
			return cached, nil
		}
		c.pathsMu.RUnlock()

		metrics.cacheMisses.WithLabelValues("paths").Inc()
		paths, err := query(ctx, c.q, "simple_paths", func(ctx context.Context) ([]common.Path, error) {
			return c.oracle.SimplePaths(ctx, pair.Head, pair.Tail, c.maxDepth)
		})
		if err != nil {
			return nil, err
		}
		if paths == nil {
			paths = []common.Path{}
		}

		c.pathsMu.Lock()
		c.paths[pair] = paths
		c.pathsMu.Unlock()
		return paths, nil
	})
	if err != nil {
		metrics.oracleFailures.WithLabelValues("simple_paths").Inc()
		logger.Warn("[Scoring] Path query failed, treating as no paths", "head", pair.Head, "tail", pair.Tail, "err", err)
		return []common.Path{}
	}
	return common.ClonePaths(result.([]common.Path))
}

// Props returns the structural features of entity. Unknown entities and
// failed lookups count as zero degree and zero relation types; only the
// former is cached.
func (c *Cache) Props(ctx context.Context, entity string) common.EntityProps {
	c.propsMu.RLock()
	if cached, ok := c.props[entity]; ok {
		c.propsMu.RUnlock()
		metrics.cacheHits.WithLabelValues("props").Inc()
		return cached
	}
	c.propsMu.RUnlock()

	result, err, _ := c.propsSF.Do(entity, func() (any, error) {
		c.propsMu.RLock()
		if cached, ok := c.props[entity]; ok {
			c.propsMu.RUnlock()
			return cached, nil
		}
		c.propsMu.RUnlock()

		metrics.cacheMisses.WithLabelValues("props").Inc()
		props, err := query(ctx, c.q, "node_props", func(ctx context.Context) (common.EntityProps, error) {
			return c.oracle.NodeProps(ctx, entity)
		})
		if errors.Is(err, oracle.ErrUnknownEntity) {
			props, err = common.EntityProps{}, nil
		}
		if err != nil {
			return nil, err
		}

		c.propsMu.Lock()
		c.props[entity] = props
		c.propsMu.Unlock()
		return props, nil
	})
	if err != nil {
		metrics.oracleFailures.WithLabelValues("node_props").Inc()
		logger.Warn("[Scoring] Property query failed, counting node as isolated", "entity", entity, "err", err)
		return common.EntityProps{}
	}
	return result.(common.EntityProps)
}

// Len reports the number of cached path sets and property records.
func (c *Cache) Len() (paths, props int) {
	c.pathsMu.RLock()
	paths = len(c.paths)
	c.pathsMu.RUnlock()
	c.propsMu.RLock()
	props = len(c.props)
	c.propsMu.RUnlock()
	return paths, props
}
