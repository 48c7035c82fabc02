package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/oracle"

	pgxv5 "github.com/jackc/pgx/v5"
)

type pgxIConn interface {
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// GraphDBOracle answers oracle queries from the entities/relations tables.
type GraphDBOracle struct {
	conn     pgxIConn
	logQuery bool
	closer   func()
}

type GraphDBOracleOption func(*GraphDBOracle)

// WithQueryLogging logs every generated statement at DEBUG level.
func WithQueryLogging(enabled bool) GraphDBOracleOption {
	return func(o *GraphDBOracle) {
		o.logQuery = enabled
	}
}

// WithCloser registers fn to run on Close, typically pool.Close.
func WithCloser(fn func()) GraphDBOracleOption {
	return func(o *GraphDBOracle) {
		o.closer = fn
	}
}

// NewGraphDBOracleWithConnection wraps an existing connection or pool.
func NewGraphDBOracleWithConnection(conn pgxIConn, opts ...GraphDBOracleOption) *GraphDBOracle {
	o := &GraphDBOracle{conn: conn}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

func (o *GraphDBOracle) trace(sql string, args []any) {
	if o.logQuery {
		logger.Debug("[Oracle] SQL", "query", sql, "args", args)
	}
}

func (o *GraphDBOracle) pairs(ctx context.Context, sql string, args ...any) ([]common.Pair, error) {
	o.trace(sql, args)
	rows, err := o.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	pairs, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Pair, error) {
		var p common.Pair
		err := row.Scan(&p.Head, &p.Tail)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	return oracle.SortPairs(pairs), nil
}

func (o *GraphDBOracle) MatchChain(ctx context.Context, chain common.Chain) ([]common.Pair, error) {
	if len(chain) == 0 {
		return []common.Pair{}, nil
	}
	sql, args := matchChainQuery(chain)
	pairs, err := o.pairs(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("match chain %s: %w", chain, err)
	}
	return pairs, nil
}

func (o *GraphDBOracle) ChainExists(ctx context.Context, chain common.Chain, head, tail string) (bool, error) {
	if len(chain) == 0 {
		return false, nil
	}
	sql, args := chainExistsQuery(chain, head, tail)
	o.trace(sql, args)
	var exists bool
	if err := o.conn.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("chain exists %s: %w", chain, err)
	}
	return exists, nil
}

func (o *GraphDBOracle) SimplePaths(ctx context.Context, head, tail string, maxDepth int) ([]common.Path, error) {
	if head == tail || maxDepth < 1 {
		return []common.Path{}, nil
	}
	args := []any{head, tail, maxDepth}
	o.trace(simplePathsQuery, args)
	rows, err := o.conn.Query(ctx, simplePathsQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("simple paths %s->%s: %w", head, tail, err)
	}
	paths, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Path, error) {
		var p common.Path
		err := row.Scan(&p.Nodes, &p.Relations)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("simple paths %s->%s: %w", head, tail, err)
	}
	if paths == nil {
		paths = []common.Path{}
	}
	return paths, nil
}

func (o *GraphDBOracle) SameRelationPairs(ctx context.Context, relation string) ([]common.Pair, error) {
	pairs, err := o.pairs(ctx, sameRelationPairsQuery, relation)
	if err != nil {
		return nil, fmt.Errorf("same relation pairs %s: %w", relation, err)
	}
	return pairs, nil
}

func (o *GraphDBOracle) NodeProps(ctx context.Context, entity string) (common.EntityProps, error) {
	o.trace(nodePropsQuery, []any{entity})
	var degree, types int64
	err := o.conn.QueryRow(ctx, nodePropsQuery, entity).Scan(&degree, &types)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.EntityProps{}, fmt.Errorf("%w: %s", oracle.ErrUnknownEntity, entity)
	}
	if err != nil {
		return common.EntityProps{}, fmt.Errorf("node props %s: %w", entity, err)
	}
	return common.EntityProps{Degree: int(degree), RelationTypeCount: int(types)}, nil
}

func (o *GraphDBOracle) Stats(ctx context.Context) (common.GraphStats, error) {
	var maxDegree, types int64
	if err := o.conn.QueryRow(ctx, maxDegreeQuery).Scan(&maxDegree); err != nil {
		return common.GraphStats{}, fmt.Errorf("max degree: %w", err)
	}
	if err := o.conn.QueryRow(ctx, relationTypesQuery).Scan(&types); err != nil {
		return common.GraphStats{}, fmt.Errorf("relation types: %w", err)
	}
	return common.GraphStats{MaxDegree: int(maxDegree), RelationTypes: int(types)}, nil
}

func (o *GraphDBOracle) Close(ctx context.Context) error {
	if o.closer != nil {
		o.closer()
	}
	return nil
}
