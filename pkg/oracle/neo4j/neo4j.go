// Package neo4j implements the graph oracle on a Neo4j store holding
// (:Entity {name})-[:RELATION {name}]->(:Entity {name}) triples.
package neo4j

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/oracle"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Oracle runs read transactions against a Neo4j database.
type Oracle struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewOracleParams configures the connection.
type NewOracleParams struct {
	URI      string
	User     string
	Password string
	Database string
}

// NewOracle connects to Neo4j and verifies connectivity.
func NewOracle(ctx context.Context, params NewOracleParams) (*Oracle, error) {
	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.User, params.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	logger.Info("[Oracle] Connected to Neo4j", "uri", params.URI)
	return NewOracleWithDriver(driver, params.Database), nil
}

func NewOracleWithDriver(driver neo4j.DriverWithContext, database string) *Oracle {
	return &Oracle{driver: driver, database: database}
}

func (o *Oracle) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := o.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: o.database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*neo4j.Record), nil
}

func recordPairs(records []*neo4j.Record) ([]common.Pair, error) {
	set := oracle.PairSet{}
	for _, record := range records {
		head, _, err := neo4j.GetRecordValue[string](record, "head")
		if err != nil {
			return nil, err
		}
		tail, _, err := neo4j.GetRecordValue[string](record, "tail")
		if err != nil {
			return nil, err
		}
		set.Add(common.Pair{Head: head, Tail: tail})
	}
	return set.Sorted(), nil
}

func stringList(record *neo4j.Record, key string) ([]string, error) {
	raw, _, err := neo4j.GetRecordValue[[]any](record, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected string, got %T", key, v)
		}
		out = append(out, s)
	}
	return out, nil
}

func (o *Oracle) MatchChain(ctx context.Context, chain common.Chain) ([]common.Pair, error) {
	if len(chain) == 0 {
		return []common.Pair{}, nil
	}
	query, params := matchChainQuery(chain)
	records, err := o.read(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("match chain %s: %w", chain, err)
	}
	return recordPairs(records)
}

func (o *Oracle) ChainExists(ctx context.Context, chain common.Chain, head, tail string) (bool, error) {
	if len(chain) == 0 {
		return false, nil
	}
	query, params := chainExistsQuery(chain, head, tail)
	records, err := o.read(ctx, query, params)
	if err != nil {
		return false, fmt.Errorf("chain exists %s: %w", chain, err)
	}
	for _, record := range records {
		found, _, err := neo4j.GetRecordValue[bool](record, "found")
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (o *Oracle) SimplePaths(ctx context.Context, head, tail string, maxDepth int) ([]common.Path, error) {
	paths := []common.Path{}
	if head == tail || maxDepth < 1 {
		return paths, nil
	}
	query, params := simplePathsQuery(head, tail, maxDepth)
	records, err := o.read(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("simple paths %s->%s: %w", head, tail, err)
	}
	for _, record := range records {
		nodes, err := stringList(record, "node_names")
		if err != nil {
			return nil, err
		}
		rels, err := stringList(record, "rel_names")
		if err != nil {
			return nil, err
		}
		paths = append(paths, common.Path{Nodes: nodes, Relations: rels})
	}
	return paths, nil
}

func (o *Oracle) SameRelationPairs(ctx context.Context, relation string) ([]common.Pair, error) {
	records, err := o.read(ctx, sameRelationPairsQuery, map[string]any{"relation_name": relation})
	if err != nil {
		return nil, fmt.Errorf("same relation pairs %s: %w", relation, err)
	}
	return recordPairs(records)
}

func (o *Oracle) NodeProps(ctx context.Context, entity string) (common.EntityProps, error) {
	records, err := o.read(ctx, nodePropsQuery, map[string]any{"name": entity})
	if err != nil {
		return common.EntityProps{}, fmt.Errorf("node props %s: %w", entity, err)
	}
	if len(records) == 0 {
		return common.EntityProps{}, fmt.Errorf("%w: %s", oracle.ErrUnknownEntity, entity)
	}
	degree, _, err := neo4j.GetRecordValue[int64](records[0], "degree")
	if err != nil {
		return common.EntityProps{}, err
	}
	types, _, err := neo4j.GetRecordValue[int64](records[0], "relation_types")
	if err != nil {
		return common.EntityProps{}, err
	}
	return common.EntityProps{Degree: int(degree), RelationTypeCount: int(types)}, nil
}

func (o *Oracle) Stats(ctx context.Context) (common.GraphStats, error) {
	stats := common.GraphStats{}

	records, err := o.read(ctx, maxDegreeQuery, nil)
	if err != nil {
		return stats, fmt.Errorf("max degree: %w", err)
	}
	if len(records) > 0 {
		degree, _, err := neo4j.GetRecordValue[int64](records[0], "degree")
		if err != nil {
			return stats, err
		}
		stats.MaxDegree = int(degree)
		if entity, _, err := neo4j.GetRecordValue[string](records[0], "entity"); err == nil {
			logger.Debug("[Oracle] Highest degree entity", "entity", entity, "degree", degree)
		}
	}

	records, err = o.read(ctx, relationTypesQuery, nil)
	if err != nil {
		return stats, fmt.Errorf("relation types: %w", err)
	}
	if len(records) > 0 {
		types, _, err := neo4j.GetRecordValue[int64](records[0], "relation_types")
		if err != nil {
			return stats, err
		}
		stats.RelationTypes = int(types)
	}
	return stats, nil
}

func (o *Oracle) Close(ctx context.Context) error {
	return o.driver.Close(ctx)
}
