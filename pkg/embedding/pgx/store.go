package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/ris/pkg/logger"

	lru "github.com/hashicorp/golang-lru/v2"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const lookupQuery = `SELECT embedding FROM entity_embeddings WHERE entity_name = $1`

type pgxIConn interface {
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

type cached struct {
	vec []float32
	ok  bool
}

// VectorDBStore reads entity vectors from the entity_embeddings table. Both
// hits and misses are kept in a bounded LRU cache.
type VectorDBStore struct {
	conn  pgxIConn
	cache *lru.Cache[string, cached]
}

// NewVectorDBStoreWithConnection wraps conn. The pool must have the pgvector
// types registered (see storage.NewPostgresPool).
func NewVectorDBStoreWithConnection(conn pgxIConn, cacheSize int) (*VectorDBStore, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, cached](cacheSize)
	if err != nil {
		return nil, err
	}
	return &VectorDBStore{conn: conn, cache: cache}, nil
}

func (s *VectorDBStore) Lookup(ctx context.Context, entity string) ([]float32, bool, error) {
	if c, ok := s.cache.Get(entity); ok {
		return c.vec, c.ok, nil
	}

	var v pgvector.Vector
	err := s.conn.QueryRow(ctx, lookupQuery, entity).Scan(&v)
	if errors.Is(err, pgxv5.ErrNoRows) {
		s.cache.Add(entity, cached{})
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup embedding %s: %w", entity, err)
	}

	vec := v.Slice()
	s.cache.Add(entity, cached{vec: vec, ok: true})
	logger.Debug("[Embedding] Loaded vector", "entity", entity, "dim", len(vec))
	return vec, true, nil
}
