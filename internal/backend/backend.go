// Package backend opens the graph oracle and embedding store selected by
// the configuration and assembles a scoring engine from them.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/ris/internal/config"
	"github.com/OFFIS-RIT/ris/internal/storage"
	"github.com/OFFIS-RIT/ris/internal/util"
	"github.com/OFFIS-RIT/ris/pkg/embedding"
	pgembed "github.com/OFFIS-RIT/ris/pkg/embedding/pgx"
	"github.com/OFFIS-RIT/ris/pkg/loader"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/oracle"
	"github.com/OFFIS-RIT/ris/pkg/oracle/memory"
	neo "github.com/OFFIS-RIT/ris/pkg/oracle/neo4j"
	pgoracle "github.com/OFFIS-RIT/ris/pkg/oracle/pgx"
	"github.com/OFFIS-RIT/ris/pkg/rules"
	"github.com/OFFIS-RIT/ris/pkg/scoring"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backends holds the opened graph oracle and embedding store.
type Backends struct {
	Oracle     oracle.GraphOracle
	Embeddings embedding.Store

	pool *pgxpool.Pool
}

// Open connects the backends named in cfg. Input files are read through
// resolver so they may live on local disk or S3.
func Open(ctx context.Context, cfg config.Config, resolver *loader.Resolver) (*Backends, error) {
	b := &Backends{}

	var err error
	b.Oracle, err = b.openOracle(ctx, cfg.Graph, resolver)
	if err != nil {
		b.Close(ctx)
		return nil, err
	}
	b.Embeddings, err = b.openEmbeddings(ctx, cfg, resolver)
	if err != nil {
		b.Close(ctx)
		return nil, err
	}
	return b, nil
}

func (b *Backends) postgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}
	pool, err := storage.NewPostgresPool(ctx, url)
	if err != nil {
		return nil, err
	}
	b.pool = pool
	return pool, nil
}

func (b *Backends) openOracle(ctx context.Context, cfg config.GraphConfig, resolver *loader.Resolver) (oracle.GraphOracle, error) {
	switch cfg.Backend {
	case config.GraphBackendNeo4j:
		o, err := neo.NewOracle(ctx, neo.NewOracleParams{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return nil, fmt.Errorf("open neo4j oracle: %w", err)
		}
		return o, nil
	case config.GraphBackendPostgres:
		pool, err := b.postgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres oracle: %w", err)
		}
		logger.Info("[Backend] Connected to Postgres graph")
		return pgoracle.NewGraphDBOracleWithConnection(pool, pgoracle.WithQueryLogging(util.GetEnvBool("LOG_QUERIES", false))), nil
	case config.GraphBackendMemory:
		data, err := resolver.Read(ctx, cfg.TriplesFile)
		if err != nil {
			return nil, fmt.Errorf("open memory oracle: %w", err)
		}
		g, skipped, err := memory.LoadTriples(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open memory oracle: %w", err)
		}
		logger.Info("[Backend] Loaded in-memory graph", "file", cfg.TriplesFile, "skipped", skipped)
		return memory.NewOracle(g), nil
	}
	return nil, fmt.Errorf("%w: unknown graph backend %q", config.ErrInvalidConfig, cfg.Backend)
}

func (b *Backends) openEmbeddings(ctx context.Context, cfg config.Config, resolver *loader.Resolver) (embedding.Store, error) {
	e := cfg.Embedding
	switch e.Backend {
	case config.EmbeddingBackendFile:
		ids, err := resolver.Read(ctx, e.EntityFile)
		if err != nil {
			return nil, fmt.Errorf("open embeddings: %w", err)
		}
		vecs, err := resolver.Read(ctx, e.VectorFile)
		if err != nil {
			return nil, fmt.Errorf("open embeddings: %w", err)
		}
		store, err := embedding.ParseOpenKE(ids, vecs)
		if err != nil {
			return nil, fmt.Errorf("open embeddings: %w", err)
		}
		logger.Info("[Backend] Loaded embeddings", "entities", store.Len(), "dim", store.Dim())
		return store, nil
	case config.EmbeddingBackendPostgres:
		pool, err := b.postgres(ctx, cfg.Graph.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open embeddings: %w", err)
		}
		return pgembed.NewVectorDBStoreWithConnection(pool, e.CacheSize)
	case config.EmbeddingBackendNone:
		logger.Warn("[Backend] No embeddings configured, entity similarity is 0")
		return embedding.None{}, nil
	}
	return nil, fmt.Errorf("%w: unknown embedding backend %q", config.ErrInvalidConfig, e.Backend)
}

// OpenGraph connects only the graph oracle; Embeddings is set to None.
func OpenGraph(ctx context.Context, cfg config.Config, resolver *loader.Resolver) (*Backends, error) {
	b := &Backends{Embeddings: embedding.None{}}
	o, err := b.openOracle(ctx, cfg.Graph, resolver)
	if err != nil {
		b.Close(ctx)
		return nil, err
	}
	b.Oracle = o
	return b, nil
}

// Close releases the oracle and the shared Postgres pool.
func (b *Backends) Close(ctx context.Context) error {
	var errs []error
	if b.Oracle != nil {
		errs = append(errs, b.Oracle.Close(ctx))
	}
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
	return errors.Join(errs...)
}

// LoadRules reads and normalizes the rule file at path.
func LoadRules(ctx context.Context, resolver *loader.Resolver, path string) (*rules.Repository, error) {
	data, err := resolver.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	repo, err := rules.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load rules %s: %w", path, err)
	}
	logger.Info("[Rules] Loaded rules", "file", path, "rules", repo.Len(), "skipped", repo.Skipped())
	return repo, nil
}

// NewEngine builds a scoring engine, deriving I_MAX and R from the graph
// when the run configuration leaves them unset.
func NewEngine(ctx context.Context, run config.RunConfig, b *Backends, repo *rules.Repository) (*scoring.Engine, error) {
	opts, err := scoring.ResolveNormalizers(ctx, b.Oracle, run.Options())
	if err != nil {
		return nil, err
	}
	return scoring.NewEngine(b.Oracle, b.Embeddings, repo, opts), nil
}
