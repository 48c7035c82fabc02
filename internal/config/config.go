package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/OFFIS-RIT/ris/internal/util"
	"github.com/OFFIS-RIT/ris/pkg/scoring"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	GraphBackendNeo4j    = "neo4j"
	GraphBackendPostgres = "postgres"
	GraphBackendMemory   = "memory"

	EmbeddingBackendFile     = "file"
	EmbeddingBackendPostgres = "postgres"
	EmbeddingBackendNone     = "none"
)

// RunConfig holds the numeric parameters of one scoring run.
type RunConfig struct {
	Sigma        float64       `yaml:"sigma" json:"sigma"`
	Mu           float64       `yaml:"mu" json:"mu"`
	Theta        float64       `yaml:"theta" json:"theta"`
	IMax         float64       `yaml:"i_max" json:"i_max"`
	R            float64       `yaml:"r" json:"r"`
	TopK         int           `yaml:"top_k" json:"top_k"`
	MaxPathDepth int           `yaml:"max_path_depth" json:"max_path_depth"`
	Workers      int           `yaml:"workers" json:"workers"`
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`
	QueryRetries int           `yaml:"query_retries" json:"query_retries"`
	QueryBackoff time.Duration `yaml:"query_backoff" json:"query_backoff"`
}

type GraphConfig struct {
	Backend       string `yaml:"backend"`
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`
	DatabaseURL   string `yaml:"database_url"`
	// TriplesFile feeds the memory backend (head\trelation\ttail per line).
	TriplesFile string `yaml:"triples_file"`
}

type EmbeddingConfig struct {
	Backend    string `yaml:"backend"`
	EntityFile string `yaml:"entity_file"`
	VectorFile string `yaml:"vector_file"`
	CacheSize  int    `yaml:"cache_size"`
}

// Config is the full process configuration.
type Config struct {
	// RulesFile is a local path or s3:// location of the rule list.
	RulesFile string          `yaml:"rules_file"`
	Run       RunConfig       `yaml:"run"`
	Graph     GraphConfig     `yaml:"graph"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// DefaultRunConfig returns the raw-scoring defaults (σ=1, μ=0).
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Sigma:        1,
		Mu:           0,
		Theta:        0.4,
		IMax:         1000,
		R:            400,
		TopK:         3,
		MaxPathDepth: 3,
		Workers:      4,
		QueryTimeout: 30 * time.Second,
		QueryRetries: 2,
		QueryBackoff: 200 * time.Millisecond,
	}
}

func Default() Config {
	return Config{
		Run: DefaultRunConfig(),
		Graph: GraphConfig{
			Backend:  GraphBackendNeo4j,
			Neo4jURI: "neo4j://localhost:7687",
		},
		Embedding: EmbeddingConfig{
			Backend:   EmbeddingBackendFile,
			CacheSize: 4096,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then environment variables. Flags are applied by the
// caller afterwards.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.RulesFile = util.GetEnvString("RIS_RULES_FILE", c.RulesFile)

	r := &c.Run
	r.Sigma = util.GetEnvFloat("RIS_SIGMA", r.Sigma)
	r.Mu = util.GetEnvFloat("RIS_MU", r.Mu)
	r.Theta = util.GetEnvFloat("RIS_THETA", r.Theta)
	r.IMax = util.GetEnvFloat("RIS_I_MAX", r.IMax)
	r.R = util.GetEnvFloat("RIS_R", r.R)
	r.TopK = util.GetEnvInt("RIS_TOP_K", r.TopK)
	r.MaxPathDepth = util.GetEnvInt("RIS_MAX_PATH_DEPTH", r.MaxPathDepth)
	r.Workers = util.GetEnvInt("RIS_WORKERS", r.Workers)
	r.QueryTimeout = util.GetEnvDuration("RIS_QUERY_TIMEOUT", r.QueryTimeout)
	r.QueryRetries = util.GetEnvInt("RIS_QUERY_RETRIES", r.QueryRetries)
	r.QueryBackoff = util.GetEnvDuration("RIS_QUERY_BACKOFF", r.QueryBackoff)

	g := &c.Graph
	g.Backend = util.GetEnvString("GRAPH_BACKEND", g.Backend)
	g.Neo4jURI = util.GetEnvString("NEO4J_URI", g.Neo4jURI)
	g.Neo4jUser = util.GetEnvString("NEO4J_USER", g.Neo4jUser)
	g.Neo4jPassword = util.GetEnvString("NEO4J_PASSWORD", g.Neo4jPassword)
	g.Neo4jDatabase = util.GetEnvString("NEO4J_DATABASE", g.Neo4jDatabase)
	g.DatabaseURL = util.GetEnvString("DATABASE_URL", g.DatabaseURL)
	g.TriplesFile = util.GetEnvString("GRAPH_TRIPLES_FILE", g.TriplesFile)

	e := &c.Embedding
	e.Backend = util.GetEnvString("EMBEDDING_BACKEND", e.Backend)
	e.EntityFile = util.GetEnvString("EMBEDDING_ENTITY_FILE", e.EntityFile)
	e.VectorFile = util.GetEnvString("EMBEDDING_VECTOR_FILE", e.VectorFile)
	e.CacheSize = util.GetEnvInt("EMBEDDING_CACHE_SIZE", e.CacheSize)
}

// Validate checks the run parameters. I_MAX and R may be ≤ 0, meaning they
// are derived from the graph at run start.
func (r RunConfig) Validate() error {
	switch {
	case r.TopK < 1:
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidConfig, r.TopK)
	case r.MaxPathDepth < 1:
		return fmt.Errorf("%w: max_path_depth must be >= 1, got %d", ErrInvalidConfig, r.MaxPathDepth)
	case r.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, r.Workers)
	case r.QueryTimeout < 0:
		return fmt.Errorf("%w: query_timeout must not be negative", ErrInvalidConfig)
	case r.QueryRetries < 0:
		return fmt.Errorf("%w: query_retries must not be negative", ErrInvalidConfig)
	case r.QueryBackoff < 0:
		return fmt.Errorf("%w: query_backoff must not be negative", ErrInvalidConfig)
	}
	return nil
}

// NeedsGraphStats reports whether I_MAX or R must be derived from the graph.
func (r RunConfig) NeedsGraphStats() bool {
	return r.IMax <= 0 || r.R <= 0
}

// Params returns the combiner weights and threshold.
func (r RunConfig) Params() scoring.Params {
	return scoring.Params{Sigma: r.Sigma, Mu: r.Mu, Theta: r.Theta}
}

func (r RunConfig) Options() scoring.Options {
	return scoring.Options{
		Params:       r.Params(),
		IMax:         r.IMax,
		R:            r.R,
		TopK:         r.TopK,
		MaxPathDepth: r.MaxPathDepth,
		Workers:      r.Workers,
		QueryTimeout: r.QueryTimeout,
		QueryRetries: r.QueryRetries,
		QueryBackoff: r.QueryBackoff,
	}
}

func (c Config) Validate() error {
	if err := c.Run.Validate(); err != nil {
		return err
	}
	switch c.Graph.Backend {
	case GraphBackendNeo4j:
		if c.Graph.Neo4jURI == "" {
			return fmt.Errorf("%w: neo4j backend needs NEO4J_URI", ErrInvalidConfig)
		}
	case GraphBackendPostgres:
		if c.Graph.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres backend needs DATABASE_URL", ErrInvalidConfig)
		}
	case GraphBackendMemory:
		if c.Graph.TriplesFile == "" {
			return fmt.Errorf("%w: memory backend needs GRAPH_TRIPLES_FILE", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown graph backend %q", ErrInvalidConfig, c.Graph.Backend)
	}
	switch c.Embedding.Backend {
	case EmbeddingBackendFile:
		if c.Embedding.EntityFile == "" || c.Embedding.VectorFile == "" {
			return fmt.Errorf("%w: file embeddings need EMBEDDING_ENTITY_FILE and EMBEDDING_VECTOR_FILE", ErrInvalidConfig)
		}
	case EmbeddingBackendPostgres:
		if c.Graph.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres embeddings need DATABASE_URL", ErrInvalidConfig)
		}
	case EmbeddingBackendNone:
	default:
		return fmt.Errorf("%w: unknown embedding backend %q", ErrInvalidConfig, c.Embedding.Backend)
	}
	return nil
}
