// Package config loads the retrieval engine configuration from a YAML file
// with TMS_* environment-variable overrides. Every model carries its own
// text pipeline settings so BM25, the language model and the vector space
// model can normalize text differently.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Models      ModelsConfig      `yaml:"models"`
	Search      SearchConfig      `yaml:"search"`
	TREC        TRECConfig        `yaml:"trec"`
	Interaction InteractionConfig `yaml:"interaction"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimit is the number of requests a client may make per minute. Zero disables it.
	RateLimit   int      `yaml:"rateLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CorpusUpdated   string `yaml:"corpusUpdated"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// CorpusConfig selects where documents are loaded from.
type CorpusConfig struct {
	// Source is one of "folder", "crawl" or "postgres".
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// PipelineConfig describes how one model normalizes text.
type PipelineConfig struct {
	KeepStopwords bool `yaml:"keepStopwords"`
	// Reduction is one of "porter", "snowball", "lemma" or "none".
	Reduction      string `yaml:"reduction"`
	ExpandSynonyms bool   `yaml:"expandSynonyms"`
	MaxSynonyms    int    `yaml:"maxSynonyms"`
	NGrams         bool   `yaml:"ngrams"`
	Entities       bool   `yaml:"entities"`
	SplitSentences bool   `yaml:"splitSentences"`
}

// BM25Config holds the Okapi BM25 parameters.
type BM25Config struct {
	K1       float64        `yaml:"k1"`
	B        float64        `yaml:"b"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// LMConfig holds the Dirichlet language model parameters.
type LMConfig struct {
	Mu       float64        `yaml:"mu"`
	Epsilon  float64        `yaml:"epsilon"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// VSMConfig holds the vector space model parameters.
type VSMConfig struct {
	Components      int            `yaml:"components"`
	Granularity     string         `yaml:"granularity"`
	ShortQueryBoost float64        `yaml:"shortQueryBoost"`
	ShortQueryTerms int            `yaml:"shortQueryTerms"`
	Pipeline        PipelineConfig `yaml:"pipeline"`
}

// ModelsConfig groups the three scoring models.
type ModelsConfig struct {
	BM25 BM25Config `yaml:"bm25"`
	LM   LMConfig   `yaml:"lm"`
	VSM  VSMConfig  `yaml:"vsm"`
	// SemanticNeighbours enables corpus co-occurrence synonyms on top of
	// the static thesaurus.
	SemanticNeighbours bool `yaml:"semanticNeighbours"`
}

// SearchConfig controls result limits and presentation.
type SearchConfig struct {
	DefaultLimit  int    `yaml:"defaultLimit"`
	MaxResults    int    `yaml:"maxResults"`
	PageSize      int    `yaml:"pageSize"`
	SnippetWindow int    `yaml:"snippetWindow"`
	RunTag        string `yaml:"runTag"`
}

// TRECConfig controls where ranked runs are persisted.
type TRECConfig struct {
	OutputPath string `yaml:"outputPath"`
	Postgres   bool   `yaml:"postgres"`
}

// InteractionConfig controls the interaction log.
type InteractionConfig struct {
	LogPath   string `yaml:"logPath"`
	AdaptBM25 bool   `yaml:"adaptBM25"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults. The result is validated before it is
// returned.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       600,
			CORSOrigins:     []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "trimodel",
			User:            "trimodel",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "trimodel-search",
			Topics: KafkaTopics{
				CorpusUpdated:   "corpus.updated",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Corpus: CorpusConfig{
			Source: "folder",
			Path:   "data/corpus",
		},
		Models: ModelsConfig{
			BM25: BM25Config{
				K1: 1.5,
				B:  0.75,
				Pipeline: PipelineConfig{
					Reduction:      "porter",
					ExpandSynonyms: true,
					MaxSynonyms:    3,
					Entities:       true,
				},
			},
			LM: LMConfig{
				Mu:      2000,
				Epsilon: 1e-10,
				Pipeline: PipelineConfig{
					KeepStopwords: true,
					Reduction:     "lemma",
					Entities:      true,
				},
			},
			VSM: VSMConfig{
				Components:      100,
				Granularity:     "document",
				ShortQueryBoost: 1.5,
				ShortQueryTerms: 3,
				Pipeline: PipelineConfig{
					Reduction:      "lemma",
					ExpandSynonyms: true,
					MaxSynonyms:    3,
					NGrams:         true,
					Entities:       true,
					SplitSentences: true,
				},
			},
			SemanticNeighbours: true,
		},
		Search: SearchConfig{
			DefaultLimit:  10,
			MaxResults:    100,
			PageSize:      10,
			SnippetWindow: 30,
			RunTag:        "STANDARD",
		},
		TREC: TRECConfig{
			OutputPath: "runs/trec_results.txt",
		},
		Interaction: InteractionConfig{
			LogPath: "data/interactions.jsonl",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:    true,
			SampleRate: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects configurations no model can be built from.
func (c *Config) Validate() error {
	switch c.Corpus.Source {
	case "folder", "crawl", "postgres":
	default:
		return fmt.Errorf("config: unknown corpus source %q", c.Corpus.Source)
	}
	if c.Corpus.Source == "postgres" && !c.Postgres.Enabled {
		return fmt.Errorf("config: corpus source postgres requires postgres.enabled")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server rate limit must be non-negative, got %d", c.Server.RateLimit)
	}
	if c.Models.BM25.K1 < 0 {
		return fmt.Errorf("config: bm25 k1 must be non-negative, got %v", c.Models.BM25.K1)
	}
	if c.Models.BM25.B < 0 || c.Models.BM25.B > 1 {
		return fmt.Errorf("config: bm25 b must be within [0,1], got %v", c.Models.BM25.B)
	}
	if c.Models.LM.Mu <= 0 {
		return fmt.Errorf("config: lm mu must be positive, got %v", c.Models.LM.Mu)
	}
	if c.Models.LM.Epsilon <= 0 {
		return fmt.Errorf("config: lm epsilon must be positive, got %v", c.Models.LM.Epsilon)
	}
	if c.Models.VSM.Components < 1 {
		return fmt.Errorf("config: vsm components must be at least 1, got %d", c.Models.VSM.Components)
	}
	switch c.Models.VSM.Granularity {
	case "document", "sentence":
	default:
		return fmt.Errorf("config: unknown vsm granularity %q", c.Models.VSM.Granularity)
	}
	for name, p := range map[string]PipelineConfig{
		"bm25": c.Models.BM25.Pipeline,
		"lm":   c.Models.LM.Pipeline,
		"vsm":  c.Models.VSM.Pipeline,
	} {
		switch p.Reduction {
		case "porter", "snowball", "lemma", "none":
		default:
			return fmt.Errorf("config: %s pipeline has unknown reduction %q", name, p.Reduction)
		}
		if p.MaxSynonyms < 0 || p.MaxSynonyms > 3 {
			return fmt.Errorf("config: %s pipeline maxSynonyms must be within [0,3], got %d", name, p.MaxSynonyms)
		}
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("config: search defaultLimit must be within [1,%d]", c.Search.MaxResults)
	}
	if c.Search.SnippetWindow < 1 {
		return fmt.Errorf("config: search snippetWindow must be positive")
	}
	return nil
}

// applyEnvOverrides reads TMS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TMS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TMS_SERVER_RATE_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = limit
		}
	}
	if v := os.Getenv("TMS_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("TMS_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("TMS_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v, cfg.Postgres.Enabled)
	}
	if v := os.Getenv("TMS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TMS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TMS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TMS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TMS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TMS_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v, cfg.Kafka.Enabled)
	}
	if v := os.Getenv("TMS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TMS_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("TMS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TMS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TMS_BM25_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Models.BM25.K1 = f
		}
	}
	if v := os.Getenv("TMS_BM25_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Models.BM25.B = f
		}
	}
	if v := os.Getenv("TMS_LM_MU"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Models.LM.Mu = f
		}
	}
	if v := os.Getenv("TMS_VSM_COMPONENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Models.VSM.Components = n
		}
	}
	if v := os.Getenv("TMS_TREC_OUTPUT_PATH"); v != "" {
		cfg.TREC.OutputPath = v
	}
	if v := os.Getenv("TMS_INTERACTION_LOG_PATH"); v != "" {
		cfg.Interaction.LogPath = v
	}
	if v := os.Getenv("TMS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TMS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
