// Package config loads ragengine's runtime configuration from a YAML file with
// environment variable overrides, following the same load-then-override
// pattern as the rest of the ambient stack.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DatabaseBackendConfig configures a single persistence backend (search, vector, or tag graph).
type DatabaseBackendConfig struct {
	Backend    string `yaml:"backend"` // memory|postgres|qdrant|auto|none
	DSN        string `yaml:"dsn"`
	Dimensions int    `yaml:"dimensions,omitempty"`
	Metric     string `yaml:"metric,omitempty"` // cosine|l2|ip
	Collection string `yaml:"collection,omitempty"`
}

// DatabasesConfig groups the three persistence backends the retrieval channels read from.
type DatabasesConfig struct {
	DefaultDSN string                `yaml:"default_dsn"`
	Search     DatabaseBackendConfig `yaml:"search"`
	Vector     DatabaseBackendConfig `yaml:"vector"`
	TagGraph   DatabaseBackendConfig `yaml:"tag_graph"`
}

// EmbeddingConfig configures the HTTP-backed embedding client.
type EmbeddingConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Path      string            `yaml:"path"`
	Model     string            `yaml:"model"`
	APIKey    string            `yaml:"api_key"`
	APIHeader string            `yaml:"api_header"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	Dimension int               `yaml:"dimension"`
	Timeout   int               `yaml:"timeout_seconds"`
}

// CompletionConfig configures the chat-completion backend used by the
// summarize/extract-keywords/extract-tags/extract-propositions enrichment steps.
type CompletionConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout int    `yaml:"timeout_seconds"`
}

// ChunkingConfig tunes the text chunker.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"` // target characters per chunk
	Overlap   int `yaml:"overlap"`    // overlapping characters between consecutive chunks
}

// BreakerConfig tunes a single circuit breaker instance.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	ResetTimeout     int `yaml:"reset_timeout_seconds"`
	HalfOpenMaxCalls int `yaml:"half_open_max_calls"`
}

// EnrichmentConfig configures the enrichment DAG, one breaker per step.
type EnrichmentConfig struct {
	Summarize         BreakerConfig `yaml:"summarize"`
	ExtractKeywords   BreakerConfig `yaml:"extract_keywords"`
	ExtractTags       BreakerConfig `yaml:"extract_tags"`
	ExtractPropositions BreakerConfig `yaml:"extract_propositions"`
	GenerateEmbeddings  BreakerConfig `yaml:"generate_embeddings"`
}

// RetrievalConfig tunes the hybrid retrieval and fusion stage.
type RetrievalConfig struct {
	CandidateLimit int     `yaml:"candidate_limit"`
	RRFK           int     `yaml:"rrf_k"`
	VectorWeight   float64 `yaml:"vector_weight"`
	FullTextWeight float64 `yaml:"fulltext_weight"`
	TagWeight      float64 `yaml:"tag_weight"`
}

// KafkaConfig configures publish-only notifications emitted after a document
// finishes ingestion, so an out-of-process scheduler can pick up enrichment work.
type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	EnrichmentTopic string  `yaml:"enrichment_topic"`
}

// RedisConfig configures the cache used for dedup-hash lookups.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// ObsConfig configures OpenTelemetry export.
type ObsConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
	OTLP           string `yaml:"otlp_endpoint"`
}

// Config is the root configuration object for ragengine.
type Config struct {
	LogPath    string           `yaml:"log_path"`
	LogLevel   string           `yaml:"log_level"`
	Databases  DatabasesConfig  `yaml:"databases"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Obs        ObsConfig        `yaml:"otel"`
}

// defaults applies hard-coded fallbacks matching the spec's documented defaults.
func defaults() Config {
	return Config{
		LogLevel: "info",
		Chunking: ChunkingConfig{ChunkSize: 1000, Overlap: 200},
		Enrichment: EnrichmentConfig{
			Summarize:           BreakerConfig{FailureThreshold: 5, ResetTimeout: 60, HalfOpenMaxCalls: 1},
			ExtractKeywords:     BreakerConfig{FailureThreshold: 5, ResetTimeout: 60, HalfOpenMaxCalls: 1},
			ExtractTags:         BreakerConfig{FailureThreshold: 5, ResetTimeout: 60, HalfOpenMaxCalls: 1},
			ExtractPropositions: BreakerConfig{FailureThreshold: 5, ResetTimeout: 60, HalfOpenMaxCalls: 1},
			GenerateEmbeddings:  BreakerConfig{FailureThreshold: 3, ResetTimeout: 30, HalfOpenMaxCalls: 1},
		},
		Retrieval: RetrievalConfig{CandidateLimit: 100, RRFK: 60, VectorWeight: 1, FullTextWeight: 1, TagWeight: 1},
		Obs:       ObsConfig{ServiceName: "ragengine", Environment: "development"},
	}
}

// Load reads a YAML file (if path is non-empty and exists) into defaults, then
// applies environment variable overrides via godotenv+os.Getenv, matching the
// rest of the stack's load-then-override convention.
func Load(path string) (*Config, error) {
	_ = godotenv.Overload()

	cfg := defaults()
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogPath = firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_PATH")), cfg.LogPath)
	cfg.LogLevel = firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), cfg.LogLevel)

	cfg.Databases.DefaultDSN = firstNonEmpty(strings.TrimSpace(os.Getenv("DATABASE_URL")), cfg.Databases.DefaultDSN)
	cfg.Databases.Search.Backend = firstNonEmpty(strings.TrimSpace(os.Getenv("SEARCH_BACKEND")), cfg.Databases.Search.Backend)
	cfg.Databases.Search.DSN = firstNonEmpty(strings.TrimSpace(os.Getenv("SEARCH_DSN")), cfg.Databases.Search.DSN)
	cfg.Databases.Vector.Backend = firstNonEmpty(strings.TrimSpace(os.Getenv("VECTOR_BACKEND")), cfg.Databases.Vector.Backend)
	cfg.Databases.Vector.DSN = firstNonEmpty(strings.TrimSpace(os.Getenv("VECTOR_DSN")), cfg.Databases.Vector.DSN)
	if v := strings.TrimSpace(os.Getenv("VECTOR_DIMENSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Databases.Vector.Dimensions = n
		}
	}
	cfg.Databases.Vector.Metric = firstNonEmpty(strings.TrimSpace(os.Getenv("VECTOR_METRIC")), cfg.Databases.Vector.Metric)
	cfg.Databases.TagGraph.Backend = firstNonEmpty(strings.TrimSpace(os.Getenv("TAG_GRAPH_BACKEND")), cfg.Databases.TagGraph.Backend)
	cfg.Databases.TagGraph.DSN = firstNonEmpty(strings.TrimSpace(os.Getenv("TAG_GRAPH_DSN")), cfg.Databases.TagGraph.DSN)

	cfg.Embedding.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_BASE_URL")), cfg.Embedding.BaseURL)
	cfg.Embedding.Path = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_PATH")), cfg.Embedding.Path)
	cfg.Embedding.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_MODEL")), cfg.Embedding.Model)
	cfg.Embedding.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_API_KEY")), cfg.Embedding.APIKey)
	cfg.Embedding.APIHeader = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_API_HEADER")), cfg.Embedding.APIHeader)
	if v := strings.TrimSpace(os.Getenv("EMBED_DIMENSION")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("EMBED_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Timeout = n
		}
	}

	cfg.Completion.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("COMPLETION_BASE_URL")), cfg.Completion.BaseURL)
	cfg.Completion.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("COMPLETION_MODEL")), cfg.Completion.Model)
	cfg.Completion.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("COMPLETION_API_KEY")), cfg.Completion.APIKey)
	if v := strings.TrimSpace(os.Getenv("COMPLETION_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Completion.Timeout = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHUNK_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.ChunkSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHUNK_OVERLAP")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.Overlap = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("CANDIDATE_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.CandidateLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RRF_K")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.RRFK = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.Kafka.Brokers = parseCommaSeparatedList(v)
	}
	cfg.Kafka.EnrichmentTopic = firstNonEmpty(strings.TrimSpace(os.Getenv("KAFKA_ENRICHMENT_TOPIC")), cfg.Kafka.EnrichmentTopic)

	cfg.Redis.Addr = firstNonEmpty(strings.TrimSpace(os.Getenv("REDIS_ADDR")), cfg.Redis.Addr)

	cfg.Obs.ServiceName = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")), cfg.Obs.ServiceName)
	cfg.Obs.ServiceVersion = firstNonEmpty(strings.TrimSpace(os.Getenv("SERVICE_VERSION")), cfg.Obs.ServiceVersion)
	cfg.Obs.Environment = firstNonEmpty(strings.TrimSpace(os.Getenv("ENVIRONMENT")), cfg.Obs.Environment)
	cfg.Obs.OTLP = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")), cfg.Obs.OTLP)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseCommaSeparatedList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
