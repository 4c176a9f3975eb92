// Package config loads ragnchat configuration from a YAML file, an optional
// .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete ragnchat configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	GitHub        GitHubConfig        `koanf:"github"`
	OpenAI        OpenAIConfig        `koanf:"openai"`
	Anthropic     AnthropicConfig     `koanf:"anthropic"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	VectorStore   VectorStoreConfig   `koanf:"vectorstore"`
	LLM           LLMConfig           `koanf:"llm"`
	Timeouts      TimeoutsConfig      `koanf:"timeouts"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// GitHubConfig configures repository fetching.
type GitHubConfig struct {
	Token             Secret  `koanf:"token"`
	BaseURL           string  `koanf:"base_url"`
	Mode              string  `koanf:"mode"` // "api" or "clone"
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// OpenAIConfig holds OpenAI credentials shared by the embedder and the
// completion generator.
type OpenAIConfig struct {
	APIKey  Secret `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// AnthropicConfig holds Anthropic credentials.
type AnthropicConfig struct {
	APIKey  Secret `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// EmbeddingsConfig configures embedding generation and file filtering.
type EmbeddingsConfig struct {
	Provider   string   `koanf:"provider"` // "openai" or "tei"
	Model      string   `koanf:"model"`
	BaseURL    string   `koanf:"base_url"` // TEI endpoint
	Dimension  int      `koanf:"dimension"`
	Extensions []string `koanf:"extensions"`
	MaxChars   int      `koanf:"max_chars"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Provider  string `koanf:"provider"` // "qdrant", "chromem" or "pgvector"
	BatchSize int    `koanf:"batch_size"`
	TopK      int    `koanf:"top_k"`

	QdrantHost       string `koanf:"qdrant_host"`
	QdrantPort       int    `koanf:"qdrant_port"`
	QdrantCollection string `koanf:"qdrant_collection"`
	QdrantAPIKey     Secret `koanf:"qdrant_api_key"`
	QdrantTLS        bool   `koanf:"qdrant_tls"`

	ChromemPath     string `koanf:"chromem_path"`
	ChromemCompress bool   `koanf:"chromem_compress"`

	PostgresDSN   Secret `koanf:"postgres_dsn"`
	PostgresTable string `koanf:"postgres_table"`
}

// LLMConfig configures the completion model.
type LLMConfig struct {
	Provider    string  `koanf:"provider"` // "openai" or "anthropic"
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// TimeoutsConfig bounds every external call.
type TimeoutsConfig struct {
	Request Duration `koanf:"request"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool    `koanf:"enable_telemetry"`
	ServiceName     string  `koanf:"service_name"`
	OTLPEndpoint    string  `koanf:"otlp_endpoint"`
	OTLPProtocol    string  `koanf:"otlp_protocol"` // "grpc" or "http/protobuf"
	OTLPInsecure    bool    `koanf:"otlp_insecure"`
	SamplingRate    float64 `koanf:"sampling_rate"`
}

// LoggingConfig holds the logger settings exposed through configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults.
const (
	DefaultPort             = 9090
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultEmbeddingModel   = "text-embedding-ada-002"
	DefaultDimension        = 1536
	DefaultMaxChars         = 8000
	DefaultBatchSize        = 100
	DefaultTopK             = 3
	DefaultChatModel        = "gpt-4o-mini"
	DefaultAnthropicModel   = "claude-3-5-haiku-latest"
	DefaultTEIURL           = "http://localhost:8080"
	DefaultQdrantPort       = 6334
	DefaultQdrantCollection = "ragnchat"
	DefaultChromemPath      = "~/.config/ragnchat/vectorstore"
	DefaultPostgresTable    = "ragnchat_vectors"
	DefaultServiceName      = "ragnchat"
)

// DefaultExtensions is the extension allow-list used when none is configured.
var DefaultExtensions = []string{".md", ".py"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}

	if cfg.GitHub.Mode == "" {
		cfg.GitHub.Mode = "api"
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "openai"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = DefaultEmbeddingModel
	}
	if cfg.Embeddings.Provider == "tei" && cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = DefaultTEIURL
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = DefaultDimension
	}
	if len(cfg.Embeddings.Extensions) == 0 {
		cfg.Embeddings.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Embeddings.MaxChars == 0 {
		cfg.Embeddings.MaxChars = DefaultMaxChars
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "qdrant"
	}
	if cfg.VectorStore.BatchSize == 0 {
		cfg.VectorStore.BatchSize = DefaultBatchSize
	}
	if cfg.VectorStore.TopK == 0 {
		cfg.VectorStore.TopK = DefaultTopK
	}
	if cfg.VectorStore.QdrantHost == "" {
		cfg.VectorStore.QdrantHost = "localhost"
	}
	if cfg.VectorStore.QdrantPort == 0 {
		cfg.VectorStore.QdrantPort = DefaultQdrantPort
	}
	if cfg.VectorStore.QdrantCollection == "" {
		cfg.VectorStore.QdrantCollection = DefaultQdrantCollection
	}
	if cfg.VectorStore.ChromemPath == "" {
		cfg.VectorStore.ChromemPath = DefaultChromemPath
	}
	if cfg.VectorStore.PostgresTable == "" {
		cfg.VectorStore.PostgresTable = DefaultPostgresTable
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultChatModel
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}

	if cfg.Timeouts.Request == 0 {
		cfg.Timeouts.Request = Duration(DefaultRequestTimeout)
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = DefaultServiceName
	}
	if cfg.Observability.OTLPEndpoint == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
	}
	if cfg.Observability.OTLPProtocol == "" {
		cfg.Observability.OTLPProtocol = "grpc"
	}
	if cfg.Observability.SamplingRate == 0 {
		cfg.Observability.SamplingRate = 1.0
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if err := oneOf("github.mode", c.GitHub.Mode, "api", "clone"); err != nil {
		return err
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return errors.New("github.requests_per_second cannot be negative")
	}

	if err := oneOf("embeddings.provider", c.Embeddings.Provider, "openai", "tei"); err != nil {
		return err
	}
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embeddings.dimension must be positive, got %d", c.Embeddings.Dimension)
	}
	if c.Embeddings.MaxChars <= 0 {
		return fmt.Errorf("embeddings.max_chars must be positive, got %d", c.Embeddings.MaxChars)
	}
	if len(c.Embeddings.Extensions) == 0 {
		return errors.New("embeddings.extensions cannot be empty")
	}
	for _, ext := range c.Embeddings.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("embeddings.extensions entry %q must start with '.'", ext)
		}
	}

	if err := oneOf("vectorstore.provider", c.VectorStore.Provider, "qdrant", "chromem", "pgvector"); err != nil {
		return err
	}
	if c.VectorStore.BatchSize <= 0 {
		return fmt.Errorf("vectorstore.batch_size must be positive, got %d", c.VectorStore.BatchSize)
	}
	if c.VectorStore.TopK <= 0 {
		return fmt.Errorf("vectorstore.top_k must be positive, got %d", c.VectorStore.TopK)
	}
	if c.VectorStore.Provider == "pgvector" && !c.VectorStore.PostgresDSN.IsSet() {
		return errors.New("vectorstore.postgres_dsn is required for the pgvector provider")
	}

	if err := oneOf("llm.provider", c.LLM.Provider, "openai", "anthropic"); err != nil {
		return err
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}

	if c.Timeouts.Request <= 0 {
		return errors.New("timeouts.request must be positive")
	}

	if err := oneOf("observability.otlp_protocol", c.Observability.OTLPProtocol, "grpc", "http/protobuf"); err != nil {
		return err
	}
	if c.Observability.SamplingRate < 0 || c.Observability.SamplingRate > 1 {
		return fmt.Errorf("observability.sampling_rate must be within [0, 1], got %v", c.Observability.SamplingRate)
	}
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}
