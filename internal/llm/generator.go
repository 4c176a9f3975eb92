package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
)

// ErrInvalidConfig indicates an unusable generator configuration.
var ErrInvalidConfig = errors.New("invalid llm configuration")

// Role identifies the author of a Message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Generator produces an assistant reply for a conversation.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Options configures a Generator.
type Options struct {
	APIKey      config.Secret
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Option mutates Options.
type Option func(*Options)

// WithAPIKey sets the provider credential.
func WithAPIKey(key config.Secret) Option {
	return func(o *Options) { o.APIKey = key }
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) Option {
	return func(o *Options) { o.BaseURL = url }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// WithTimeout bounds each Generate call.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithHTTPClient sets the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{
		MaxTokens: 1024,
		Timeout:   config.DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Timeout <= 0 {
		o.Timeout = config.DefaultRequestTimeout
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	return o
}

// New builds the generator selected by cfg.LLM.Provider.
func New(cfg *config.Config, extra ...Option) (Generator, error) {
	opts := []Option{
		WithModel(cfg.LLM.Model),
		WithTemperature(cfg.LLM.Temperature),
		WithMaxTokens(cfg.LLM.MaxTokens),
		WithTimeout(cfg.Timeouts.Request.Duration()),
	}

	switch cfg.LLM.Provider {
	case "openai", "":
		opts = append(opts, WithAPIKey(cfg.OpenAI.APIKey), WithBaseURL(cfg.OpenAI.BaseURL))
		return NewOpenAI(append(opts, extra...)...)
	case "anthropic":
		if cfg.LLM.Model == config.DefaultChatModel {
			opts = append(opts, WithModel(config.DefaultAnthropicModel))
		}
		opts = append(opts, WithAPIKey(cfg.Anthropic.APIKey), WithBaseURL(cfg.Anthropic.BaseURL))
		return NewAnthropic(append(opts, extra...)...)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.LLM.Provider)
	}
}
