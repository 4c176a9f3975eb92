package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

const anthropicService = "anthropic"

// Anthropic generates replies with the Messages API.
type Anthropic struct {
	client  anthropic.Client
	options Options
}

// NewAnthropic returns an Anthropic generator. SDK retries are disabled.
func NewAnthropic(opts ...Option) (*Anthropic, error) {
	o := NewOptions(opts...)
	if !o.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: anthropic api key required", ErrInvalidConfig)
	}
	if o.Model == "" {
		o.Model = config.DefaultAnthropicModel
	}

	ro := []option.RequestOption{
		option.WithAPIKey(o.APIKey.Value()),
		option.WithMaxRetries(0),
	}
	if o.BaseURL != "" {
		ro = append(ro, option.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		ro = append(ro, option.WithHTTPClient(o.HTTPClient))
	}

	return &Anthropic{client: anthropic.NewClient(ro...), options: o}, nil
}

// Generate implements Generator. System messages are joined into the
// request's system prompt.
func (g *Anthropic) Generate(ctx context.Context, messages []Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.options.Model),
		MaxTokens:   int64(g.options.MaxTokens),
		Temperature: anthropic.Float(g.options.Temperature),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(params.Messages) == 0 {
		return "", errors.New("no user messages")
	}

	ctx, cancel := context.WithTimeout(ctx, g.options.Timeout)
	defer cancel()

	rsp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", anthropicError(ctx, err)
	}

	var b strings.Builder
	for _, block := range rsp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String(), nil
}

func anthropicError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return v1.NewRemoteAPIError(anthropicService, 0, err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return v1.NewRemoteAPIError(anthropicService, apiErr.StatusCode, err)
	}
	return v1.NewRemoteAPIError(anthropicService, 0, err)
}
