package llm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

const openAIService = "openai"

// OpenAI generates replies with the chat completions API.
type OpenAI struct {
	client  *openai.Client
	options Options
}

// NewOpenAI returns an OpenAI chat generator.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	o := NewOptions(opts...)
	if !o.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: openai api key required", ErrInvalidConfig)
	}
	if o.Model == "" {
		o.Model = config.DefaultChatModel
	}

	oc := openai.DefaultConfig(o.APIKey.Value())
	if o.BaseURL != "" {
		oc.BaseURL = o.BaseURL
	}
	if o.HTTPClient != nil {
		oc.HTTPClient = o.HTTPClient
	}

	return &OpenAI{client: openai.NewClientWithConfig(oc), options: o}, nil
}

// Generate implements Generator.
func (g *OpenAI) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages")
	}

	req := openai.ChatCompletionRequest{
		Model:       g.options.Model,
		MaxTokens:   g.options.MaxTokens,
		Temperature: openAITemperature(g.options.Temperature),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	ctx, cancel := context.WithTimeout(ctx, g.options.Timeout)
	defer cancel()

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", openAIError(ctx, err)
	}
	if len(rsp.Choices) == 0 {
		return "", v1.NewRemoteAPIError(openAIService, 0, errors.New("no choices in response"))
	}
	return rsp.Choices[0].Message.Content, nil
}

// openAITemperature keeps an explicit zero on the wire; go-openai omits a
// zero temperature, which the API reads as 1.
func openAITemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func openAIError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return v1.NewRemoteAPIError(openAIService, 0, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return v1.NewRemoteAPIError(openAIService, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return v1.NewRemoteAPIError(openAIService, reqErr.HTTPStatusCode, err)
	}
	return v1.NewRemoteAPIError(openAIService, 0, err)
}
