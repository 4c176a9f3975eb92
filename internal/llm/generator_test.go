package llm

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

func TestNewOptions_Defaults(t *testing.T) {
	o := NewOptions(WithMaxTokens(-1), WithTimeout(0))
	assert.Equal(t, 1024, o.MaxTokens)
	assert.Equal(t, config.DefaultRequestTimeout, o.Timeout)
}

func TestNew_SelectsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Anthropic.APIKey = "ak-test"

	g, err := New(cfg)
	require.NoError(t, err)
	require.IsType(t, &OpenAI{}, g)
	assert.Equal(t, config.DefaultChatModel, g.(*OpenAI).options.Model)

	cfg.LLM.Provider = "anthropic"
	g, err = New(cfg)
	require.NoError(t, err)
	require.IsType(t, &Anthropic{}, g)
	assert.Equal(t, config.DefaultAnthropicModel, g.(*Anthropic).options.Model)

	cfg.LLM.Provider = "mystery"
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_MissingKey(t *testing.T) {
	_, err := NewOpenAI()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewAnthropic()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpenAITemperature(t *testing.T) {
	assert.Equal(t, float32(math.SmallestNonzeroFloat32), openAITemperature(0))
	assert.Equal(t, float32(0.5), openAITemperature(0.5))
}

func TestOpenAI_Generate(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"It parses refs."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g, err := NewOpenAI(WithAPIKey("sk-test"), WithBaseURL(srv.URL+"/v1"), WithMaxTokens(256))
	require.NoError(t, err)

	reply, err := g.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "Answer from context."},
		{Role: RoleUser, Content: "What does it do?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "It parses refs.", reply)

	assert.Equal(t, config.DefaultChatModel, got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	assert.Less(t, got.Temperature, 1e-30, "zero temperature is sent explicitly")
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "What does it do?", got.Messages[1].Content)
}

func TestOpenAI_Generate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	g, err := NewOpenAI(WithAPIKey("sk-test"), WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var rerr *v1.RemoteAPIError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "openai", rerr.Service)
	assert.Equal(t, http.StatusUnauthorized, rerr.StatusCode)
}

func TestOpenAI_Generate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	g, err := NewOpenAI(WithAPIKey("sk-test"), WithBaseURL(srv.URL+"/v1"), WithTimeout(30*time.Millisecond))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var rerr *v1.RemoteAPIError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 0, rerr.StatusCode)
}

func TestAnthropic_Generate(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",` +
			`"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],` +
			`"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	g, err := NewAnthropic(WithAPIKey("ak-test"), WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	reply, err := g.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "Be brief."},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply)
	assert.Equal(t, config.DefaultAnthropicModel, got.Model)
	require.Len(t, got.System, 1)
	assert.Equal(t, "Be brief.", got.System[0].Text)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestAnthropic_Generate_APIError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	g, err := NewAnthropic(WithAPIKey("ak-test"), WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var rerr *v1.RemoteAPIError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "anthropic", rerr.Service)
	assert.Equal(t, http.StatusTooManyRequests, rerr.StatusCode)
	assert.Equal(t, 1, calls, "requests are not retried")
}

func TestAnthropic_Generate_NoUserMessage(t *testing.T) {
	g, err := NewAnthropic(WithAPIKey("ak-test"))
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), []Message{{Role: RoleSystem, Content: "x"}})
	assert.Error(t, err)
}
