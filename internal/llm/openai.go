package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/errors"
)

// OpenAIClient talks to an OpenAI-compatible chat-completions API over
// plain HTTP. No SDK: the two endpoints this system needs are small
// enough to call directly, and a hand-rolled client keeps the dependency
// surface flat.
type OpenAIClient struct {
	apiKey         string
	model          string
	embeddingModel string
	baseURL        string
	httpClient     *http.Client
	logger         zerolog.Logger
}

// NewOpenAIClient builds a client from configuration.
// The config timeout bounds each HTTP call end to end; there is no
// per-call override, matching the single-timeout model of this system.
func NewOpenAIClient(cfg config.LLMConfig, logger zerolog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.ErrAPIKeyMissing
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultLLMTimeout
	}
	return &OpenAIClient{
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger.With().Str("component", "llm").Logger(),
	}, nil
}

// wire types for the chat-completions endpoint.

type chatWireRequest struct {
	Model       string            `json:"model"`
	Messages    []chatWireMessage `json:"messages"`
	Tools       []chatWireTool    `json:"tools,omitempty"`
	Temperature float64           `json:"temperature"`
}

type chatWireMessage struct {
	Role       string             `json:"role"`
	Content    string             `json:"content"`
	ToolCalls  []chatWireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
}

type chatWireTool struct {
	Type     string           `json:"type"`
	Function chatWireFunction `json:"function"`
}

type chatWireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatWireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatWireResponse struct {
	Choices []struct {
		Message chatWireMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends one chat-completions request and returns the reply.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	wire := chatWireRequest{
		Model:       c.model,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		wm := chatWireMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			wtc := chatWireToolCall{ID: tc.ID, Type: "function"}
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = tc.Arguments
			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}
		wire.Messages = append(wire.Messages, wm)
	}
	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, chatWireTool{
			Type: "function",
			Function: chatWireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	var resp chatWireResponse
	if err := c.postJSON(ctx, "/v1/chat/completions", wire, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrLLMInvocation, err.Error())
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrLLMInvocation, "no choices in response")
	}

	msg := resp.Choices[0].Message
	out := &ChatResponse{Content: msg.Content}
	for _, wtc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        wtc.ID,
			Name:      wtc.Function.Name,
			Arguments: wtc.Function.Arguments,
		})
	}
	return out, nil
}

// Complete is the single-prompt convenience form of Chat.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Chat(ctx, ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// wire types for the embeddings endpoint.

type embedWireRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedWireResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one embedding vector per input text, in input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedWireResponse
	req := embedWireRequest{Model: c.embeddingModel, Input: texts}
	if err := c.postJSON(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrLLMInvocation, err.Error())
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Wrapf(errors.ErrLLMInvocation,
			"embedding count mismatch: want %d, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, errors.Wrapf(errors.ErrLLMInvocation,
				"embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// postJSON marshals body, POSTs it to path, and decodes the 2xx response
// into out. Non-2xx statuses become errors carrying the provider's
// error payload when one is present.
func (c *OpenAIClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = res.Body.Close() }()

	c.logger.Debug().
		Str("path", path).
		Int("status", res.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("model call completed")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%s returned status %d: %s", path, res.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsRetryable reports whether a model-call error is worth retrying.
// Auth and request-shape failures are permanent; rate limits, 5xx, and
// transport errors are transient. Intended for use with retry.Policy.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status 401"), strings.Contains(msg, "status 403"):
		return false
	case strings.Contains(msg, "status 400"), strings.Contains(msg, "api key"):
		return false
	case strings.Contains(msg, "status 429"), strings.Contains(msg, "status 5"):
		return true
	default:
		// Transport-level failures (connection reset, DNS) are transient.
		return true
	}
}

// Compile-time check that OpenAIClient implements Client.
var _ Client = (*OpenAIClient)(nil)
