// Package generator is the AI boundary: it turns free-text tracking
// requirements into a canonical spec with a single blocking chat-completion
// round trip. There is no retry or backoff; failures surface immediately to
// the caller.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/planforge/planforge/internal/spec"
	"github.com/planforge/planforge/internal/tokens"
)

// Option configures a Generator.
type Option func(*Generator)

// WithBaseURL points the client at a non-default API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(g *Generator) { g.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient sets a custom HTTP client (used by recorded tests).
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) { g.httpClient = client }
}

// WithLogger sets the logger used for per-call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// Generator produces canonical specs from free text.
type Generator struct {
	client     *openai.Client
	model      string
	baseURL    string
	httpClient *http.Client
	counter    *tokens.Counter
	logger     *slog.Logger
}

// New creates a Generator for the given API key and model.
func New(apiKey, model string, opts ...Option) *Generator {
	g := &Generator{
		model:  model,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	cfg := openai.DefaultConfig(apiKey)
	if g.baseURL != "" {
		cfg.BaseURL = g.baseURL
	}
	if g.httpClient != nil {
		cfg.HTTPClient = g.httpClient
	}
	g.client = openai.NewClientWithConfig(cfg)
	g.counter = tokens.NewCounter(model)
	return g
}

// GenerateCanonical produces a canonical spec from a free-text description of
// tracking needs.
func (g *Generator) GenerateCanonical(ctx context.Context, text string) (*spec.CanonicalSpec, error) {
	prompt := systemPrompt
	count, estimated := g.counter.Count(prompt + text)
	g.logger.Info("generating canonical spec",
		slog.String("model", g.model),
		slog.Int("prompt_tokens", count),
		slog.Bool("estimated", estimated),
	)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generator call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generator returned no choices")
	}

	return ParseCanonical(resp.Choices[0].Message.Content)
}

// ParseCanonical decodes a generator response into a canonical spec. The
// only tolerance applied is stripping a Markdown code fence; anything else
// malformed is an error for the caller.
func ParseCanonical(content string) (*spec.CanonicalSpec, error) {
	content = stripFence(content)

	var s spec.CanonicalSpec
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("generator returned invalid spec JSON: %w", err)
	}
	if s.Metadata.Title == "" && len(s.Events) == 0 {
		return nil, fmt.Errorf("generator response is missing required input")
	}
	if s.Metadata.Status == "" {
		s.Metadata.Status = spec.StatusDraft
	}
	return &s, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
