package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// PerplexityProvider implements search-augmented chat. Unlike plain chat
// providers it returns the URLs consulted during search as Citations.
type PerplexityProvider struct {
	api    jsonEndpoint
	apiKey string
	config Config
}

type perplexityRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	Temperature         float32       `json:"temperature,omitempty"`
	SearchRecencyFilter string        `json:"search_recency_filter,omitempty"`
}

type perplexityResponse struct {
	Model     string          `json:"model"`
	Citations []string        `json:"citations"`
	Error     json.RawMessage `json:"error"`
	Choices   []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewPerplexityProvider creates a new Perplexity provider
func NewPerplexityProvider(config Config) (*PerplexityProvider, error) {
	if err := requireKey(config, "Perplexity"); err != nil {
		return nil, err
	}
	client, err := newHTTPClient(config, 30*time.Second)
	if err != nil {
		return nil, err
	}

	return &PerplexityProvider{
		api: jsonEndpoint{
			provider: "perplexity",
			baseURL:  baseURLOr(config.BaseURL, "https://api.perplexity.ai"),
			client:   client,
			headers:  map[string]string{"Authorization": "Bearer " + config.APIKey},
		},
		apiKey: config.APIKey,
		config: config,
	}, nil
}

// Name returns the provider name
func (p *PerplexityProvider) Name() string {
	return "perplexity"
}

// IsAvailable reports whether a key is configured. Perplexity has no free
// probe endpoint, so no request is made.
func (p *PerplexityProvider) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}

// Complete runs a search-augmented completion
func (p *PerplexityProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	in := perplexityRequest{
		Model:               p.config.model(req, "sonar"),
		Messages:            messages,
		Temperature:         req.Temperature,
		SearchRecencyFilter: req.SearchRecency,
	}
	if req.MaxTokens > 0 {
		in.MaxTokens = req.MaxTokens
	}

	var out perplexityResponse
	if err := p.api.call(ctx, http.MethodPost, "/chat/completions", in, &out); err != nil {
		return nil, err
	}
	if msg := payloadError(out.Error); msg != "" {
		return nil, &StatusError{Provider: p.api.provider, StatusCode: http.StatusOK, Message: msg}
	}

	resp := &CompletionResponse{
		Citations:  out.Citations,
		Model:      out.Model,
		TokensUsed: out.Usage.TotalTokens,
	}
	if len(out.Choices) > 0 {
		resp.Content = strings.TrimSpace(out.Choices[0].Message.Content)
	}
	return resp, nil
}
