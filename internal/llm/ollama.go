package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider talks to a local Ollama daemon
type OllamaProvider struct {
	api    jsonEndpoint
	config Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// NewOllamaProvider creates a new Ollama provider. No key is needed.
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	// local models are slow to warm up
	client, err := newHTTPClient(config, 60*time.Second)
	if err != nil {
		return nil, err
	}

	return &OllamaProvider{
		api: jsonEndpoint{
			provider: "ollama",
			baseURL:  baseURLOr(config.BaseURL, "http://localhost:11434"),
			client:   client,
		},
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable reports whether the daemon answers its model listing
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	return p.api.call(ctx, http.MethodGet, "/api/tags", nil, nil) == nil
}

// Complete generates a reply in JSON mode; every caller expects a JSON document.
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.config.model(req, "")
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	in := ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Format: "json",
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  p.config.maxTokens(req),
		},
	}

	var out ollamaResponse
	if err := p.api.call(ctx, http.MethodPost, "/api/generate", in, &out); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(out.Response)
	tokens := out.PromptEvalCount + out.EvalCount
	if tokens == 0 {
		// about four characters per token
		tokens = (len(req.Prompt) + len(content)) / 4
	}

	return &CompletionResponse{
		Content:    content,
		Model:      out.Model,
		TokensUsed: tokens,
	}, nil
}
