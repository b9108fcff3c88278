// Package verify runs a best-effort, citation-backed fact check of a
// submission through a search-augmented model.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/truthlens/internal/llm"
	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
)

// ServiceName identifies the verification service in errors and logs
const ServiceName = "verification"

// MaxQueryChars bounds how much of a text submission goes into the search query
const MaxQueryChars = 500

const systemPrompt = "You are a fact-checking assistant. Search the web for relevant fact-checks, news reports, " +
	"and official sources to verify the given claim or content. Be concise and factual. " +
	"Focus on finding credible sources that either support or contradict the claim."

// Client calls the search-augmented fact-check model
type Client struct {
	provider llm.Provider
	model    string
	recency  string
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithModel overrides the provider's configured model
func WithModel(name string) Option {
	return func(c *Client) { c.model = name }
}

// WithSearchRecency restricts search results ("day", "week", "month", ...)
func WithSearchRecency(recency string) Option {
	return func(c *Client) { c.recency = recency }
}

// WithLogger sets the logger; nil discards
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock replaces time.Now for verifiedAt stamps
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a verification client. A nil provider yields a client
// whose every call fails, which callers treat as "no web sources".
func NewClient(provider llm.Provider, opts ...Option) *Client {
	c := &Client{provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// Enabled reports whether a provider is configured
func (c *Client) Enabled() bool {
	return c != nil && c.provider != nil
}

// Verify searches for fact-checks about a submission.
// Errors are *model.ValidationError or *model.ServiceError.
func (c *Client) Verify(ctx context.Context, sub model.Submission) (*model.WebSources, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if !c.Enabled() {
		return nil, model.NewServiceError(ServiceName, 0, "verification provider is not configured", nil)
	}

	query := BuildQuery(sub)
	c.logger.Debug("verification search", "query", model.Preview(query))

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		System:        systemPrompt,
		Prompt:        query,
		Model:         c.model,
		SearchRecency: c.recency,
	})
	if err != nil {
		return nil, llm.ServiceError(ServiceName, err)
	}

	sources := &model.WebSources{
		Citations:     resp.Citations,
		SearchSummary: resp.Content,
		VerifiedAt:    c.now().UTC().Format(time.RFC3339),
	}
	if sources.Citations == nil {
		sources.Citations = []string{}
	}
	return sources, nil
}

// BuildQuery renders the search query for a submission. Text submissions
// are cut to MaxQueryChars characters.
func BuildQuery(sub model.Submission) string {
	if sub.ContentType == model.ContentTypeURL {
		return fmt.Sprintf("Fact check and verify information from this source: %s. "+
			"Find any fact-checks, news reports, or official statements about claims from this URL.", sub.Content)
	}

	content := sub.Content
	if runes := []rune(content); len(runes) > MaxQueryChars {
		content = string(runes[:MaxQueryChars])
	}
	return fmt.Sprintf("Fact check and verify the following claim or information: \"%s\". "+
		"Find fact-checks, news reports, or official statements that confirm or debunk this.", content)
}
