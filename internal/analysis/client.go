package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/truthlens/internal/llm"
	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
)

// ServiceName identifies the scoring service in errors and logs
const ServiceName = "analysis"

const defaultFetchTimeout = 10 * time.Second

// fetchShare is the largest fraction of the remaining deadline a page fetch may use
const fetchShare = 3

// PageFetcher extracts readable text from a submitted URL
type PageFetcher interface {
	Excerpt(ctx context.Context, url string) (string, error)
}

// Client calls the structured-scoring model. Its failures are fatal to a
// submission; there is no fallback analysis.
type Client struct {
	provider     llm.Provider
	model        string
	fetcher      PageFetcher
	fetchTimeout time.Duration
	logger       *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithModel overrides the provider's configured model
func WithModel(name string) Option {
	return func(c *Client) { c.model = name }
}

// WithFetcher enables page extraction for URL submissions
func WithFetcher(f PageFetcher) Option {
	return func(c *Client) { c.fetcher = f }
}

// WithFetchTimeout bounds the page fetch; it is further capped to a third
// of whatever deadline the analysis call has left
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) { c.fetchTimeout = d }
}

// WithLogger sets the logger; nil discards
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an analysis client over provider
func NewClient(provider llm.Provider, opts ...Option) *Client {
	c := &Client{provider: provider, fetchTimeout: defaultFetchTimeout}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// Analyze scores a submission.
// Errors are *model.ValidationError, *model.ServiceError, *model.ParseError,
// or a wrapped context error when ctx ends first.
func (c *Client) Analyze(ctx context.Context, sub model.Submission) (*model.AnalysisResult, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if c.provider == nil {
		return nil, model.NewServiceError(ServiceName, 0, "analysis provider is not configured", nil)
	}

	c.logger.Debug("analyzing content", "contentType", sub.ContentType, "preview", model.Preview(sub.Content))

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		System: systemPrompt,
		Prompt: buildUserMessage(sub, c.excerpt(ctx, sub)),
		Model:  c.model,
	})
	if err != nil {
		c.logger.Error("analysis request failed", "provider", c.provider.Name(), "err", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", ServiceName, ctxErr)
		}
		return nil, llm.ServiceError(ServiceName, err)
	}

	result, err := ParseResult(resp.Content)
	if err != nil {
		c.logger.Error("failed to parse analysis result", "err", err)
		return nil, err
	}
	return result, nil
}

// excerpt fetches page text for URL submissions; failures only warn
// Reachable reports whether the analysis provider answers. It is meant for
// health checks; no tokens are spent where the provider allows it.
func (c *Client) Reachable(ctx context.Context) bool {
	if c.provider == nil {
		return false
	}
	ok := c.provider.IsAvailable(ctx)
	if !ok {
		c.logger.Warn("analysis provider unreachable", "provider", c.provider.Name())
	}
	return ok
}

func (c *Client) excerpt(ctx context.Context, sub model.Submission) string {
	if c.fetcher == nil || sub.ContentType != model.ContentTypeURL {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, c.fetchBudget(ctx))
	defer cancel()

	text, err := c.fetcher.Excerpt(ctx, sub.Content)
	if err != nil {
		c.logger.Warn("page fetch failed, analyzing URL only", "url", sub.Content, "err", err)
		return ""
	}
	return text
}

func (c *Client) fetchBudget(ctx context.Context) time.Duration {
	budget := c.fetchTimeout
	if budget <= 0 {
		budget = defaultFetchTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if share := time.Until(deadline) / fetchShare; share < budget {
			budget = share
		}
	}
	return budget
}

// wireResult accepts fractional scores, which some models emit
type wireResult struct {
	CredibilityScore       *float64               `json:"credibilityScore"`
	CredibilityLevel       model.CredibilityLevel `json:"credibilityLevel"`
	Reasons                []string               `json:"reasons"`
	CriticalThinkingPrompt string                 `json:"criticalThinkingPrompt"`
	SharingAdvice          model.SharingAdvice    `json:"sharingAdvice"`
	ChecklistResults       model.ChecklistResults `json:"checklistResults"`
}

// ParseResult decodes a raw model reply into a validated AnalysisResult.
// Markdown code fences around the JSON are tolerated.
func ParseResult(raw string) (*model.AnalysisResult, error) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return nil, &model.ParseError{Service: ServiceName, Raw: raw, Err: errors.New("no response from AI")}
	}

	var w wireResult
	if err := json.Unmarshal([]byte(cleaned), &w); err != nil {
		return nil, &model.ParseError{Service: ServiceName, Raw: raw, Err: fmt.Errorf("decode JSON: %w", err)}
	}
	if w.CredibilityScore == nil {
		return nil, &model.ParseError{Service: ServiceName, Raw: raw, Err: errors.New("credibilityScore missing")}
	}

	result := &model.AnalysisResult{
		CredibilityScore:       int(math.Round(*w.CredibilityScore)),
		CredibilityLevel:       w.CredibilityLevel,
		Reasons:                w.Reasons,
		CriticalThinkingPrompt: w.CriticalThinkingPrompt,
		SharingAdvice:          w.SharingAdvice,
		ChecklistResults:       w.ChecklistResults,
	}
	if result.Reasons == nil {
		result.Reasons = []string{}
	}

	if err := result.Validate(); err != nil {
		return nil, &model.ParseError{Service: ServiceName, Raw: raw, Err: err}
	}

	result.SharingTone = result.SharingAdvice.Tone()
	return result, nil
}

// StripFences removes ```json and ``` markers anywhere in s
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json\n", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
