package verify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/truthlens/internal/llm"
	"github.com/ppiankov/truthlens/internal/model"
)

type fakeProvider struct {
	resp *llm.CompletionResponse
	err  error
	last llm.CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.last = req
	return f.resp, f.err
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
}

func TestVerify_Success(t *testing.T) {
	p := &fakeProvider{resp: &llm.CompletionResponse{
		Content:   "No official report of a dam collapse.",
		Citations: []string{"https://a.example/news"},
	}}
	c := NewClient(p, WithSearchRecency("month"), WithClock(fixedClock))

	ws, err := c.Verify(context.Background(), model.Submission{Content: "Breaking: dam collapse reported", ContentType: model.ContentTypeText})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if len(ws.Citations) != 1 || ws.Citations[0] != "https://a.example/news" {
		t.Errorf("Unexpected citations: %v", ws.Citations)
	}
	if ws.SearchSummary != "No official report of a dam collapse." {
		t.Errorf("Unexpected summary: %q", ws.SearchSummary)
	}
	if ws.VerifiedAt != "2026-03-01T11:00:00Z" {
		t.Errorf("Expected UTC RFC3339 timestamp, got %s", ws.VerifiedAt)
	}
	if p.last.SearchRecency != "month" {
		t.Errorf("Expected recency filter to be forwarded, got %q", p.last.SearchRecency)
	}
}

func TestVerify_Defaults(t *testing.T) {
	c := NewClient(&fakeProvider{resp: &llm.CompletionResponse{}}, WithClock(fixedClock))

	ws, err := c.Verify(context.Background(), model.Submission{Content: "claim", ContentType: model.ContentTypeText})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ws.Citations == nil || len(ws.Citations) != 0 {
		t.Errorf("Expected empty, non-nil citations, got %#v", ws.Citations)
	}
	if ws.SearchSummary != "" {
		t.Errorf("Expected empty summary, got %q", ws.SearchSummary)
	}
	if ws.VerifiedAt == "" {
		t.Error("Expected verifiedAt to be stamped")
	}
}

func TestVerify_Errors(t *testing.T) {
	c := NewClient(&fakeProvider{err: &llm.StatusError{Provider: "fake", StatusCode: 429}})
	_, err := c.Verify(context.Background(), model.Submission{Content: "claim", ContentType: model.ContentTypeText})

	var se *model.ServiceError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("Expected rate-limited ServiceError, got %v", err)
	}

	disabled := NewClient(nil)
	if disabled.Enabled() {
		t.Error("Expected client without provider to be disabled")
	}
	if _, err := disabled.Verify(context.Background(), model.Submission{Content: "claim", ContentType: model.ContentTypeText}); !errors.As(err, &se) {
		t.Errorf("Expected ServiceError from disabled client, got %v", err)
	}

	_, err = c.Verify(context.Background(), model.Submission{ContentType: model.ContentTypeText})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("Expected ValidationError for empty content, got %v", err)
	}
}

func TestBuildQuery(t *testing.T) {
	url := BuildQuery(model.Submission{Content: "https://x.example/a", ContentType: model.ContentTypeURL})
	if !strings.HasPrefix(url, "Fact check and verify information from this source: https://x.example/a.") {
		t.Errorf("Unexpected URL query: %s", url)
	}

	long := strings.Repeat("a", 700)
	text := BuildQuery(model.Submission{Content: long, ContentType: model.ContentTypeText})
	if strings.Contains(text, strings.Repeat("a", MaxQueryChars+1)) {
		t.Error("Expected text to be truncated")
	}
	if !strings.Contains(text, `"`+strings.Repeat("a", MaxQueryChars)+`"`) {
		t.Error("Expected the first 500 characters quoted in the query")
	}
}

func TestVerify_InBandUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": "search backend unavailable"}`))
	}))
	defer server.Close()

	provider, err := llm.NewPerplexityProvider(llm.Config{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewPerplexityProvider failed: %v", err)
	}

	ws, err := NewClient(provider).Verify(context.Background(), model.Submission{Content: "claim", ContentType: model.ContentTypeText})
	var se *model.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("Expected ServiceError, got %+v (%v)", ws, err)
	}
	if se.Service != ServiceName || se.Message != "search backend unavailable" {
		t.Errorf("Unexpected service error %+v", se)
	}
}
