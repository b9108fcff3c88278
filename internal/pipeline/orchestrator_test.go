package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/truthlens/internal/analysis"
	"github.com/ppiankov/truthlens/internal/history"
	"github.com/ppiankov/truthlens/internal/llm"
	"github.com/ppiankov/truthlens/internal/model"
)

func TestOrchestrator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := history.Open(ctx, history.NewMemoryBackend(), "", nil)

	v := &stubVerifier{sources: &model.WebSources{Citations: []string{"https://a.example/news"}, VerifiedAt: "2026-01-01T00:00:00Z"}}
	a := &stubAnalyzer{result: sampleResult(40, model.LevelMedium, model.AdviceVerify)}
	o := NewOrchestrator(New(v, a, Options{}), nil, store)

	if o.Snapshot().State != StateIdle {
		t.Fatalf("Expected Idle initially, got %s", o.Snapshot().State)
	}

	res, err := o.Submit(ctx, textSub)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(res.WebSources.Citations) != 1 {
		t.Errorf("Expected 1 citation, got %d", len(res.WebSources.Citations))
	}
	if res.CredibilityLevel != model.LevelMedium {
		t.Errorf("Expected Medium, got %s", res.CredibilityLevel)
	}

	snap := o.Snapshot()
	if snap.State != StateSuccess || snap.Result == nil || snap.Error != "" {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}

	entries := store.List()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(entries))
	}
	if entries[0].ContentPreview != textSub.Content {
		t.Errorf("Expected unmodified preview, got %q", entries[0].ContentPreview)
	}
	if entries[0].Result.WebSources == nil {
		t.Error("Expected history entry to embed web sources")
	}
}

func TestOrchestrator_AnalysisFailureClearsPriorResult(t *testing.T) {
	ctx := context.Background()
	a := &stubAnalyzer{result: sampleResult(70, model.LevelHigh, model.AdviceSafe)}

	var saved int
	obs := ObserverFunc(func(ctx context.Context, sub model.Submission, result model.AnalysisResult) { saved++ })
	o := NewOrchestrator(New(nil, a, Options{}), nil, obs)

	if _, err := o.Submit(ctx, textSub); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	a.err = model.NewServiceError("analysis", 429, "", nil)
	if _, err := o.Submit(ctx, textSub); err == nil {
		t.Fatal("Expected error from second Submit")
	}

	snap := o.Snapshot()
	if snap.State != StateError {
		t.Errorf("Expected Error state, got %s", snap.State)
	}
	if snap.Result != nil {
		t.Error("Expected prior result to be cleared")
	}
	if snap.Error != "Rate limit exceeded. Please try again later." {
		t.Errorf("Unexpected error message %q", snap.Error)
	}
	if saved != 1 {
		t.Errorf("Expected only the successful submit to be observed, got %d", saved)
	}
}

func TestOrchestrator_VerificationFailureStillSucceeds(t *testing.T) {
	v := &stubVerifier{err: errors.New("perplexity down")}
	a := &stubAnalyzer{result: sampleResult(55, model.LevelMedium, model.AdviceVerify)}
	o := NewOrchestrator(New(v, a, Options{}), nil)

	res, err := o.Submit(context.Background(), textSub)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.WebSources != nil {
		t.Error("Expected web sources to be absent")
	}
	if o.Snapshot().State != StateSuccess {
		t.Errorf("Expected Success, got %s", o.Snapshot().State)
	}
}

// blockingRunner holds Run until release is closed
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	result  *model.AnalysisResult
}

func (b *blockingRunner) Run(ctx context.Context, sub model.Submission) (*model.AnalysisResult, error) {
	close(b.started)
	<-b.release
	return b.result, nil
}

func TestOrchestrator_BusyWhileLoading(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}), release: make(chan struct{}), result: sampleResult(50, model.LevelMedium, model.AdviceVerify)}
	o := NewOrchestrator(r, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = o.Submit(context.Background(), textSub)
	}()
	<-r.started

	if o.Snapshot().State != StateLoading {
		t.Fatalf("Expected Loading, got %s", o.Snapshot().State)
	}
	if _, err := o.Submit(context.Background(), textSub); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if err := o.Show(textSub, *r.result); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected Show to be refused while loading, got %v", err)
	}

	close(r.release)
	wg.Wait()

	if o.Snapshot().State != StateSuccess {
		t.Errorf("Expected Success after release, got %s", o.Snapshot().State)
	}
}

func TestOrchestrator_ResetDiscardsInFlight(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}), release: make(chan struct{}), result: sampleResult(50, model.LevelMedium, model.AdviceVerify)}

	var observed int
	o := NewOrchestrator(r, nil, ObserverFunc(func(ctx context.Context, sub model.Submission, result model.AnalysisResult) { observed++ }))

	errCh := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), textSub)
		errCh <- err
	}()
	<-r.started

	o.Reset()
	if o.Snapshot().State != StateIdle {
		t.Fatalf("Expected Idle after reset, got %s", o.Snapshot().State)
	}

	close(r.release)
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrDiscarded) {
			t.Errorf("Expected ErrDiscarded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit did not return")
	}

	if snap := o.Snapshot(); snap.State != StateIdle || snap.Result != nil {
		t.Errorf("Expected discarded result, got %+v", snap)
	}
	if observed != 0 {
		t.Error("Discarded results must not be observed")
	}
}

func TestOrchestrator_ResetAndShow(t *testing.T) {
	a := &stubAnalyzer{err: &model.ParseError{Service: "analysis", Err: errors.New("bad json")}}
	o := NewOrchestrator(New(nil, a, Options{}), nil)

	_, _ = o.Submit(context.Background(), textSub)
	if got := o.Snapshot().Error; got != "Failed to parse analysis result" {
		t.Errorf("Unexpected parse error message %q", got)
	}

	o.Reset()
	if snap := o.Snapshot(); snap.State != StateIdle || snap.Error != "" {
		t.Errorf("Expected clean Idle, got %+v", snap)
	}

	past := *sampleResult(90, model.LevelHigh, model.AdviceSafe)
	if err := o.Show(textSub, past); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if snap := o.Snapshot(); snap.State != StateSuccess || snap.Result.CredibilityScore != 90 {
		t.Errorf("Expected shown result, got %+v", snap)
	}
	if a.calls.Load() != 1 {
		t.Error("Show must not re-run analysis")
	}
}

func TestOrchestrator_InvalidSubmissionKeepsState(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult(50, model.LevelMedium, model.AdviceVerify)}
	o := NewOrchestrator(New(nil, a, Options{}), nil)

	_, err := o.Submit(context.Background(), model.Submission{ContentType: model.ContentTypeText})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if o.Snapshot().State != StateIdle {
		t.Errorf("Expected Idle, got %s", o.Snapshot().State)
	}
}

// hangingProvider never answers before its context ends
type hangingProvider struct{}

func (hangingProvider) Name() string { return "hanging" }
func (hangingProvider) IsAvailable(ctx context.Context) bool { return true }
func (hangingProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("execute request: %w", ctx.Err())
}

func TestOrchestrator_StepTimeoutReportsTimeout(t *testing.T) {
	runner := New(nil, analysis.NewClient(hangingProvider{}), Options{StepTimeout: 30 * time.Millisecond})
	o := NewOrchestrator(runner, nil)

	_, err := o.Submit(context.Background(), textSub)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}

	snap := o.Snapshot()
	if snap.State != StateError {
		t.Errorf("Expected Error state, got %s", snap.State)
	}
	if snap.Error != "The request timed out. Please try again." {
		t.Errorf("Unexpected error message %q", snap.Error)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&model.ValidationError{Field: "content", Message: "Content is required"}, "Content is required"},
		{model.NewServiceError("analysis", 402, "", nil), "AI credits exhausted. Please add funds to continue."},
		{&model.ParseError{Service: "analysis", Err: errors.New("x")}, "Failed to parse analysis result"},
		{context.DeadlineExceeded, "The request timed out. Please try again."},
		{model.NewServiceError("analysis", 0, "", context.DeadlineExceeded), "The request timed out. Please try again."},
		{errors.New("boom"), "Failed to analyze content"},
	}

	for _, tt := range tests {
		if got := ErrorMessage(tt.err); got != tt.want {
			t.Errorf("ErrorMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
