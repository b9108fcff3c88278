package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
)

var (
	// ErrBusy is returned by Submit and Show while a submission is loading
	ErrBusy = errors.New("a submission is already in progress")

	// ErrDiscarded is returned by Submit when Reset ran before the submission finished
	ErrDiscarded = errors.New("submission discarded by reset")
)

// State is the orchestrator lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Snapshot is a consistent view of the orchestrator
type Snapshot struct {
	State      State                 `json:"state"`
	Submission *model.Submission     `json:"submission,omitempty"`
	Result     *model.AnalysisResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Runner executes one submission end to end
type Runner interface {
	Run(ctx context.Context, sub model.Submission) (*model.AnalysisResult, error)
}

// ResultObserver is notified after each successful submission
type ResultObserver interface {
	ObserveResult(ctx context.Context, sub model.Submission, result model.AnalysisResult)
}

// ObserverFunc adapts a function to ResultObserver
type ObserverFunc func(ctx context.Context, sub model.Submission, result model.AnalysisResult)

// ObserveResult calls f
func (f ObserverFunc) ObserveResult(ctx context.Context, sub model.Submission, result model.AnalysisResult) {
	f(ctx, sub, result)
}

// Orchestrator owns the Idle → Loading → Success/Error state machine
type Orchestrator struct {
	runner    Runner
	observers []ResultObserver
	logger    *log.Logger

	mu         sync.Mutex
	state      State
	submission *model.Submission
	result     *model.AnalysisResult
	errMsg     string
	generation uint64
}

// NewOrchestrator creates an orchestrator in the Idle state
func NewOrchestrator(runner Runner, logger *log.Logger, observers ...ResultObserver) *Orchestrator {
	return &Orchestrator{
		runner:    runner,
		observers: observers,
		logger:    logging.OrDiscard(logger),
		state:     StateIdle,
	}
}

// Submit runs a submission. Invalid submissions are rejected without a
// state change; a submission while Loading returns ErrBusy.
func (o *Orchestrator) Submit(ctx context.Context, sub model.Submission) (*model.AnalysisResult, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.state == StateLoading {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.generation++
	gen := o.generation
	o.state = StateLoading
	o.submission = &sub
	o.result = nil
	o.errMsg = ""
	o.mu.Unlock()

	o.logger.Info("checking content", "contentType", sub.ContentType, "preview", model.Preview(sub.Content))

	result, err := o.runner.Run(ctx, sub)

	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		o.logger.Debug("discarding result of reset submission")
		return nil, ErrDiscarded
	}
	if err != nil {
		o.state = StateError
		o.errMsg = ErrorMessage(err)
		o.mu.Unlock()
		o.logger.Error("check failed", "err", err)
		return nil, err
	}
	o.state = StateSuccess
	o.result = result
	o.mu.Unlock()

	observeCtx := context.WithoutCancel(ctx)
	for _, obs := range o.observers {
		obs.ObserveResult(observeCtx, sub, *result)
	}
	return result, nil
}

// Reset clears result and error and returns to Idle from any state.
// An in-flight submission finishes but its outcome is discarded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.generation++
	o.state = StateIdle
	o.submission = nil
	o.result = nil
	o.errMsg = ""
}

// Show displays a previously computed result without re-running it
func (o *Orchestrator) Show(sub model.Submission, result model.AnalysisResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateLoading {
		return ErrBusy
	}
	o.state = StateSuccess
	o.submission = &sub
	o.result = &result
	o.errMsg = ""
	return nil
}

// Snapshot returns the current state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Snapshot{
		State:      o.state,
		Submission: o.submission,
		Result:     o.result,
		Error:      o.errMsg,
	}
}

// ErrorMessage extracts the user-visible message for a failed submission
func ErrorMessage(err error) string {
	var (
		ve *model.ValidationError
		se *model.ServiceError
		pe *model.ParseError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &se):
		return se.Message
	case errors.As(err, &pe):
		return "Failed to parse analysis result"
	default:
		return "Failed to analyze content"
	}
}
