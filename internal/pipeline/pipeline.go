package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/truthlens/internal/cache"
	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
)

// ErrVerificationDisabled is the verification outcome when no verifier is configured
var ErrVerificationDisabled = errors.New("verification disabled")

// Verifier produces optional web sources for a submission
type Verifier interface {
	Verify(ctx context.Context, sub model.Submission) (*model.WebSources, error)
}

// Analyzer produces the required credibility assessment
type Analyzer interface {
	Analyze(ctx context.Context, sub model.Submission) (*model.AnalysisResult, error)
}

// Outcome is the result of one pipeline step: exactly one of Value or Err is meaningful
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether the step succeeded
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Options configures a Pipeline
type Options struct {
	// Parallel runs verification and analysis concurrently
	Parallel bool

	// StepTimeout bounds each upstream call; zero means no bound
	StepTimeout time.Duration

	// Cache stores merged results keyed by submission; nil disables caching
	Cache    cache.Cache
	CacheTTL time.Duration

	Logger *log.Logger
}

// Pipeline runs the two-step check: best-effort verification, then
// required analysis, then merge. It holds no per-request state.
type Pipeline struct {
	verifier Verifier
	analyzer Analyzer
	opts     Options
	logger   *log.Logger
}

// New creates a pipeline. verifier may be nil when verification is disabled.
func New(verifier Verifier, analyzer Analyzer, opts Options) *Pipeline {
	return &Pipeline{
		verifier: verifier,
		analyzer: analyzer,
		opts:     opts,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// Steps runs both upstream calls and returns their outcomes without merging
func (p *Pipeline) Steps(ctx context.Context, sub model.Submission) (Outcome[*model.WebSources], Outcome[*model.AnalysisResult]) {
	if !p.opts.Parallel {
		v := p.verify(ctx, sub)
		return v, p.analyze(ctx, sub)
	}

	verifyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg sync.WaitGroup
		v  Outcome[*model.WebSources]
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		v = p.verify(verifyCtx, sub)
	}()

	a := p.analyze(ctx, sub)
	if !a.OK() {
		// The result will be discarded anyway
		cancel()
	}
	wg.Wait()
	return v, a
}

// Run checks a submission. Verification failures are logged and leave
// WebSources unset; analysis failures are returned.
func (p *Pipeline) Run(ctx context.Context, sub model.Submission) (*model.AnalysisResult, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if cached := p.lookup(ctx, sub); cached != nil {
		p.logger.Debug("result cache hit", "contentType", sub.ContentType)
		return cached, nil
	}

	v, a := p.Steps(ctx, sub)
	if !a.OK() {
		return nil, a.Err
	}

	merged := Merge(*a.Value, v.Value)
	// a failed verification must not outlive the request; a resubmit retries it
	if v.OK() || errors.Is(v.Err, ErrVerificationDisabled) {
		p.store(ctx, sub, &merged)
	}
	return &merged, nil
}

func (p *Pipeline) verify(ctx context.Context, sub model.Submission) Outcome[*model.WebSources] {
	if p.verifier == nil {
		return Outcome[*model.WebSources]{Err: ErrVerificationDisabled}
	}

	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	ws, err := p.verifier.Verify(ctx, sub)
	if err != nil {
		p.logger.Warn("verification unavailable, continuing without web sources", "err", err)
		return Outcome[*model.WebSources]{Err: err}
	}
	return Outcome[*model.WebSources]{Value: ws}
}

func (p *Pipeline) analyze(ctx context.Context, sub model.Submission) Outcome[*model.AnalysisResult] {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	res, err := p.analyzer.Analyze(ctx, sub)
	if err != nil {
		return Outcome[*model.AnalysisResult]{Err: err}
	}
	if res == nil {
		return Outcome[*model.AnalysisResult]{Err: errors.New("analysis returned no result")}
	}
	return Outcome[*model.AnalysisResult]{Value: res}
}

func (p *Pipeline) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.StepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.StepTimeout)
}

func (p *Pipeline) lookup(ctx context.Context, sub model.Submission) *model.AnalysisResult {
	if p.opts.Cache == nil {
		return nil
	}

	data, err := p.opts.Cache.Get(ctx, cache.ResultKey(sub))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			p.logger.Warn("result cache read failed", "err", err)
		}
		return nil
	}

	var res model.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		p.logger.Warn("discarding unreadable cached result", "err", err)
		_ = p.opts.Cache.Delete(ctx, cache.ResultKey(sub))
		return nil
	}
	return &res
}

func (p *Pipeline) store(ctx context.Context, sub model.Submission, res *model.AnalysisResult) {
	if p.opts.Cache == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		p.logger.Warn("marshal result for cache", "err", err)
		return
	}
	if err := p.opts.Cache.Set(ctx, cache.ResultKey(sub), data, p.opts.CacheTTL); err != nil {
		p.logger.Warn("result cache write failed", "err", err)
	}
}
