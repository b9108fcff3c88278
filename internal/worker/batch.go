package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
	"github.com/ppiankov/truthlens/internal/pipeline"
)

// UpstreamKey is the limiter key shared by every batch job
const UpstreamKey = "upstream"

// CheckJob runs one submission through the pipeline
type CheckJob struct {
	Index      int
	Submission model.Submission
	Runner     pipeline.Runner
	Limiter    *Limiter
}

// Execute executes the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	out := &CheckResult{Index: j.Index, Submission: j.Submission}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, UpstreamKey); err != nil {
			out.Error = err
			return out
		}
	}

	result, err := j.Runner.Run(ctx, j.Submission)
	out.Result = result
	out.Error = err
	return out
}

// CheckResult is the outcome of one batch entry
type CheckResult struct {
	Index      int
	Submission model.Submission
	Result     *model.AnalysisResult
	Error      error
}

// GetError returns the error from the check
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks many submissions concurrently
type BatchProcessor struct {
	runner      pipeline.Runner
	concurrency int
	limiter     *Limiter
	observers   []pipeline.ResultObserver
	logger      *log.Logger
}

// NewBatchProcessor creates a batch processor. ratePerSecond caps how often
// jobs start across all workers; zero means unlimited. Observers see every
// successful result, typically the history store.
func NewBatchProcessor(runner pipeline.Runner, concurrency int, ratePerSecond float64, logger *log.Logger, observers ...pipeline.ResultObserver) *BatchProcessor {
	var limiter *Limiter
	if ratePerSecond > 0 {
		limiter = NewLimiter(ratePerSecond, 1)
	}
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
		limiter:     limiter,
		observers:   observers,
		logger:      logging.OrDiscard(logger),
	}
}

// ProcessSubmissions checks every submission and returns results in input
// order. Entries dropped by cancellation carry ctx's error.
func (b *BatchProcessor) ProcessSubmissions(ctx context.Context, subs []model.Submission) []*CheckResult {
	if len(subs) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, sub := range subs {
		if !pool.Submit(&CheckJob{Index: i, Submission: sub, Runner: b.runner, Limiter: b.limiter}) {
			break
		}
	}

	// results that made it out before ctx ended are still recorded
	observeCtx := context.WithoutCancel(ctx)
	out := make([]*CheckResult, len(subs))
	for _, r := range pool.Wait() {
		cr := r.(*CheckResult)
		out[cr.Index] = cr
	}

	for i, cr := range out {
		if cr == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &CheckResult{Index: i, Submission: subs[i], Error: err}
			continue
		}
		if cr.Error != nil {
			b.logger.Warn("batch entry failed", "index", i, "type", cr.Submission.ContentType, "err", cr.Error)
			continue
		}
		for _, obs := range b.observers {
			obs.ObserveResult(observeCtx, cr.Submission, *cr.Result)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads submissions from a file and checks them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	subs, err := ReadSubmissionsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read submissions: %w", err)
	}

	return b.ProcessSubmissions(ctx, subs), nil
}

// ReadSubmissionsFromFile reads one submission per line
func ReadSubmissionsFromFile(filePath string) ([]model.Submission, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ParseSubmissions(file)
}

// ParseSubmissions reads one submission per line. Lines starting with
// http:// or https:// are URLs, anything else is text. Blank lines, lines
// starting with # and repeats are skipped.
func ParseSubmissions(r io.Reader) ([]model.Submission, error) {
	var subs []model.Submission
	seen := make(map[model.Submission]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sub := model.Submission{Content: line, ContentType: model.ContentTypeText}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			sub.ContentType = model.ContentTypeURL
		}

		if !seen[sub] {
			seen[sub] = true
			subs = append(subs, sub)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return subs, nil
}
