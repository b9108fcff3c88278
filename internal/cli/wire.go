package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/truthlens/internal/analysis"
	"github.com/ppiankov/truthlens/internal/cache"
	"github.com/ppiankov/truthlens/internal/events"
	"github.com/ppiankov/truthlens/internal/fetch"
	"github.com/ppiankov/truthlens/internal/history"
	"github.com/ppiankov/truthlens/internal/llm"
	"github.com/ppiankov/truthlens/internal/model"
	"github.com/ppiankov/truthlens/internal/pipeline"
	"github.com/ppiankov/truthlens/internal/verify"
)

// app holds the components every checking command shares
type app struct {
	cfg       *model.Config
	logger    *log.Logger
	analyzer  *analysis.Client
	verifier  pipeline.Verifier // nil when verification is off
	runner    *pipeline.Pipeline
	history   *history.Store
	publisher *events.KafkaPublisher
	closers   []io.Closer
}

func newApp(ctx context.Context, cfg *model.Config, logger *log.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.analyzer = analyzer
	a.verifier = newVerifier(cfg, logger)

	resultCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		logger.Warn("result cache unavailable, continuing without it", "backend", cfg.Cache.Backend, "err", err)
	}
	if c, ok := resultCache.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.runner = pipeline.New(a.verifier, a.analyzer, pipeline.Options{
		Parallel:    cfg.Pipeline.Parallel,
		StepTimeout: cfg.Pipeline.StepTimeout,
		Cache:       resultCache,
		CacheTTL:    cfg.Cache.TTL,
		Logger:      logger,
	})

	store, err := openHistory(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.history = store
	a.closers = append(a.closers, store)

	if cfg.Events.Enabled {
		pub, err := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
		if err != nil {
			logger.Warn("event publishing unavailable", "brokers", cfg.Events.Brokers, "err", err)
		} else {
			a.publisher = pub
			a.closers = append(a.closers, pub)
		}
	}

	return a, nil
}

func newAnalyzer(cfg *model.Config, logger *log.Logger) (*analysis.Client, error) {
	lc := llm.ConfigFromModel(cfg.Analysis)
	lc.HTTPProxy, lc.HTTPSProxy = cfg.Fetch.HTTPProxy, cfg.Fetch.HTTPSProxy

	provider, err := llm.NewProvider(lc)
	if err != nil {
		return nil, fmt.Errorf("analysis provider: %w", err)
	}

	opts := []analysis.Option{analysis.WithModel(cfg.Analysis.Model), analysis.WithLogger(logger)}
	if cfg.Fetch.Enabled {
		fetcher, err := fetch.NewFetcher(fetch.Options{
			Timeout:         cfg.Fetch.Timeout,
			UserAgent:       cfg.Fetch.UserAgent,
			MaxBodyBytes:    cfg.Fetch.MaxBodyBytes,
			MaxExcerptChars: cfg.Fetch.MaxExcerptChars,
			RespectRobots:   cfg.Fetch.RespectRobots,
			HTTPProxy:       cfg.Fetch.HTTPProxy,
			HTTPSProxy:      cfg.Fetch.HTTPSProxy,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, analysis.WithFetcher(fetcher))
		if cfg.Fetch.Timeout > 0 {
			opts = append(opts, analysis.WithFetchTimeout(cfg.Fetch.Timeout))
		}
	}
	// a nil provider still yields a client; every call then fails as not configured
	return analysis.NewClient(provider, opts...), nil
}

// newVerifier returns nil when verification is disabled or cannot be built.
// Verification is best-effort, so a bad setup only disables it.
func newVerifier(cfg *model.Config, logger *log.Logger) pipeline.Verifier {
	if !cfg.Verification.Enabled {
		return nil
	}

	lc := llm.ConfigFromModel(cfg.Verification.ProviderConfig)
	lc.HTTPProxy, lc.HTTPSProxy = cfg.Fetch.HTTPProxy, cfg.Fetch.HTTPSProxy

	provider, err := llm.NewProvider(lc)
	if err != nil {
		logger.Warn("verification disabled", "provider", cfg.Verification.Provider, "err", err)
		return nil
	}
	if provider == nil {
		return nil
	}

	return verify.NewClient(provider,
		verify.WithModel(cfg.Verification.Model),
		verify.WithSearchRecency(cfg.Verification.SearchRecency),
		verify.WithLogger(logger),
	)
}

func openHistory(ctx context.Context, cfg *model.Config, logger *log.Logger) (*history.Store, error) {
	backend, err := history.NewBackend(ctx, cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history backend: %w", err)
	}
	return history.Open(ctx, backend, cfg.History.Key, logger), nil
}

// observers are notified of every successful check
func (a *app) observers() []pipeline.ResultObserver {
	obs := []pipeline.ResultObserver{a.history}
	if a.publisher != nil {
		obs = append(obs, a.publisher)
	}
	return obs
}

// Close releases backends in reverse order of creation
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
