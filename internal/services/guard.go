package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/metrics"
)

type BreakerSettings struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

type GuardConfig struct {
	Timeout           time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	RequestsPerMinute int
	Burst             int
	Breaker           BreakerSettings
}

// guardedChatClient wraps a provider with client-side rate limiting, a
// per-call timeout, bounded retries and a circuit breaker.
type guardedChatClient struct {
	next    ChatClient
	cfg     GuardConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
	log     *zap.Logger
}

func NewGuardedChatClient(next ChatClient, cfg GuardConfig, log *zap.Logger, m *metrics.Metrics) ChatClient {
	log = logger.OrNop(log)

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	g := &guardedChatClient{
		next:    next,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}

	if cfg.Breaker.Enabled {
		b := cfg.Breaker
		g.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "oracle-" + next.Model(),
			MaxRequests: b.MaxRequests,
			Interval:    b.Interval,
			Timeout:     b.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests == 0 {
					return false
				}
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= b.MinRequests && failureRatio >= b.FailureThreshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Info("circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
				m.BreakerOpen(name, to == gobreaker.StateOpen)
			},
		})
	}

	return g
}

func (g *guardedChatClient) Model() string { return g.next.Model() }

func (g *guardedChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		reply, err := g.call(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil || attempt == g.cfg.MaxAttempts {
			break
		}

		delay := g.cfg.RetryDelay * time.Duration(attempt)
		g.log.Warn("oracle call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("oracle call failed: %w", lastErr)
}

func (g *guardedChatClient) call(ctx context.Context, req ChatRequest) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	if g.breaker == nil {
		return g.next.Complete(ctx, req)
	}

	return g.breaker.Execute(func() (string, error) {
		return g.next.Complete(ctx, req)
	})
}

// retryable reports whether another attempt could succeed. Open circuits and
// client errors other than 429 are final.
func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}

	var statusErr *APIStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	return true
}
