package completion

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/pkg/httpx"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type RateLimitOptions struct {
	// RequestsPerSecond <= 0 disables client-side throttling.
	RequestsPerSecond float64
	Burst             int
	// MaxRetries bounds retries after a rate-limited response. Other failures are never retried here.
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

type limitedProvider struct {
	next    Provider
	limiter *rate.Limiter
	opts    RateLimitOptions
	log     *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// WithRateLimit throttles calls to next and retries rate-limited responses a bounded number of times.
func WithRateLimit(next Provider, opts RateLimitOptions, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 8 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	var lim *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &limitedProvider{
		next:    next,
		limiter: lim,
		opts:    opts,
		log:     log.With("service", "CompletionRateLimiter", "provider", next.Name()),
		sleep:   httpx.Sleep,
	}
}

func (p *limitedProvider) Name() string { return p.next.Name() }

func (p *limitedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.opts.MaxRetries; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return "", &ProviderError{Provider: p.Name(), Err: err}
			}
		}
		start := time.Now()
		out, err := p.next.Generate(ctx, prompt)
		observability.Current().ObserveLLMRequest(p.Name(), outcome(err), time.Since(start))
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsRateLimited(err) || attempt == p.opts.MaxRetries {
			break
		}
		delay := httpx.Backoff(attempt+1, p.opts.Backoff, p.opts.MaxBackoff)
		p.log.Warn("Completion rate limited; retrying",
			"attempt", attempt+1,
			"max_retries", p.opts.MaxRetries,
			"sleep", delay.String(),
		)
		if err := p.sleep(ctx, delay); err != nil {
			return "", &ProviderError{Provider: p.Name(), Err: err}
		}
	}
	return "", wrap(p.Name(), lastErr)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsRateLimited(err):
		return "rate_limited"
	default:
		return "error"
	}
}
