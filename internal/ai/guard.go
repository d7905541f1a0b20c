package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"lms-ai-backend/internal/logger"
)

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// guard wraps every provider call with a client-side rate limit, a local usage
// window and a circuit breaker.
type guard struct {
	name        string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	counter     *TokenCounter
}

func newGuard(name, tier string) *guard {
	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	burst := max(1, limits.RPM/10)
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), burst)

	return &guard{
		name:        name,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		counter:     &TokenCounter{limits: limits},
	}
}

func (g *guard) run(ctx context.Context, prompt string, call func(context.Context) (*GenerateResult, error)) (*GenerateResult, error) {
	ctx, span := otel.Tracer("ai-client").Start(ctx, g.name+".generate")
	defer span.End()

	estimated := EstimateTokens(prompt)
	span.SetAttributes(
		attribute.String("ai.provider", g.name),
		attribute.Int("ai.estimated_tokens", estimated),
	)

	if !g.counter.CanConsume(estimated, 1) {
		span.SetAttributes(attribute.Bool("ai.rate_limited", true))
		return nil, fmt.Errorf("%w: provider usage window exhausted", ErrGeneratorUnavailable)
	}

	if err := g.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("ai.rate_limited", true))
		return nil, err
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return call(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("ai.circuit_breaker_open", true))
			return nil, fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
		}
		return nil, err
	}

	res := result.(*GenerateResult)
	if res.TokensUsed <= 0 {
		res.TokensUsed = estimated + EstimateTokens(res.Text)
	}
	g.counter.RecordUsage(res.TokensUsed, 1)

	span.SetAttributes(
		attribute.String("ai.model", res.Model),
		attribute.Int("ai.actual_tokens", res.TokensUsed),
	)
	return res, nil
}

// TokenCounter tracks provider usage inside rolling minute and day windows.
type TokenCounter struct {
	mu              sync.Mutex
	limits          RateLimits
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
	now             func() time.Time
}

func (tc *TokenCounter) clock() time.Time {
	if tc.now != nil {
		return tc.now()
	}
	return time.Now()
}

func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := tc.clock()

	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}

	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}

	if tc.minuteRequests+requests > tc.limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > tc.limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > tc.limits.RPD {
		return false
	}

	return true
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}
