package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	payloadschema "github.com/Bitstream73/QuoteLog02-sub000/schema"
)

var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// RetryConfig bounds each verification call.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Timeout applies to every attempt separately.
	Timeout time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2,
		Timeout:           20 * time.Second,
	}
}

type VerifierOptions struct {
	MaxConcurrency int64
	RatePerSecond  float64
	Retry          RetryConfig
}

// Verifier turns a Completer into a pair verifier with bounded concurrency,
// a request rate cap and retries on transient failures.
type Verifier struct {
	completer Completer
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	retry     RetryConfig
	logger    zerolog.Logger
}

func NewVerifier(completer Completer, opts VerifierOptions, logger zerolog.Logger) *Verifier {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	retry := opts.Retry
	if retry.Timeout <= 0 {
		retry = DefaultRetryConfig()
	}
	if retry.BackoffMultiplier < 1 {
		retry.BackoffMultiplier = 1
	}

	limit := rate.Inf
	burst := 1
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		burst = max(1, int(opts.RatePerSecond))
	}

	return &Verifier{
		completer: completer,
		sem:       semaphore.NewWeighted(opts.MaxConcurrency),
		limiter:   rate.NewLimiter(limit, burst),
		retry:     retry,
		logger:    logger.With().Str("component", "llm_verifier").Str("provider", completer.Name()).Logger(),
	}
}

// VerifyPair classifies the relationship between two quotes. Errors are
// returned as-is; callers decide how to degrade.
func (v *Verifier) VerifyPair(ctx context.Context, req PairRequest) (Verdict, error) {
	if v == nil || v.completer == nil {
		return Verdict{}, fmt.Errorf("verifier is not configured")
	}

	prompt := buildPairPrompt(req)
	started := time.Now()

	var answer string
	err := v.retryWithBackoff(ctx, "verify_pair", func(attemptCtx context.Context) error {
		if err := v.limiter.Wait(attemptCtx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
		text, err := v.completer.Complete(attemptCtx, prompt)
		if err != nil {
			return err
		}
		answer = text
		return nil
	})
	if err != nil {
		return Verdict{}, err
	}

	verdict, err := parseVerdict(answer)
	if err != nil {
		return Verdict{}, err
	}

	v.logger.Debug().
		Str("relationship", string(verdict.Relationship)).
		Float64("confidence", verdict.Confidence).
		Dur("latency", time.Since(started)).
		Msg("pair verified")
	return verdict, nil
}

func parseVerdict(answer string) (Verdict, error) {
	raw := extractJSON(answer)
	if raw == "" {
		return Verdict{}, fmt.Errorf("verifier answer contained no JSON object")
	}

	parsed, err := payloadschema.ValidatePairVerdict([]byte(raw))
	if err != nil {
		return Verdict{}, fmt.Errorf("invalid verifier answer: %w", err)
	}
	return Verdict{
		Relationship: Relationship(parsed.Relationship),
		Confidence:   parsed.Confidence,
		Canonical:    parsed.Canonical,
		Explanation:  strings.TrimSpace(parsed.Explanation),
	}, nil
}

func (v *Verifier) retryWithBackoff(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := v.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire concurrency slot for %s: %w", operation, err)
	}
	defer v.sem.Release(1)

	var lastErr error
	backoff := v.retry.InitialBackoff

	for attempt := 0; attempt <= v.retry.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, v.retry.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			if attempt > 0 {
				v.logger.Info().Str("operation", operation).Int("retries", attempt).Msg("llm call succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if !isRetriableError(err) {
			return fmt.Errorf("%s: %w", operation, err)
		}
		if attempt == v.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: context canceled: %w", operation, ctx.Err())
		}

		v.logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("llm call failed, retrying")

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * v.retry.BackoffMultiplier)
			if backoff > v.retry.MaxBackoff {
				backoff = v.retry.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("%s: context canceled during backoff: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, v.retry.MaxRetries+1, lastErr)
}

func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "rate limit",
		"500", "502", "503", "504", "529",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout", "overloaded",
		"connection refused", "connection reset", "timeout", "temporary failure",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return objectPattern.FindString(trimmed)
}
