package knora

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts is the total number of tries, the first included.
	DefaultMaxAttempts = 10
	// DefaultBackoffUnit is the sleep after the first failed attempt; the
	// sleep after attempt k is k units.
	DefaultBackoffUnit = time.Second
)

// RetryPolicy retries an operation with linear backoff while it fails with
// a recoverable error. MaxAttempts counts every try, the first included.
type RetryPolicy struct {
	MaxAttempts int
	BackoffUnit time.Duration
	// Sleep waits between attempts; nil leaves the wait to go-retry's timer.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
	// OnRetry, if set, is called before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BackoffUnit: DefaultBackoffUnit,
	}
}

// Backoff returns the sleep that follows failed attempt number attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * p.BackoffUnit
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// backoff yields k × BackoffUnit after failed attempt k. When Sleep is set
// the wait happens there and go-retry's own timer is given zero; a Sleep
// error stops the loop and is stored in *sleepErr.
func (p RetryPolicy) backoff(ctx context.Context, attempt *int, lastErr *error, sleepErr *error) retry.Backoff {
	next := retry.BackoffFunc(func() (time.Duration, bool) {
		delay := p.Backoff(*attempt)
		if p.OnRetry != nil {
			p.OnRetry(*attempt, *lastErr, delay)
		}
		if p.Sleep == nil {
			return delay, false
		}
		if err := p.Sleep(ctx, delay); err != nil {
			*sleepErr = err
			return 0, true
		}
		return 0, false
	})
	return retry.WithMaxRetries(uint64(p.attempts()-1), next)
}

// Do runs op until it succeeds, fails with an error recoverable rejects, or
// MaxAttempts tries have been made. The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error, recoverable func(error) bool) error {
	_, err := Retry(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, recoverable)
	return err
}

// Retry is Do for operations that return a value.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error), recoverable func(error) bool) (T, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxAttempts := p.attempts()

	var (
		attempt  int
		lastErr  error
		sleepErr error
	)
	result, err := retry.DoValue(ctx, p.backoff(ctx, &attempt, &lastErr, &sleepErr), func(ctx context.Context) (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil || !recoverable(err) {
			return v, err
		}

		logger.Info("caught recoverable error",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		lastErr = err
		return v, retry.RetryableError(err)
	})
	if sleepErr != nil {
		return result, sleepErr
	}
	return result, err
}

// RetryingClient wraps every API operation in a RetryPolicy keyed on
// IsRecoverable. CreateResource and Get failures are not recoverable and
// return after one attempt.
type RetryingClient struct {
	api     API
	policy  RetryPolicy
	metrics *Metrics
}

var _ API = (*RetryingClient)(nil)
var _ API = (*Client)(nil)

// NewRetryingClient decorates api. metrics may be nil.
func NewRetryingClient(api API, policy RetryPolicy, metrics *Metrics) *RetryingClient {
	return &RetryingClient{api: api, policy: policy, metrics: metrics}
}

func (r *RetryingClient) policyFor(operation string) RetryPolicy {
	p := r.policy
	next := p.OnRetry
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		r.metrics.retry(operation)
		if next != nil {
			next(attempt, err, delay)
		}
	}
	if p.Logger != nil {
		p.Logger = p.Logger.With(zap.String("operation", operation))
	}
	return p
}

func (r *RetryingClient) Login(ctx context.Context, user, password string) error {
	return r.policyFor("login").Do(ctx, func(ctx context.Context) error {
		return r.api.Login(ctx, user, password)
	}, IsRecoverable)
}

func (r *RetryingClient) CreateResource(ctx context.Context, params Document) (string, error) {
	return Retry(ctx, r.policyFor("create_resource"), func(ctx context.Context) (string, error) {
		return r.api.CreateResource(ctx, params)
	}, IsRecoverable)
}

func (r *RetryingClient) Get(ctx context.Context, path string) (Document, error) {
	return Retry(ctx, r.policyFor("get"), func(ctx context.Context) (Document, error) {
		return r.api.Get(ctx, path)
	}, IsRecoverable)
}

func (r *RetryingClient) MakeThumbnail(ctx context.Context, req ThumbnailRequest) (Document, error) {
	return Retry(ctx, r.policyFor("make_thumbnail"), func(ctx context.Context) (Document, error) {
		return r.api.MakeThumbnail(ctx, req)
	}, IsRecoverable)
}
