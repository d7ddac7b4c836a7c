// Package util provides shared utility functions for nodefs.
package util

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	log "github.com/sirupsen/logrus"

	"nodefs/fserr"
)

// RemoveRetryOptions returns retry options for recursive removal.
// maxRetries extra attempts are made after the first one, with exponential
// backoff starting at delay, and only for errors accepted by IsTooManyOpenFiles.
func RemoveRetryOptions(ctx context.Context, maxRetries int, delay time.Duration) []retry.Option {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return []retry.Option{
		retry.Attempts(uint(maxRetries) + 1),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsTooManyOpenFiles),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debugf("[util.Retry] attempt %d failed, backing off: %v", n+1, err)
		}),
		retry.Context(ctx),
	}
}

// TempNameRetryOptions retries immediately and without limit, but only while
// the generated name already exists.
func TempNameRetryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(0),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(IsAlreadyExists),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	}
}

// DefaultRetryOptions returns sensible defaults for retry operations.
func DefaultRetryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(100 * time.Millisecond),
		retry.MaxDelay(1 * time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	}
}

// Retry executes fn with retry logic.
// Returns the last error if all attempts fail.
func Retry(ctx context.Context, fn func() error, opts ...retry.Option) error {
	if len(opts) == 0 {
		opts = DefaultRetryOptions(ctx)
	}
	return retry.Do(fn, opts...)
}

// RetryWithResult executes fn with retry logic and returns the result.
func RetryWithResult[T any](ctx context.Context, fn func() (T, error), opts ...retry.Option) (T, error) {
	if len(opts) == 0 {
		opts = DefaultRetryOptions(ctx)
	}
	return retry.DoWithData(fn, opts...)
}

// Common retry predicates

// IsTooManyOpenFiles returns true if the error indicates descriptor exhaustion.
// The errno check covers platforms whose message differs; the substring check
// covers errors that lost their errno on the way up.
func IsTooManyOpenFiles(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fserr.EMFILE) || errors.Is(err, fserr.ENFILE) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "too many open files")
}

// IsAlreadyExists returns true if the error is EEXIST.
func IsAlreadyExists(err error) bool {
	return err != nil && errors.Is(err, fserr.EEXIST)
}
