package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docinsight/internal/collector"
)

// DefaultMaxRetries applies when the worker is built with a zero retry count.
const DefaultMaxRetries = 3

var (
	backoffBase = time.Second
	backoffMax  = 30 * time.Second
)

// IsRetryable reports whether a collection error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *collector.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := backoffBase << uint(attempt)
	if base > backoffMax || base <= 0 {
		base = backoffMax
	}
	if half := int64(base) / 2; half > 0 {
		return base + time.Duration(rand.Int64N(half))
	}
	return base
}
