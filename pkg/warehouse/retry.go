package warehouse

import (
	"context"
	"math/rand"
	"net/http"
	"time"
)

// retryBackoffs is the spec §4.1 spreadsheet-read retry schedule: 1s, 2s,
// 4s, each with ±500ms jitter, up to three retries after the first attempt.
var retryBackoffs = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// isRetryableStatus reports whether a spreadsheet-read HTTP status should
// be retried. Only 429 and 5xx are retried; everything else fails fast.
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// withRetry runs fn up to len(retryBackoffs)+1 times, retrying only when fn
// returns a *statusError with a retryable status.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var se *statusError
		if !asStatusError(err, &se) || !isRetryableStatus(se.status) {
			return err
		}
		if attempt >= len(retryBackoffs) {
			return err
		}
		jitter := time.Duration(rand.Int63n(int64(time.Second))) - 500*time.Millisecond
		wait := retryBackoffs[attempt] + jitter
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// statusError carries an HTTP status code so withRetry can classify it.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func asStatusError(err error, target **statusError) bool {
	se, ok := err.(*statusError)
	if !ok {
		return false
	}
	*target = se
	return true
}
