package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryRetriesOnRetryableStatus(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &statusError{status: 503, err: errors.New("unavailable")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryFailsFastOnNonRetryableStatus(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func() error {
		attempts++
		return &statusError{status: 400, err: errors.New("bad request")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryGivesUpAfterThreeRetries(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func() error {
		attempts++
		return &statusError{status: 429, err: errors.New("rate limited")}
	})
	require.Error(t, err)
	assert.Equal(t, len(retryBackoffs)+1, attempts)
}
