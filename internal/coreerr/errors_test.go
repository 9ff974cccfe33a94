package coreerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrd/orchestrd/internal/coreerr"
)

func TestError_Error(t *testing.T) {
	e := coreerr.New(coreerr.Timeout, "indexer-1", "request deadline exceeded")
	assert.Equal(t, "indexer-1: timeout: request deadline exceeded", e.Error())
}

func TestError_Wrap_Unwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	e := coreerr.Wrap(coreerr.Timeout, "indexer-1", "connect failed", cause)

	require.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "connection refused")
}

func TestCodeOf(t *testing.T) {
	e := coreerr.New(coreerr.RateLimited, "indexer-2", "429")
	assert.Equal(t, coreerr.RateLimited, coreerr.CodeOf(e))
	assert.Equal(t, coreerr.Unknown, coreerr.CodeOf(errors.New("plain error")))
}

func TestHasCode(t *testing.T) {
	e := coreerr.New(coreerr.Unauthorized, "indexer-3", "invalid apikey")
	assert.True(t, coreerr.HasCode(e, coreerr.Unauthorized))
	assert.False(t, coreerr.HasCode(e, coreerr.Timeout))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, coreerr.IsRetryable(coreerr.CloudflareProtected))
	assert.True(t, coreerr.IsRetryable(coreerr.Timeout))
	assert.True(t, coreerr.IsRetryable(coreerr.RateLimited))
	assert.True(t, coreerr.IsRetryable(coreerr.ResolutionFailed))
	assert.False(t, coreerr.IsRetryable(coreerr.DuplicateDownload))
	assert.False(t, coreerr.IsRetryable(coreerr.Unauthorized))
}
