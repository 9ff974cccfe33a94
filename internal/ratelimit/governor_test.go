package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrd/orchestrd/internal/ratelimit"
)

func TestGovernor_Wait_RespectsIndexerRate(t *testing.T) {
	g := ratelimit.New(60, 6000) // 1 req/sec for the indexer, effectively unlimited host
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, g.Wait(ctx, "idx-1", "https://example.com/a"))
	start := time.Now()
	require.NoError(t, g.Wait(ctx, "idx-1", "https://example.com/a"))
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}

func TestGovernor_HostOf(t *testing.T) {
	assert.Equal(t, "example.com", ratelimit.HostOf("https://example.com/path?x=1"))
	assert.Equal(t, "", ratelimit.HostOf("::not a url::"))
}

func TestGovernor_Allow_SharedHostStarvesSecondIndexer(t *testing.T) {
	g := ratelimit.New(6000, 1)
	g.SetHostRate("shared.example", 1)

	assert.True(t, g.Allow("idx-a", "https://shared.example/search"))
	assert.False(t, g.Allow("idx-b", "https://shared.example/search"))
}
