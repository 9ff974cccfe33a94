// Package ratelimit governs outbound request pacing per indexer and per
// origin host, so a slow/strict indexer cannot starve others sharing the
// same host, and vice versa.
package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Governor holds independent token buckets keyed by indexer ID and by host.
// A request must acquire both the indexer bucket and the host bucket before
// proceeding.
type Governor struct {
	mu              sync.Mutex
	indexerLimiters map[string]*rate.Limiter
	hostLimiters    map[string]*rate.Limiter

	defaultIndexerRPM int
	defaultHostRPM    int
}

// New creates a Governor with default per-minute rates applied to any
// indexer/host without an explicit override.
func New(defaultIndexerRPM, defaultHostRPM int) *Governor {
	return &Governor{
		indexerLimiters:   make(map[string]*rate.Limiter),
		hostLimiters:      make(map[string]*rate.Limiter),
		defaultIndexerRPM: defaultIndexerRPM,
		defaultHostRPM:    defaultHostRPM,
	}
}

func rpmLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	// Burst of 1 enforces a steady per-request cadence rather than allowing
	// a full minute's allowance to fire at once.
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
}

// SetIndexerRate overrides the per-minute rate for a specific indexer.
func (g *Governor) SetIndexerRate(indexerID string, rpm int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.indexerLimiters[indexerID] = rpmLimiter(rpm)
}

// SetHostRate overrides the per-minute rate for a specific host.
func (g *Governor) SetHostRate(host string, rpm int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hostLimiters[host] = rpmLimiter(rpm)
}

func (g *Governor) indexerLimiter(indexerID string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.indexerLimiters[indexerID]
	if !ok {
		l = rpmLimiter(g.defaultIndexerRPM)
		g.indexerLimiters[indexerID] = l
	}
	return l
}

func (g *Governor) hostLimiter(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.hostLimiters[host]
	if !ok {
		l = rpmLimiter(g.defaultHostRPM)
		g.hostLimiters[host] = l
	}
	return l
}

// HostOf extracts the host component from a URL for bucketing purposes.
// Malformed URLs bucket under the empty-string host, which shares the
// default host limiter.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Wait blocks until both the indexer bucket and the host bucket for
// requestURL admit a request, or ctx is cancelled.
func (g *Governor) Wait(ctx context.Context, indexerID, requestURL string) error {
	if err := g.indexerLimiter(indexerID).Wait(ctx); err != nil {
		return err
	}
	return g.hostLimiter(HostOf(requestURL)).Wait(ctx)
}

// WaitHost blocks until both the indexer bucket and the named host bucket
// admit a request, or ctx is cancelled. Unlike Wait, host is used directly
// as the bucket key rather than parsed out of a full request URL, since
// callers that already resolved an indexer's base host have nothing left
// to parse.
func (g *Governor) WaitHost(ctx context.Context, indexerID, host string) error {
	if err := g.indexerLimiter(indexerID).Wait(ctx); err != nil {
		return err
	}
	return g.hostLimiter(host).Wait(ctx)
}

// CheckWait reports how long a request would have to wait for both the
// indexer bucket and the host bucket to admit it, without consuming a
// token from either. Callers compare the result against their own
// deadline before deciding whether to wait it out or skip the indexer.
func (g *Governor) CheckWait(indexerID, host string) time.Duration {
	now := time.Now()

	ir := g.indexerLimiter(indexerID).Reserve()
	indexerDelay := ir.DelayFrom(now)
	ir.Cancel()

	hr := g.hostLimiter(host).Reserve()
	hostDelay := hr.DelayFrom(now)
	hr.Cancel()

	if indexerDelay > hostDelay {
		return indexerDelay
	}
	return hostDelay
}

// Allow performs a non-blocking check of both buckets, consuming a token
// from each only if both currently admit a request.
func (g *Governor) Allow(indexerID, requestURL string) bool {
	il := g.indexerLimiter(indexerID)
	hl := g.hostLimiter(HostOf(requestURL))
	// Reserve from the indexer bucket first; if the host bucket can't
	// admit, give the indexer token back via cancellation.
	r := il.Reserve()
	if !r.OK() || r.Delay() > 0 {
		r.Cancel()
		return false
	}
	if !hl.Allow() {
		r.Cancel()
		return false
	}
	return true
}
