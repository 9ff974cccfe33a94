// Package downloadclient defines the contract a download client adapter
// implements (qBittorrent, SABnzbd, and similar) and a registry for
// selecting the right client per release protocol.
package downloadclient

import (
	"context"

	"github.com/orchestrd/orchestrd/internal/indexer"
)

// AddResult is returned after a release is successfully submitted.
type AddResult struct {
	ClientDownloadID string
	Category         string
}

// AddOptions carries the per-grab submission preferences a dispatcher
// forwards to the client: whether to add paused, queue priority, and a
// seed-ratio limit for torrent clients that support one.
type AddOptions struct {
	Pause bool
	// Priority is a lower-is-first queue priority hint; 0 means client default.
	Priority int
	// SeedRatioLimit overrides the client's default seed ratio; 0 means use
	// the client's own default.
	SeedRatioLimit float64
}

// DuplicateError indicates the client already holds this release, a
// non-fatal condition the dispatcher treats as a successful grab.
type DuplicateError struct {
	ClientID         string
	ClientDownloadID string
}

func (e *DuplicateError) Error() string {
	return e.ClientID + ": release already present in client"
}

// Client is the contract a download client adapter implements.
type Client interface {
	// ID returns the configured client's stable identifier.
	ID() string
	// Protocol returns which release protocol this client handles.
	Protocol() indexer.Protocol
	// Add submits a release for download, given its resolved fetch URL
	// (magnet/torrent URL for torrent clients, NZB URL for usenet). May
	// return a *DuplicateError instead of a result when the client already
	// holds the release.
	Add(ctx context.Context, fetchURL, category string, opts AddOptions) (AddResult, error)
	// Ping verifies connectivity/credentials.
	Ping(ctx context.Context) error
}

// Registry selects a Client by protocol, supporting multiple clients per
// protocol with a configured priority order (first healthy client wins).
type Registry struct {
	byProtocol map[indexer.Protocol][]Client
}

// NewRegistry builds a Registry from a flat client list, grouping them by
// declared protocol in registration order (which doubles as priority).
func NewRegistry(clients []Client) *Registry {
	r := &Registry{byProtocol: make(map[indexer.Protocol][]Client)}
	for _, c := range clients {
		r.byProtocol[c.Protocol()] = append(r.byProtocol[c.Protocol()], c)
	}
	return r
}

// For returns the configured clients for a protocol, in priority order.
func (r *Registry) For(protocol indexer.Protocol) []Client {
	return r.byProtocol[protocol]
}
