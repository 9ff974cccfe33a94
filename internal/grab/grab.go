// Package grab dispatches a selected release to the appropriate download
// client: validating it against the requested media type, resolving its
// fetch URL through the owning indexer, submitting it, and recording the
// outcome to grab history for deduplication against future searches.
package grab

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrd/orchestrd/internal/broadcast"
	"github.com/orchestrd/orchestrd/internal/coreerr"
	"github.com/orchestrd/orchestrd/internal/downloadclient"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/notify"
)

// GrabRequest is a decided candidate plus the dispatch preferences the
// decision layer and the caller's media record supply.
type GrabRequest struct {
	View indexer.ReleaseView

	// MediaType and Categories validate the release against the thing it
	// was grabbed for, rejecting a release whose category doesn't overlap
	// the target's expected categories.
	MediaType  string
	Categories []int

	// Force bypasses the dispatcher's own grab-history duplicate check.
	Force bool
	// IsUpgrade is carried through from the decision layer for
	// notification/history purposes; the dispatcher does not compute it.
	IsUpgrade bool

	Pause          bool
	Priority       int
	SeedRatioLimit float64
}

// GrabResponse records what happened when a release was dispatched.
type GrabResponse struct {
	QueueID      string
	Hash         string
	ClientID     string
	ClientName   string
	Category     string
	WasDuplicate bool
	IsUpgrade    bool
}

// Dispatcher submits a decided release to a download client and records
// the grab for deduplication.
type Dispatcher struct {
	db          *sql.DB
	clients     *downloadclient.Registry
	adapters    map[string]indexer.Adapter
	broadcaster *broadcast.Hub
	notifier    *notify.Dispatcher
	category    string
}

// New creates a Dispatcher.
func New(db *sql.DB, clients *downloadclient.Registry, broadcaster *broadcast.Hub, category string) *Dispatcher {
	return &Dispatcher{db: db, clients: clients, broadcaster: broadcaster, category: category}
}

// SetNotifier attaches a notification dispatcher, fired on every successful
// grab. Optional: a Dispatcher with no notifier attached just skips it.
func (d *Dispatcher) SetNotifier(n *notify.Dispatcher) {
	d.notifier = n
}

// SetAdapters attaches the configured indexer adapters, keyed by ID, used
// to resolve a release's download URL through its owning indexer's
// authenticated session before submission.
func (d *Dispatcher) SetAdapters(adapters map[string]indexer.Adapter) {
	d.adapters = adapters
}

// AlreadyGrabbed reports whether fingerprint was already dispatched
// successfully, used by Grab to reject a repeat grab.
func (d *Dispatcher) AlreadyGrabbed(ctx context.Context, fingerprint string) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM grab_history WHERE release_fingerprint = ? AND status = 'success'`,
		fingerprint).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Grab validates req against its target media's categories, resolves the
// release's fetch URL, and submits it to the first healthy client for its
// protocol. Streaming releases bypass download clients entirely.
func (d *Dispatcher) Grab(ctx context.Context, req GrabRequest) (GrabResponse, error) {
	view := req.View

	if d.broadcaster != nil {
		d.broadcaster.BroadcastGrabStarted(view.Raw.Title, view.Raw.IndexerID)
	}

	if len(req.Categories) > 0 && len(view.Raw.Categories) > 0 && !categoriesOverlap(req.Categories, view.Raw.Categories) {
		grabErr := coreerr.New(coreerr.CategoryMismatch, view.Raw.IndexerID, "release category does not match requested media type")
		d.recordHistory(ctx, view, "rejected", grabErr.Error(), "", "")
		return GrabResponse{}, grabErr
	}

	if view.Raw.Protocol == indexer.ProtocolStreaming {
		return d.grabStreaming(ctx, req)
	}

	fingerprint := view.Fingerprint()
	already, err := d.AlreadyGrabbed(ctx, fingerprint)
	if err != nil {
		return GrabResponse{}, err
	}
	if already && !req.Force {
		grabErr := coreerr.New(coreerr.DuplicateDownload, view.Raw.IndexerID, "release already grabbed")
		d.recordHistory(ctx, view, "rejected", grabErr.Error(), "", "")
		return GrabResponse{}, grabErr
	}

	clients := d.clients.For(view.Raw.Protocol)
	if len(clients) == 0 {
		grabErr := coreerr.New(coreerr.ResolutionFailed, view.Raw.IndexerID, "no download client configured for protocol")
		d.recordHistory(ctx, view, "failed", grabErr.Error(), "", "")
		return GrabResponse{}, grabErr
	}

	fetchURL, _, err := d.resolveURL(ctx, view)
	if err != nil {
		grabErr := coreerr.Wrap(coreerr.ResolutionFailed, view.Raw.IndexerID, "failed to resolve download url", err)
		d.recordHistory(ctx, view, "failed", grabErr.Error(), "", "")
		return GrabResponse{}, grabErr
	}
	if fetchURL == "" {
		grabErr := coreerr.New(coreerr.ResolutionFailed, view.Raw.IndexerID, "no fetchable url for release")
		d.recordHistory(ctx, view, "failed", grabErr.Error(), "", "")
		return GrabResponse{}, grabErr
	}

	addOpts := downloadclient.AddOptions{Pause: req.Pause, Priority: req.Priority, SeedRatioLimit: req.SeedRatioLimit}

	var lastErr error
	for _, client := range clients {
		wasDuplicate := false
		result, err := client.Add(ctx, fetchURL, d.category, addOpts)
		if err != nil {
			var dupErr *downloadclient.DuplicateError
			if errors.As(err, &dupErr) {
				wasDuplicate = true
				result = downloadclient.AddResult{ClientDownloadID: dupErr.ClientDownloadID, Category: d.category}
			} else {
				lastErr = err
				continue
			}
		}

		d.recordHistory(ctx, view, "success", "", result.ClientDownloadID, client.ID())
		if d.broadcaster != nil {
			d.broadcaster.BroadcastGrabCompleted(view.Raw.Title, client.ID())
		}
		if d.notifier != nil {
			d.notifier.NotifyGrab(ctx, notify.GrabNotification{
				ReleaseTitle:     view.Raw.Title,
				IndexerID:        view.Raw.IndexerID,
				DownloadClientID: client.ID(),
				Quality:          string(view.Parsed.Source),
			})
		}
		return GrabResponse{
			QueueID:      uuid.NewString(),
			Hash:         result.ClientDownloadID,
			ClientID:     client.ID(),
			ClientName:   client.ID(),
			Category:     result.Category,
			WasDuplicate: wasDuplicate,
			IsUpgrade:    req.IsUpgrade,
		}, nil
	}

	if lastErr == nil {
		lastErr = coreerr.New(coreerr.ResolutionFailed, view.Raw.IndexerID, "all configured clients failed")
	}
	d.recordHistory(ctx, view, "failed", lastErr.Error(), "", "")
	if d.broadcaster != nil {
		d.broadcaster.BroadcastGrabFailed(view.Raw.Title, lastErr.Error())
	}
	return GrabResponse{}, lastErr
}

// grabStreaming bypasses download clients and backends entirely: a
// streaming release has nothing to fetch, so the dispatcher resolves (or
// accepts) its stream URL and records an indirection entry pointing at it,
// the equivalent of writing a .strm file for a library manager to pick up.
func (d *Dispatcher) grabStreaming(ctx context.Context, req GrabRequest) (GrabResponse, error) {
	view := req.View

	streamURL := view.Raw.StreamURL
	if streamURL == "" {
		resolved, _, err := d.resolveURL(ctx, view)
		if err != nil {
			grabErr := coreerr.Wrap(coreerr.ResolutionFailed, view.Raw.IndexerID, "could not resolve stream url", err)
			d.recordHistory(ctx, view, "failed", grabErr.Error(), "", "")
			return GrabResponse{}, grabErr
		}
		streamURL = resolved
	}
	if streamURL == "" {
		grabErr := coreerr.New(coreerr.ResolutionFailed, view.Raw.IndexerID, "no stream url available")
		d.recordHistory(ctx, view, "failed", grabErr.Error(), "", "")
		return GrabResponse{}, grabErr
	}

	d.recordHistory(ctx, view, "success", "", streamURL, "streaming")
	if d.broadcaster != nil {
		d.broadcaster.BroadcastGrabCompleted(view.Raw.Title, "streaming")
	}
	if d.notifier != nil {
		d.notifier.NotifyGrab(ctx, notify.GrabNotification{
			ReleaseTitle:     view.Raw.Title,
			IndexerID:        view.Raw.IndexerID,
			DownloadClientID: "streaming",
			Quality:          string(view.Parsed.Source),
		})
	}

	return GrabResponse{
		QueueID:    uuid.NewString(),
		Hash:       streamURL,
		ClientID:   "streaming",
		ClientName: "streaming",
		IsUpgrade:  req.IsUpgrade,
	}, nil
}

// resolveURL dereferences a release's download URL through the owning
// indexer's authenticated session when that adapter implements
// indexer.URLResolver (torrents behind a landing page, redacted usenet
// URLs reconstructed from live credentials). Adapters without a resolver,
// or releases from an indexer no longer configured, pass the raw URL
// through unchanged, which is correct for plain usenet/Torznab links.
func (d *Dispatcher) resolveURL(ctx context.Context, view indexer.ReleaseView) (string, []byte, error) {
	adapter, ok := d.adapters[view.Raw.IndexerID]
	if !ok {
		return view.Raw.DownloadURL, nil, nil
	}
	resolver, ok := adapter.(indexer.URLResolver)
	if !ok {
		return view.Raw.DownloadURL, nil, nil
	}
	return resolver.ResolveDownloadURL(ctx, view.Raw)
}

func categoriesOverlap(want, have []int) bool {
	set := make(map[int]struct{}, len(have))
	for _, c := range have {
		set[c] = struct{}{}
	}
	for _, c := range want {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}

func (d *Dispatcher) recordHistory(ctx context.Context, view indexer.ReleaseView, status, reason, clientDownloadID, downloadClientID string) {
	_, _ = d.db.ExecContext(ctx, `
		INSERT INTO grab_history (id, release_title, release_fingerprint, indexer_id, download_client_id, client_download_id, protocol, status, error_reason, grabbed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), view.Raw.Title, view.Fingerprint(), view.Raw.IndexerID, downloadClientID, clientDownloadID, string(view.Raw.Protocol), status, reason, time.Now())
}
