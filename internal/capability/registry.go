// Package capability tracks what each configured indexer supports, so the
// search orchestrator can skip indexers that cannot serve a given search
// tier instead of discovering that at request time.
package capability

import (
	"context"
	"sync"
	"time"

	"github.com/orchestrd/orchestrd/internal/indexer"
)

// entry is a cached capability record with a fetch timestamp for staleness.
type entry struct {
	caps      indexer.Capabilities
	fetchedAt time.Time
}

// Registry holds the last-known capabilities for every configured indexer.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

// New creates a capability registry whose entries are refetched after ttl
// elapses. ttl <= 0 disables staleness (entries never expire on their own).
func New(ttl time.Duration) *Registry {
	return &Registry{entries: make(map[string]entry), ttl: ttl}
}

// Get returns the cached capabilities for indexerID, fetching and caching
// them via adapter if absent or stale.
func (r *Registry) Get(ctx context.Context, adapter indexer.Adapter) (indexer.Capabilities, error) {
	id := adapter.ID()

	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()

	if ok && (r.ttl <= 0 || time.Since(e.fetchedAt) < r.ttl) {
		return e.caps, nil
	}

	caps, err := adapter.Capabilities(ctx)
	if err != nil {
		if ok {
			// Serve stale data rather than fail outright when a refresh errors.
			return e.caps, nil
		}
		return indexer.Capabilities{}, err
	}

	r.mu.Lock()
	r.entries[id] = entry{caps: caps, fetchedAt: time.Now()}
	r.mu.Unlock()

	return caps, nil
}

// Invalidate drops the cached entry for indexerID, forcing a refetch on
// next Get.
func (r *Registry) Invalidate(indexerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, indexerID)
}

// SupportsProtocol reports whether caps declares support for protocol.
// The orchestrator's protocol filter and the grab dispatcher do not call
// it; the orchestrator checks SearchCriteria.AllowsProtocol instead.
func SupportsProtocol(caps indexer.Capabilities, protocol indexer.Protocol) bool {
	return caps.Protocol == protocol
}

// SupportsSearch reports whether the indexer's cached capabilities support
// the given search type and, for TV/Movie, the requested ID lookup fields.
func SupportsSearch(caps indexer.Capabilities, criteria indexer.SearchCriteria) bool {
	switch criteria.Type {
	case indexer.SearchMovie:
		if !caps.SupportsMovieSearch {
			return false
		}
		if criteria.Movie.TMDBID != 0 && !caps.SupportsTMDBID {
			return false
		}
		if criteria.Movie.IMDBID != "" && !caps.SupportsIMDBID {
			return false
		}
		return true
	case indexer.SearchTV:
		if !caps.SupportsTVSearch {
			return false
		}
		if criteria.TV.TVDBID != 0 && !caps.SupportsTVDBID {
			return false
		}
		if criteria.TV.IMDBID != "" && !caps.SupportsIMDBID {
			return false
		}
		return true
	default:
		return true
	}
}

// SupportsSearchType reports whether caps supports criteria's search type
// at all, ignoring any specific ID fields. Used for the orchestrator's
// indexer-filtering stage, which reports a searchType rejection separately
// from an ID-unsupported fallback to the text tier.
func SupportsSearchType(caps indexer.Capabilities, searchType indexer.SearchType) bool {
	switch searchType {
	case indexer.SearchMovie:
		return caps.SupportsMovieSearch
	case indexer.SearchTV:
		return caps.SupportsTVSearch
	default:
		return true
	}
}

// SupportsSearchSource reports whether caps allows participating in a
// search of the given source (interactive vs. automatic).
func SupportsSearchSource(caps indexer.Capabilities, source indexer.SearchSource) bool {
	switch source {
	case indexer.SearchSourceInteractive:
		return caps.InteractiveEnabled
	case indexer.SearchSourceAutomatic:
		return caps.AutomaticEnabled
	default:
		return true
	}
}

// HasSearchableID reports whether criteria carries at least one external
// ID that caps declares support for, used to decide whether the ID tier of
// a tiered search is worth attempting for this indexer.
func HasSearchableID(caps indexer.Capabilities, criteria indexer.SearchCriteria) bool {
	switch criteria.Type {
	case indexer.SearchMovie:
		return (criteria.Movie.TMDBID != 0 && caps.SupportsTMDBID) ||
			(criteria.Movie.IMDBID != "" && caps.SupportsIMDBID)
	case indexer.SearchTV:
		return (criteria.TV.TVDBID != 0 && caps.SupportsTVDBID) ||
			(criteria.TV.IMDBID != "" && caps.SupportsIMDBID)
	default:
		return false
	}
}
