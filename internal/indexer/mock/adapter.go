// Package mock provides a static indexer adapter for tests and local
// development, returning a fixed result set regardless of criteria.
package mock

import (
	"context"

	"github.com/orchestrd/orchestrd/internal/indexer"
)

// Adapter is a static, in-memory indexer.Adapter implementation.
type Adapter struct {
	IndexerID string
	Caps      indexer.Capabilities
	Results   []indexer.ReleaseResult
	Err       error
	// IDResults, when non-nil, is returned instead of Results when criteria
	// carries a searchable external ID, letting tests exercise the tiered
	// id-then-text fallback (empty IDResults simulates an ID-tier miss).
	IDResults []indexer.ReleaseResult
	// Calls records every criteria this adapter was searched with, in order.
	Calls []indexer.SearchCriteria
}

// New creates a mock adapter returning results for every search.
func New(id string, results []indexer.ReleaseResult) *Adapter {
	return &Adapter{
		IndexerID: id,
		Caps: indexer.Capabilities{
			IndexerID:           id,
			SupportsTVSearch:    true,
			SupportsMovieSearch: true,
			SupportsIMDBID:      true,
			SupportsTMDBID:      true,
			SupportsTVDBID:      true,
			InteractiveEnabled:  true,
			AutomaticEnabled:    true,
			Categories:          append(append([]int{}, indexer.MovieCategories...), indexer.TVCategories...),
			Protocol:            indexer.ProtocolTorrent,
		},
		Results: results,
	}
}

func (a *Adapter) ID() string { return a.IndexerID }

func (a *Adapter) Capabilities(ctx context.Context) (indexer.Capabilities, error) {
	return a.Caps, a.Err
}

func (a *Adapter) Search(ctx context.Context, criteria indexer.SearchCriteria) ([]indexer.ReleaseResult, error) {
	a.Calls = append(a.Calls, criteria)
	if a.Err != nil {
		return nil, a.Err
	}

	src := a.Results
	if a.IDResults != nil && hasSearchableID(criteria) {
		src = a.IDResults
	}

	out := make([]indexer.ReleaseResult, len(src))
	copy(out, src)
	for i := range out {
		out[i].IndexerID = a.IndexerID
	}
	return out, nil
}

func hasSearchableID(criteria indexer.SearchCriteria) bool {
	switch criteria.Type {
	case indexer.SearchMovie:
		return criteria.Movie.TMDBID != 0 || criteria.Movie.IMDBID != ""
	case indexer.SearchTV:
		return criteria.TV.TVDBID != 0 || criteria.TV.IMDBID != ""
	default:
		return false
	}
}
