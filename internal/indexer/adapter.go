package indexer

import "context"

// Capabilities describes what an indexer adapter supports, consumed by the
// capability registry (C2) to decide whether an indexer participates in a
// given search tier.
type Capabilities struct {
	IndexerID           string
	BaseURL             string // host used for the rate-limit governor's shared per-host bucket
	SupportsTVSearch    bool
	SupportsMovieSearch bool
	SupportsIMDBID      bool
	SupportsTMDBID      bool
	SupportsTVDBID      bool
	// InteractiveEnabled/AutomaticEnabled gate eligibility per SearchSource.
	// Adapters without a reason to restrict either default both to true.
	InteractiveEnabled bool
	AutomaticEnabled   bool
	Categories         []int
	Protocol           Protocol
}

// Adapter is the contract every search provider implements: a cardigann
// template-driven HTML scraper, a generic RSS/Torznab feed, or a
// static mock used in tests.
type Adapter interface {
	// ID returns the stable identifier used for rate-limit buckets, health
	// tracking, and broadcast events.
	ID() string

	// Capabilities returns the adapter's declared search capabilities.
	// Implementations may cache this after the first successful fetch.
	Capabilities(ctx context.Context) (Capabilities, error)

	// Search executes criteria against the indexer and returns raw
	// results. Adapters do not parse titles or deduplicate; that is the
	// orchestrator's job.
	Search(ctx context.Context, criteria SearchCriteria) ([]ReleaseResult, error)
}

// URLResolver is implemented by adapters that must dereference a release's
// download URL through their own authenticated session (cookies, API keys,
// rate limits) before it is fetchable directly. Torrent adapters typically
// implement this to turn a landing-page hyperlink into a magnet URL or raw
// torrent blob; usenet adapters can omit it since their URLs pass through
// unchanged.
type URLResolver interface {
	ResolveDownloadURL(ctx context.Context, result ReleaseResult) (resolvedURL string, torrentData []byte, err error)
}
