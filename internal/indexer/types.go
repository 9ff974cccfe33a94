// Package indexer defines the external adapter contract every search
// provider (cardigann template, generic RSS feed, or a static mock) must
// satisfy, plus the Newznab-derived category vocabulary and the release
// types that flow out of a search.
package indexer

import (
	"time"

	"github.com/orchestrd/orchestrd/internal/quality"
)

// Protocol is the fetch mechanism a release requires.
type Protocol string

const (
	ProtocolTorrent   Protocol = "torrent"
	ProtocolUsenet    Protocol = "usenet"
	ProtocolStreaming Protocol = "streaming"
)

// SearchType discriminates the shape of a search request.
type SearchType string

const (
	SearchMovie SearchType = "movie"
	SearchTV    SearchType = "tv"
	SearchBasic SearchType = "basic"
)

// SearchSource distinguishes a user-initiated lookup from a background
// automatic one, which affects both indexer eligibility and season-pack
// inclusion policy.
type SearchSource string

const (
	SearchSourceInteractive SearchSource = "interactive"
	SearchSourceAutomatic   SearchSource = "automatic"
)

// MovieCriteria carries the fields relevant to a movie search.
type MovieCriteria struct {
	Query  string
	TMDBID int
	IMDBID string
	Year   int
}

// TVCriteria carries the fields relevant to a TV search, including the
// episode-only/season-pack distinctions the orchestrator branches on.
type TVCriteria struct {
	Query      string
	TVDBID     int
	IMDBID     string
	Season     int  // 0 means unset
	Episode    int  // 0 means unset
	SeasonOnly bool // true: accept season packs, reject single episodes
}

// SearchCriteria is a closed tagged variant: exactly one of Movie/TV/Basic
// is populated, matching Type. Construct via the New* functions rather
// than populating the struct directly.
type SearchCriteria struct {
	Type  SearchType
	Movie MovieCriteria
	TV    TVCriteria
	Basic string

	// SearchTitles lists alternate titles to try, preferred over Query/Movie.Query/
	// TV.Query when building the orchestrator's text-tier variants (at most the
	// first 3 are tried).
	SearchTitles []string
	// IndexerIDs, when non-empty, restricts eligibility to this allowlist.
	IndexerIDs []string
	// SearchSource records the origin of the request. The orchestrator does
	// not read it: eligibility and the season/episode policy use
	// orchestrator.Options.SearchSource instead.
	SearchSource SearchSource

	Categories []int
	Protocols  []Protocol // empty means no protocol restriction
	Limit      int
}

// AllowsProtocol reports whether p is acceptable given the criteria's
// protocol filter (no filter means every protocol is allowed).
func (c SearchCriteria) AllowsProtocol(p Protocol) bool {
	if len(c.Protocols) == 0 {
		return true
	}
	for _, allowed := range c.Protocols {
		if allowed == p {
			return true
		}
	}
	return false
}

// NewMovieCriteria builds a movie SearchCriteria.
func NewMovieCriteria(m MovieCriteria, categories []int) SearchCriteria {
	return SearchCriteria{Type: SearchMovie, Movie: m, Categories: categories}
}

// NewTVCriteria builds a TV SearchCriteria.
func NewTVCriteria(tv TVCriteria, categories []int) SearchCriteria {
	return SearchCriteria{Type: SearchTV, TV: tv, Categories: categories}
}

// NewBasicCriteria builds a free-text SearchCriteria with no media-type
// context, used for manual/interactive text searches.
func NewBasicCriteria(query string, categories []int) SearchCriteria {
	return SearchCriteria{Type: SearchBasic, Basic: query, Categories: categories}
}

// QueryText returns the best available free-text query for the criteria,
// for indexers/adapters that only support text search (the text tier).
func (c SearchCriteria) QueryText() string {
	switch c.Type {
	case SearchMovie:
		return c.Movie.Query
	case SearchTV:
		return c.TV.Query
	default:
		return c.Basic
	}
}

// ReleaseResult is the raw result returned by an indexer adapter, before
// title parsing.
type ReleaseResult struct {
	Title       string
	DownloadURL string
	StreamURL   string // set instead of DownloadURL for ProtocolStreaming releases
	InfoURL     string
	InfoHash    string // torrents only, when the indexer exposes it directly
	GUID        string
	Protocol    Protocol
	Categories  []int
	Size        int64
	Seeders     int
	Leechers    int
	PublishDate time.Time
	IndexerID   string
	// IndexerPriority is stamped by the orchestrator after ingestion with the
	// indexer's position in the configured adapter list (smaller = preferred);
	// the health tracker stores no priority.
	IndexerPriority int
}

// ParsedRelease is the structured interpretation of a ReleaseResult's
// title, produced by the release parser.
type ParsedRelease struct {
	Title      string
	CleanTitle string // substring up to the first quality/episode/year marker, Title-Cased
	Year       int

	Season     int
	Episode    int
	EpisodeEnd int   // for multi-episode packs; equals Episode when single
	Episodes   []int // individual episode numbers covered by this release
	Seasons    []int // non-empty iff the release spans multiple seasons or is a complete series

	IsSeasonPack bool
	IsFullSeries bool // complete-series pack
	AbsoluteEp   int  // anime absolute numbering, 0 if not applicable
	AirDate      string // ISO yyyy-mm-dd, for dailies
	IsDaily      bool

	Source     quality.Source
	Resolution quality.Resolution
	Codec      quality.Codec
	HDR        quality.HDRFormat
	Audio      quality.AudioFormat

	ReleaseGroup string
	IsProper     bool
	IsRepack     bool
	Is3D         bool
	IsRemux      bool

	Languages   []string
	ExternalIDs map[string]string // e.g. "imdb" -> "tt1234567"
	Confidence  float64
}

// ReleaseView pairs a raw result with its parsed interpretation so callers
// never need to re-parse or mutate a cached object.
type ReleaseView struct {
	Raw    ReleaseResult
	Parsed ParsedRelease
}

// Fingerprint returns a stable identity used for caching and
// deduplication: GUID when present, otherwise the download URL.
func (v ReleaseView) Fingerprint() string {
	if v.Raw.GUID != "" {
		return v.Raw.GUID
	}
	return v.Raw.DownloadURL
}
