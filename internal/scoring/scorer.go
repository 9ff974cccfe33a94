// Package scoring enriches a parsed release with a quality classification
// and a numeric score used to rank candidates within a search result set,
// applying protocol-specific rejection rules (seeder floors, dead-torrent
// thresholds, expected-size bounds) on top of the profile's quality gate.
package scoring

import (
	"sort"
	"strings"

	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/quality"
)

// RejectionCode is a machine-readable reason a release was scored as
// rejected, distinct from the human-facing preferred-word/quality text.
type RejectionCode string

const (
	RejectionQualityNotAllowed RejectionCode = "quality_not_allowed"
	RejectionMinSeeders        RejectionCode = "min_seeders"
	RejectionDeadTorrent       RejectionCode = "dead_torrent"
	RejectionSizeOutOfBounds   RejectionCode = "size_out_of_bounds"
	RejectionBelowMinScore     RejectionCode = "below_min_score"
)

// Score is the enrichment result attached to a ReleaseView for ranking.
type Score struct {
	Quality          quality.Quality
	Value            int
	Rejected         bool
	RejectionReasons []RejectionCode
	ReleaseWeight    int // 1-based final-rank position, set by Rank
}

// Enhanced pairs a view with its score, the unit the orchestrator's
// enrichment stage and pass-2 dedup operate on.
type Enhanced struct {
	View  indexer.ReleaseView
	Score Score
}

// Options configures a single Score/Rank call: protocol rejection
// thresholds and the expected-size bounds used to flag releases that are
// implausibly small or large for the episode/season count they claim to
// cover.
type Options struct {
	MinSeeders         int // torrents below this are rejected outright
	DeadTorrentSeeders int // torrents at or below this are flagged dead; 0 disables the check
	MinScore           int // releases below this score are rejected
	// SeasonEpisodeCount is the episode count of the single season being
	// searched, used to size-bound a season-pack release.
	SeasonEpisodeCount int
	// SeriesEpisodeCount is the total episode count across the whole
	// series, used to size-bound a complete-series release.
	SeriesEpisodeCount int
	// SeasonEpisodeCounts maps season number to episode count, for
	// multi-season packs spanning more than one season.
	SeasonEpisodeCounts map[int]int
	FilterRejected      bool // if true, Rank omits rejected releases entirely
}

// Approximate per-episode size bounds (bytes) used to flag packs that are
// wildly smaller or larger than plausible for their claimed episode count.
// These are deliberately loose: the goal is catching mislabeled or fake
// releases, not enforcing an exact budget.
const (
	minBytesPerEpisode = 50 * 1024 * 1024        // 50MB
	maxBytesPerEpisode = 12 * 1024 * 1024 * 1024 // 12GB
)

// New creates a Scorer bound to profile.
func New(profile *quality.Profile) *Scorer {
	return &Scorer{profile: profile}
}

// Scorer classifies and ranks candidate releases against a quality
// Profile.
type Scorer struct {
	profile *quality.Profile
}

var sourceKeywords = []struct {
	keyword string
	source  quality.Source
}{
	{"remux", quality.SourceRemux},
	{"bluray", quality.SourceBluRay},
	{"blu-ray", quality.SourceBluRay},
	{"bdrip", quality.SourceBluRay},
	{"webrip", quality.SourceWebRip},
	{"webdl", quality.SourceWebDL},
	{"web-dl", quality.SourceWebDL},
	{"web", quality.SourceWebDL},
	{"hdtv", quality.SourceHDTV},
	{"dvdrip", quality.SourceDVD},
	{"dvd", quality.SourceDVD},
	{"hdts", quality.SourceTS},
	{"telesync", quality.SourceTS},
	{"cam", quality.SourceCAM},
	{"sdtv", quality.SourceSDTV},
}

// ClassifySource infers a Source from free-form release-title text. Used
// only as a fallback when a ParsedRelease's own Source field is unset,
// since the parser's token-table extraction is strictly more reliable.
func ClassifySource(titleLower string) quality.Source {
	for _, sk := range sourceKeywords {
		if strings.Contains(titleLower, sk.keyword) {
			return sk.source
		}
	}
	return quality.SourceUnknown
}

// ClassifyQuality derives a Quality from a ParsedRelease, trusting its own
// Source/Resolution fields (the parser's token-table extraction) and
// falling back to title-text inference only when the parser left Source
// unknown.
func ClassifyQuality(p indexer.ParsedRelease) quality.Quality {
	src := p.Source
	if src == "" || src == quality.SourceUnknown {
		src = ClassifySource(strings.ToLower(p.Title))
	}
	return quality.Quality{Source: src, Resolution: p.Resolution}
}

// Score evaluates view against the profile and opts, rejecting releases
// the profile disallows or that fail a protocol-specific rule, and
// assigning a rank-plus-preferred-word value to the rest. Rejected
// releases still carry a Value and Quality for auditability; only
// RejectionReasons gates whether they're usable.
func (s *Scorer) Score(view indexer.ReleaseView, opts Options) Score {
	q := ClassifyQuality(view.Parsed)
	var reasons []RejectionCode

	if !s.profile.Allows(q) {
		reasons = append(reasons, RejectionQualityNotAllowed)
	}

	if view.Raw.Protocol == indexer.ProtocolTorrent {
		if opts.MinSeeders > 0 && view.Raw.Seeders < opts.MinSeeders {
			reasons = append(reasons, RejectionMinSeeders)
		}
		if opts.DeadTorrentSeeders > 0 && view.Raw.Seeders <= opts.DeadTorrentSeeders {
			reasons = append(reasons, RejectionDeadTorrent)
		}
	}

	if code, out := s.checkSizeBounds(view, opts); out {
		reasons = append(reasons, code)
	}

	value := q.Rank()
	value += s.profile.PreferredWordBonus(strings.ToLower(view.Raw.Title), strings.Contains)

	if opts.MinScore > 0 && value < opts.MinScore {
		reasons = append(reasons, RejectionBelowMinScore)
	}

	return Score{
		Quality:          q,
		Value:            value,
		Rejected:         len(reasons) > 0,
		RejectionReasons: reasons,
	}
}

// checkSizeBounds estimates the expected episode count for a release (a
// season pack uses SeasonEpisodeCount or the matching entry in
// SeasonEpisodeCounts; a complete-series pack uses SeriesEpisodeCount; a
// single episode uses 1) and flags a release whose size per expected
// episode falls outside the plausible band. Skipped entirely when the
// episode count hint or the release size is unknown.
func (s *Scorer) checkSizeBounds(view indexer.ReleaseView, opts Options) (RejectionCode, bool) {
	if view.Raw.Size <= 0 {
		return "", false
	}

	episodeCount := 0
	switch {
	case view.Parsed.IsFullSeries:
		episodeCount = opts.SeriesEpisodeCount
	case view.Parsed.IsSeasonPack && len(view.Parsed.Seasons) == 0:
		episodeCount = opts.SeasonEpisodeCount
		if episodeCount == 0 && opts.SeasonEpisodeCounts != nil {
			episodeCount = opts.SeasonEpisodeCounts[view.Parsed.Season]
		}
	case len(view.Parsed.Seasons) > 1:
		for _, season := range view.Parsed.Seasons {
			episodeCount += opts.SeasonEpisodeCounts[season]
		}
	case len(view.Parsed.Episodes) > 0:
		episodeCount = len(view.Parsed.Episodes)
	default:
		episodeCount = 1
	}

	if episodeCount <= 0 {
		return "", false
	}

	perEpisode := view.Raw.Size / int64(episodeCount)
	if perEpisode < minBytesPerEpisode || perEpisode > maxBytesPerEpisode {
		return RejectionSizeOutOfBounds, true
	}
	return "", false
}

// Rank scores every view and sorts the result (rejected last, then
// descending value within each group), stamping ReleaseWeight with the
// resulting 1-based position. When opts.FilterRejected is true, rejected
// releases are omitted from the returned slice entirely and Rank keeps no
// count of them, so a caller that counts rejections in the returned slice
// sees none.
func (s *Scorer) Rank(views []indexer.ReleaseView, opts Options) []Enhanced {
	out := make([]Enhanced, 0, len(views))
	for _, v := range views {
		out = append(out, Enhanced{View: v, Score: s.Score(v, opts)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score.Rejected != out[j].Score.Rejected {
			return !out[i].Score.Rejected
		}
		return out[i].Score.Value > out[j].Score.Value
	})

	if opts.FilterRejected {
		filtered := out[:0]
		for _, e := range out {
			if !e.Score.Rejected {
				filtered = append(filtered, e)
			}
		}
		out = filtered
	}

	for i := range out {
		out[i].Score.ReleaseWeight = i + 1
	}

	return out
}
