// Package dedup removes duplicate releases from an aggregated search
// result set in two passes: an exact pass on fingerprint identity, then a
// fuzzy pass on normalized title+quality+size for near-duplicates posted
// by different indexers.
package dedup

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/scoring"
)

// Dedup removes exact and near-duplicate releases from views. An exact
// group keeps its first-seen occurrence; a fuzzy group keeps the first-seen
// member unless a later torrent in it has more seeders (callers should
// pre-sort by preference, e.g. indexer priority, before calling Dedup).
func Dedup(views []indexer.ReleaseView) []indexer.ReleaseView {
	return dedupeFuzzy(dedupeExact(views))
}

// dedupeExact removes releases sharing the same fingerprint (GUID or
// download URL), the strongest identity signal available.
func dedupeExact(views []indexer.ReleaseView) []indexer.ReleaseView {
	seen := make(map[string]struct{}, len(views))
	out := make([]indexer.ReleaseView, 0, len(views))
	for _, v := range views {
		fp := v.Fingerprint()
		if fp == "" {
			out = append(out, v)
			continue
		}
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, v)
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeTitle lowercases and strips punctuation/whitespace runs so
// cosmetic differences between indexer listings of the same release don't
// defeat the fuzzy pass.
func normalizeTitle(title string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(title), "")
}

// fuzzyKey groups releases that are very likely the same underlying file:
// same normalized title, same season/episode, same resolution, and size
// within a small tolerance bucket.
func fuzzyKey(v indexer.ReleaseView) string {
	sizeBucket := v.Raw.Size / (50 * 1024 * 1024) // 50MB buckets absorb minor size differences
	return strings.Join([]string{
		normalizeTitle(v.Parsed.Title),
		strconv.Itoa(v.Parsed.Season),
		strconv.Itoa(v.Parsed.Episode),
		strconv.Itoa(int(v.Parsed.Resolution)),
		strconv.FormatInt(sizeBucket, 10),
	}, "|")
}

// identityKey groups enriched candidates that are very likely the same
// underlying release, for the post-enrichment dedup pass: info hash when
// the protocol exposes one, otherwise clean title plus the parsed
// quality/release-group tuple.
func identityKey(v indexer.ReleaseView) string {
	if v.Raw.InfoHash != "" {
		return "hash:" + strings.ToLower(v.Raw.InfoHash)
	}
	return strings.Join([]string{
		normalizeTitle(v.Parsed.CleanTitle),
		strconv.Itoa(int(v.Parsed.Resolution)),
		string(v.Parsed.Source),
		string(v.Parsed.Codec),
		strings.ToLower(v.Parsed.ReleaseGroup),
	}, "|")
}

// DedupEnhanced runs the post-enrichment dedup pass: candidates sharing an
// identityKey collapse to one, preferring fewer rejection reasons, then
// higher score, then lower (more preferred) indexer priority, then more
// seeders.
func DedupEnhanced(items []scoring.Enhanced) []scoring.Enhanced {
	bestByKey := make(map[string]scoring.Enhanced, len(items))
	order := make([]string, 0, len(items))

	for _, e := range items {
		key := identityKey(e.View)
		existing, ok := bestByKey[key]
		if !ok {
			bestByKey[key] = e
			order = append(order, key)
			continue
		}
		if enhancedBetter(e, existing) {
			bestByKey[key] = e
		}
	}

	out := make([]scoring.Enhanced, 0, len(order))
	for _, key := range order {
		out = append(out, bestByKey[key])
	}
	return out
}

// enhancedBetter reports whether candidate should replace current as the
// kept representative of a dedup group.
func enhancedBetter(candidate, current scoring.Enhanced) bool {
	if len(candidate.Score.RejectionReasons) != len(current.Score.RejectionReasons) {
		return len(candidate.Score.RejectionReasons) < len(current.Score.RejectionReasons)
	}
	if candidate.Score.Value != current.Score.Value {
		return candidate.Score.Value > current.Score.Value
	}
	if candidate.View.Raw.IndexerPriority != current.View.Raw.IndexerPriority {
		return candidate.View.Raw.IndexerPriority < current.View.Raw.IndexerPriority
	}
	return candidate.View.Raw.Seeders > current.View.Raw.Seeders
}

// dedupeFuzzy collapses groups that share a fuzzyKey, keeping the
// first-seen (highest-priority, assuming callers pre-sort) member of each
// group and preferring the one with the most seeders when protocol is
// torrent, since that is the strongest signal of download viability.
func dedupeFuzzy(views []indexer.ReleaseView) []indexer.ReleaseView {
	bestByKey := make(map[string]indexer.ReleaseView, len(views))
	order := make([]string, 0, len(views))

	for _, v := range views {
		key := fuzzyKey(v)
		existing, ok := bestByKey[key]
		if !ok {
			bestByKey[key] = v
			order = append(order, key)
			continue
		}
		if v.Raw.Protocol == indexer.ProtocolTorrent && v.Raw.Seeders > existing.Raw.Seeders {
			bestByKey[key] = v
		}
	}

	out := make([]indexer.ReleaseView, 0, len(order))
	for _, key := range order {
		out = append(out, bestByKey[key])
	}
	return out
}
