package dedup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchestrd/orchestrd/internal/dedup"
	"github.com/orchestrd/orchestrd/internal/indexer"
)

func TestDedup_ExactFingerprintMatch(t *testing.T) {
	views := []indexer.ReleaseView{
		{Raw: indexer.ReleaseResult{GUID: "guid-1", Title: "Movie.2024.1080p"}},
		{Raw: indexer.ReleaseResult{GUID: "guid-1", Title: "Movie.2024.1080p"}},
	}
	out := dedup.Dedup(views)
	assert.Len(t, out, 1)
}

func TestDedup_FuzzyMatchAcrossIndexers(t *testing.T) {
	views := []indexer.ReleaseView{
		{
			Raw:    indexer.ReleaseResult{GUID: "a", Title: "Movie.2024.1080p.WEB-DL", Size: 4_000_000_000, Seeders: 10, Protocol: indexer.ProtocolTorrent},
			Parsed: indexer.ParsedRelease{Title: "Movie.2024.1080p.WEB-DL", Resolution: 1080},
		},
		{
			Raw:    indexer.ReleaseResult{GUID: "b", Title: "Movie 2024 1080p WEBDL", Size: 4_000_000_000, Seeders: 50, Protocol: indexer.ProtocolTorrent},
			Parsed: indexer.ParsedRelease{Title: "Movie 2024 1080p WEBDL", Resolution: 1080},
		},
	}
	out := dedup.Dedup(views)
	assert.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Raw.GUID) // higher seeders wins
}

func TestDedup_DistinctEpisodesNotMerged(t *testing.T) {
	views := []indexer.ReleaseView{
		{Raw: indexer.ReleaseResult{GUID: "a", Title: "Show.S01E01"}, Parsed: indexer.ParsedRelease{Title: "Show", Season: 1, Episode: 1}},
		{Raw: indexer.ReleaseResult{GUID: "b", Title: "Show.S01E02"}, Parsed: indexer.ParsedRelease{Title: "Show", Season: 1, Episode: 2}},
	}
	out := dedup.Dedup(views)
	assert.Len(t, out, 2)
}
