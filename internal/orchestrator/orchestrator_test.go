package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrd/orchestrd/internal/capability"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/indexer/mock"
	"github.com/orchestrd/orchestrd/internal/orchestrator"
	"github.com/orchestrd/orchestrd/internal/quality"
	"github.com/orchestrd/orchestrd/internal/ratelimit"
	"github.com/orchestrd/orchestrd/internal/releasecache"
)

func TestOrchestrator_Search_AggregatesAndRanks(t *testing.T) {
	adapterA := mock.New("idx-a", []indexer.ReleaseResult{
		{Title: "Movie.Name.2024.1080p.WEBDL-GROUP", GUID: "a1", Categories: indexer.MovieCategories, Protocol: indexer.ProtocolTorrent, Seeders: 5},
	})
	adapterB := mock.New("idx-b", []indexer.ReleaseResult{
		{Title: "Movie.Name.2024.2160p.BluRay.REMUX-GROUP", GUID: "b1", Categories: indexer.MovieCategories, Protocol: indexer.ProtocolTorrent, Seeders: 20},
	})

	o := orchestrator.New(orchestrator.Config{
		Adapters: []indexer.Adapter{adapterA, adapterB},
		Caps:     capability.New(time.Minute),
		Governor: ratelimit.New(6000, 6000),
		Cache:    releasecache.New[indexer.ReleaseView](time.Minute),
		Profile:  quality.DefaultProfile(),
		Logger:   zerolog.Nop(),
	})

	criteria := indexer.NewMovieCriteria(indexer.MovieCriteria{Query: "Movie Name", Year: 2024}, indexer.MovieCategories)
	result, err := o.Search(context.Background(), "req-1", criteria, orchestrator.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Views, 2)
	assert.Contains(t, result.Views[0].Raw.Title, "REMUX") // highest quality ranked first
}

func TestOrchestrator_Search_PartialFailureDoesNotAbort(t *testing.T) {
	good := mock.New("idx-good", []indexer.ReleaseResult{
		{Title: "Movie.Name.2024.1080p.WEBDL-GROUP", GUID: "g1", Categories: indexer.MovieCategories, Protocol: indexer.ProtocolTorrent},
	})
	bad := &mock.Adapter{IndexerID: "idx-bad", Err: assertErr{}}

	o := orchestrator.New(orchestrator.Config{
		Adapters: []indexer.Adapter{good, bad},
		Caps:     capability.New(time.Minute),
		Governor: ratelimit.New(6000, 6000),
		Cache:    releasecache.New[indexer.ReleaseView](time.Minute),
		Profile:  quality.DefaultProfile(),
		Logger:   zerolog.Nop(),
	})

	criteria := indexer.NewMovieCriteria(indexer.MovieCriteria{Query: "Movie Name"}, indexer.MovieCategories)
	result, err := o.Search(context.Background(), "req-2", criteria, orchestrator.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, result.Views, 1)
}

type assertErr struct{}

func (assertErr) Error() string { return "indexer unavailable" }
