package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/quality"
	"github.com/orchestrd/orchestrd/internal/scoring"
)

func view(title string, resolution quality.Resolution) indexer.ReleaseView {
	return indexer.ReleaseView{
		Raw:    indexer.ReleaseResult{Title: title, Protocol: indexer.ProtocolTorrent},
		Parsed: indexer.ParsedRelease{Title: title, Resolution: resolution},
	}
}

func TestClassifySource(t *testing.T) {
	assert.Equal(t, quality.SourceBluRay, scoring.ClassifySource("movie.2024.bluray.1080p"))
	assert.Equal(t, quality.SourceWebDL, scoring.ClassifySource("movie.2024.web-dl.1080p"))
	assert.Equal(t, quality.SourceUnknown, scoring.ClassifySource("movie.2024.1080p"))
}

func TestClassifyQuality_PrefersParsedSourceOverTitleInference(t *testing.T) {
	p := indexer.ParsedRelease{Title: "movie.2024.web-dl.1080p", Source: quality.SourceBluRay, Resolution: quality.Res1080p}
	q := scoring.ClassifyQuality(p)
	assert.Equal(t, quality.SourceBluRay, q.Source)
}

func TestScorer_Score_RejectsDisallowed(t *testing.T) {
	s := scoring.New(quality.DefaultProfile())
	sc := s.Score(view("movie.2024.cam", quality.ResUnknown), scoring.Options{})
	assert.True(t, sc.Rejected)
	assert.Contains(t, sc.RejectionReasons, scoring.RejectionQualityNotAllowed)
}

func TestScorer_Score_RejectsMinSeeders(t *testing.T) {
	s := scoring.New(quality.DefaultProfile())
	v := view("movie.2024.bluray.1080p", quality.Res1080p)
	v.Raw.Seeders = 1
	sc := s.Score(v, scoring.Options{MinSeeders: 5})
	assert.True(t, sc.Rejected)
	assert.Contains(t, sc.RejectionReasons, scoring.RejectionMinSeeders)
}

func TestScorer_Score_RejectsDeadTorrent(t *testing.T) {
	s := scoring.New(quality.DefaultProfile())
	v := view("movie.2024.bluray.1080p", quality.Res1080p)
	v.Raw.Seeders = 0
	sc := s.Score(v, scoring.Options{DeadTorrentSeeders: 1})
	assert.True(t, sc.Rejected)
	assert.Contains(t, sc.RejectionReasons, scoring.RejectionDeadTorrent)
}

func TestScorer_Score_RejectsSizeOutOfBounds(t *testing.T) {
	s := scoring.New(quality.DefaultProfile())
	v := view("show.s01.bluray.1080p", quality.Res1080p)
	v.Parsed.IsSeasonPack = true
	v.Raw.Size = 1024 // far too small for 10 episodes
	sc := s.Score(v, scoring.Options{SeasonEpisodeCount: 10})
	assert.True(t, sc.Rejected)
	assert.Contains(t, sc.RejectionReasons, scoring.RejectionSizeOutOfBounds)
}

func TestScorer_Score_BelowMinScoreRejected(t *testing.T) {
	s := scoring.New(quality.DefaultProfile())
	v := view("movie.2024.webdl.720p", quality.Res720p)
	sc := s.Score(v, scoring.Options{MinScore: 1 << 30})
	assert.True(t, sc.Rejected)
	assert.Contains(t, sc.RejectionReasons, scoring.RejectionBelowMinScore)
}

func TestScorer_Rank_OrdersByQualityDescending(t *testing.T) {
	s := scoring.New(quality.DefaultProfile())
	views := []indexer.ReleaseView{
		view("movie.2024.webdl.720p", quality.Res720p),
		view("movie.2024.bluray.1080p", quality.Res1080p),
		view("movie.2024.webdl.1080p", quality.Res1080p),
	}
	ranked := s.Rank(views, scoring.Options{})
	assert.Len(t, ranked, 3)
	assert.Contains(t, ranked[0].View.Raw.Title, "bluray")
	assert.Equal(t, 1, ranked[0].Score.ReleaseWeight)
	assert.Equal(t, 3, ranked[2].Score.ReleaseWeight)
}

func TestScorer_Rank_PreferredWordBreaksTie(t *testing.T) {
	p := quality.DefaultProfile()
	p.PreferredWords = []string{"proper"}
	s := scoring.New(p)
	views := []indexer.ReleaseView{
		view("movie.2024.webdl.1080p", quality.Res1080p),
		view("movie.2024.proper.webdl.1080p", quality.Res1080p),
	}
	ranked := s.Rank(views, scoring.Options{})
	assert.Contains(t, ranked[0].View.Raw.Title, "proper")
}

func TestScorer_Rank_FilterRejectedOmitsButStillScores(t *testing.T) {
	s := scoring.New(quality.DefaultProfile())
	views := []indexer.ReleaseView{
		view("movie.2024.bluray.1080p", quality.Res1080p),
		view("movie.2024.cam", quality.ResUnknown),
	}
	ranked := s.Rank(views, scoring.Options{FilterRejected: true})
	assert.Len(t, ranked, 1)
}
