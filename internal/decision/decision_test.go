package decision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchestrd/orchestrd/internal/decision"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/quality"
)

func candidate(title string, resolution quality.Resolution, source quality.Source) indexer.ReleaseView {
	return indexer.ReleaseView{
		Raw:    indexer.ReleaseResult{Title: title, GUID: title},
		Parsed: indexer.ParsedRelease{Title: title, Resolution: resolution, Source: source},
	}
}

func TestEvaluateForMovie_NewWhenNoExisting(t *testing.T) {
	s := decision.New(quality.DefaultProfile())
	c := candidate("Movie.2024.1080p.WEBDL", quality.Res1080p, quality.SourceWebDL)
	d := s.EvaluateForMovie("movie-1", c, nil, decision.Options{})
	assert.True(t, d.Accepted)
	assert.False(t, d.IsUpgrade)
	assert.Equal(t, decision.StatusNew, d.UpgradeStatus)
}

func TestEvaluateForMovie_UpgradeWhenCandidateScoresHigher(t *testing.T) {
	s := decision.New(quality.DefaultProfile())
	existing := &decision.ExistingRelease{Quality: quality.Quality{Source: quality.SourceWebDL, Resolution: quality.Res720p}, Score: 72007}
	c := candidate("Movie.2024.1080p.BluRay", quality.Res1080p, quality.SourceBluRay)
	d := s.EvaluateForMovie("movie-1", c, existing, decision.Options{})
	assert.True(t, d.Accepted)
	assert.True(t, d.IsUpgrade)
	assert.Equal(t, decision.StatusUpgrade, d.UpgradeStatus)
	assert.Greater(t, d.CandidateScore, d.ExistingScore)
}

func TestEvaluateForMovie_DowngradeRejectedWithoutForce(t *testing.T) {
	s := decision.New(quality.DefaultProfile())
	existing := &decision.ExistingRelease{Quality: quality.Quality{Source: quality.SourceRemux, Resolution: quality.Res2160p}, Score: 1_000_000}
	c := candidate("Movie.2024.1080p.WEBDL", quality.Res1080p, quality.SourceWebDL)
	d := s.EvaluateForMovie("movie-1", c, existing, decision.Options{})
	assert.False(t, d.Accepted)
	assert.Equal(t, decision.StatusDowngrade, d.UpgradeStatus)
}

func TestEvaluateForMovie_DowngradeAcceptedWithForce(t *testing.T) {
	s := decision.New(quality.DefaultProfile())
	existing := &decision.ExistingRelease{Quality: quality.Quality{Source: quality.SourceRemux, Resolution: quality.Res2160p}, Score: 1_000_000}
	c := candidate("Movie.2024.1080p.WEBDL", quality.Res1080p, quality.SourceWebDL)
	d := s.EvaluateForMovie("movie-1", c, existing, decision.Options{Force: true})
	assert.True(t, d.Accepted)
	assert.Equal(t, decision.StatusDowngrade, d.UpgradeStatus)
	assert.Contains(t, d.Reason, "forced")
}

// Sidegrade: an existing release carrying the same score as the candidate,
// but a different fingerprint, so this isn't a duplicate of the same file.
func TestEvaluateForMovie_SidegradeNotAcceptedUnlessForced(t *testing.T) {
	s := decision.New(quality.DefaultProfile())
	c := candidate("Movie.2024.1080p.WEBDL", quality.Res1080p, quality.SourceWebDL)
	existing := &decision.ExistingRelease{Score: d0Score(s, c), Fingerprint: "a-different-release-guid"}

	d := s.EvaluateForMovie("movie-1", c, existing, decision.Options{})
	assert.False(t, d.Accepted)
	assert.Equal(t, decision.StatusSidegrade, d.UpgradeStatus)

	forced := s.EvaluateForMovie("movie-1", c, existing, decision.Options{Force: true})
	assert.True(t, forced.Accepted)
}

func d0Score(s *decision.Service, c indexer.ReleaseView) int {
	d := s.EvaluateForMovie("probe", c, nil, decision.Options{})
	return d.CandidateScore
}

func TestEvaluateForMovie_DuplicateFingerprintNotAcceptedUnlessForced(t *testing.T) {
	s := decision.New(quality.DefaultProfile())
	c := candidate("Movie.2024.1080p.WEBDL", quality.Res1080p, quality.SourceWebDL)
	existing := &decision.ExistingRelease{Score: d0Score(s, c), Fingerprint: c.Fingerprint()}
	d := s.EvaluateForMovie("movie-1", c, existing, decision.Options{})
	assert.False(t, d.Accepted)
	assert.Equal(t, decision.StatusDuplicate, d.UpgradeStatus)

	forced := s.EvaluateForMovie("movie-1", c, existing, decision.Options{Force: true})
	assert.True(t, forced.Accepted)
}

func TestEvaluateForMovie_RejectedByProfileWithoutForce(t *testing.T) {
	s := decision.New(quality.DefaultProfile())
	c := candidate("Movie.2024.CAM", quality.ResUnknown, quality.SourceCAM)
	d := s.EvaluateForMovie("movie-1", c, nil, decision.Options{})
	assert.False(t, d.Accepted)
	assert.Equal(t, decision.StatusRejected, d.UpgradeStatus)
	assert.NotEmpty(t, d.RejectionType)
}

func TestEvaluateForEpisode_DelegatesSameArithmetic(t *testing.T) {
	s := decision.New(quality.DefaultProfile())
	c := candidate("Show.S01E01.1080p.WEBDL", quality.Res1080p, quality.SourceWebDL)
	d := s.EvaluateForEpisode("ep-1", c, nil, decision.Options{})
	assert.True(t, d.Accepted)
	assert.Equal(t, decision.StatusNew, d.UpgradeStatus)
}
