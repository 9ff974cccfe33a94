package quality_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchestrd/orchestrd/internal/quality"
)

func TestQuality_Rank_ResolutionDominates(t *testing.T) {
	lowResBluray := quality.Quality{Source: quality.SourceBluRay, Resolution: quality.Res720p}
	highResWeb := quality.Quality{Source: quality.SourceWebDL, Resolution: quality.Res1080p}
	assert.True(t, highResWeb.Better(lowResBluray))
}

func TestQuality_Rank_SourceTiebreaksSameResolution(t *testing.T) {
	webdl := quality.Quality{Source: quality.SourceWebDL, Resolution: quality.Res1080p}
	bluray := quality.Quality{Source: quality.SourceBluRay, Resolution: quality.Res1080p}
	assert.True(t, bluray.Better(webdl))
}

func TestProfile_Allows(t *testing.T) {
	p := quality.DefaultProfile()
	assert.True(t, p.Allows(quality.Quality{Source: quality.SourceWebDL, Resolution: quality.Res1080p}))
	assert.False(t, p.Allows(quality.Quality{Source: quality.SourceCAM, Resolution: quality.ResUnknown}))
	assert.False(t, p.Allows(quality.Quality{Source: quality.SourceHDTV, Resolution: quality.Res2160p}))
}

func TestProfile_ShouldUpgrade(t *testing.T) {
	p := quality.DefaultProfile()
	held := quality.Quality{Source: quality.SourceHDTV, Resolution: quality.Res720p}
	candidate := quality.Quality{Source: quality.SourceWebDL, Resolution: quality.Res1080p}
	assert.True(t, p.ShouldUpgrade(held, candidate))
}

func TestProfile_ShouldUpgrade_StopsAtCutoff(t *testing.T) {
	p := quality.DefaultProfile()
	held := quality.Quality{Source: quality.SourceWebDL, Resolution: quality.Res1080p}
	candidate := quality.Quality{Source: quality.SourceRemux, Resolution: quality.Res2160p}
	assert.False(t, p.ShouldUpgrade(held, candidate))
}

func TestProfile_ShouldUpgrade_RejectsDisallowedCandidate(t *testing.T) {
	p := quality.DefaultProfile()
	held := quality.Quality{Source: quality.SourceSDTV, Resolution: quality.ResUnknown}
	candidate := quality.Quality{Source: quality.SourceCAM, Resolution: quality.ResUnknown}
	assert.False(t, p.ShouldUpgrade(held, candidate))
}

func TestProfile_PreferredWordBonus(t *testing.T) {
	p := quality.DefaultProfile()
	p.PreferredWords = []string{"proper", "repack"}
	bonus := p.PreferredWordBonus("movie.title.2024.proper.1080p", strings.Contains)
	assert.Equal(t, 10, bonus)
}
