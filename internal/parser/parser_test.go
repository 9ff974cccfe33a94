package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchestrd/orchestrd/internal/parser"
	"github.com/orchestrd/orchestrd/internal/quality"
)

func TestParse_SingleEpisode(t *testing.T) {
	p := parser.Parse("Show.Name.S02E05.1080p.WEB-DL.x264-GROUP")
	assert.Equal(t, 2, p.Season)
	assert.Equal(t, 5, p.Episode)
	assert.Equal(t, 5, p.EpisodeEnd)
	assert.Equal(t, []int{5}, p.Episodes)
	assert.False(t, p.IsSeasonPack)
	assert.Equal(t, quality.Res1080p, p.Resolution)
	assert.Equal(t, "GROUP", p.ReleaseGroup)
}

func TestParse_MultiEpisodeRange(t *testing.T) {
	p := parser.Parse("Show.Name.S02E05-E08.720p.HDTV-GROUP")
	assert.Equal(t, 2, p.Season)
	assert.Equal(t, 5, p.Episode)
	assert.Equal(t, 8, p.EpisodeEnd)
	assert.Equal(t, []int{5, 6, 7, 8}, p.Episodes)
}

func TestParse_SeasonPack(t *testing.T) {
	p := parser.Parse("Show.Name.S03.1080p.BluRay.x264-GROUP")
	assert.Equal(t, 3, p.Season)
	assert.True(t, p.IsSeasonPack)
	assert.Equal(t, 0, p.Episode)
	assert.Empty(t, p.Seasons)
}

func TestParse_FullSeriesComplete(t *testing.T) {
	p := parser.Parse("Show.Name.Season.1.Complete.1080p.WEB-DL-GROUP")
	assert.True(t, p.IsFullSeries)
	assert.Equal(t, 1, p.Season)
}

func TestParse_AltEpisodeFormat(t *testing.T) {
	p := parser.Parse("Show.Name.1x05.720p.HDTV-GROUP")
	assert.Equal(t, 1, p.Season)
	assert.Equal(t, 5, p.Episode)
}

func TestParse_MovieYearAndResolution(t *testing.T) {
	p := parser.Parse("Movie.Title.2023.2160p.BluRay.REMUX-GROUP")
	assert.Equal(t, 2023, p.Year)
	assert.Equal(t, quality.Res2160p, p.Resolution)
	assert.Equal(t, quality.SourceRemux, p.Source)
	assert.True(t, p.IsRemux)
}

func TestParse_ExternalIDs(t *testing.T) {
	p := parser.Parse("Movie.Title.2023.1080p.WEB-DL.{tt1234567}-GROUP")
	assert.Equal(t, "tt1234567", p.ExternalIDs["imdb"])
}

func TestParse_DefaultLanguageEnglish(t *testing.T) {
	p := parser.Parse("Movie.Title.2023.1080p.WEB-DL-GROUP")
	assert.Equal(t, []string{"en"}, p.Languages)
}

func TestParse_ExplicitLanguageTag(t *testing.T) {
	p := parser.Parse("Movie.Title.2023.FRENCH.1080p.WEB-DL-GROUP")
	assert.Contains(t, p.Languages, "fr")
}

func TestParse_AnimeAbsoluteNumbering(t *testing.T) {
	p := parser.Parse("Anime Show - 123 [1080p][GROUP]")
	assert.Equal(t, 123, p.AbsoluteEp)
}

func TestParse_ConfidenceReflectsExtractedFields(t *testing.T) {
	rich := parser.Parse("Movie.Title.2023.1080p.BluRay.{tt1234567}-GROUP")
	sparse := parser.Parse("randomfile")
	assert.Greater(t, rich.Confidence, sparse.Confidence)
}

func TestParse_ConfidenceMonotoneWithCanonicalTokens(t *testing.T) {
	bare := parser.Parse("Movie Title")
	withYear := parser.Parse("Movie.Title.2023")
	withYearAndRes := parser.Parse("Movie.Title.2023.1080p")
	assert.GreaterOrEqual(t, withYear.Confidence, bare.Confidence)
	assert.GreaterOrEqual(t, withYearAndRes.Confidence, withYear.Confidence)
}

func TestParse_Idempotent(t *testing.T) {
	title := "Game.of.Thrones.S01E01.1080p.BluRay.x264-CTRLHD"
	first := parser.Parse(title)
	second := parser.Parse(title)
	assert.Equal(t, first, second)
}

func TestParse_ReleaseGroupExtraction(t *testing.T) {
	p := parser.Parse("Movie.Title.2023.1080p.WEB-DL.DDP5.1-FLUX")
	assert.Equal(t, "FLUX", p.ReleaseGroup)
}

// Scenario 1: tiered ID hit target title.
func TestParse_FullAttributePipeline_Scenario1(t *testing.T) {
	p := parser.Parse("Game.of.Thrones.S01E01.1080p.BluRay.x264-CTRLHD")
	assert.Equal(t, 1, p.Season)
	assert.Equal(t, []int{1}, p.Episodes)
	assert.Equal(t, quality.Res1080p, p.Resolution)
	assert.Equal(t, quality.SourceBluRay, p.Source)
	assert.Equal(t, quality.CodecH264, p.Codec)
	assert.Equal(t, "CTRLHD", p.ReleaseGroup)
}

// Scenario 7: release group extraction via the YTS family normalization.
func TestParse_ReleaseGroupExtraction_Scenario7(t *testing.T) {
	title := "Oppenheimer (2023) [1080p] [WEBRip] [5.1] [YTS.MX]"
	group := parser.ExtractReleaseGroup(title)
	assert.Equal(t, "YTS", group)

	p := parser.Parse(title)
	assert.Equal(t, quality.Res1080p, p.Resolution)
	assert.Equal(t, quality.SourceWebRip, p.Source)
	assert.Equal(t, "YTS", p.ReleaseGroup)
}

// Scenario 8: external-id extraction boundary cases.
func TestExtractExternalIDs_Scenario8(t *testing.T) {
	ids := parser.ExtractExternalIDs("/media/movies/The Godfather (1972) [imdbid-tt0068646]/movie.mkv")
	assert.Equal(t, "tt0068646", ids["imdb"])

	tooShort := parser.ExtractExternalIDs("Movie tt123456")
	assert.Empty(t, tooShort)
}

func TestParse_CodecExtraction(t *testing.T) {
	assert.Equal(t, quality.CodecH265, parser.Parse("Movie.2023.1080p.WEB-DL.x265-GROUP").Codec)
	assert.Equal(t, quality.CodecAV1, parser.Parse("Movie.2023.1080p.WEB-DL.AV1-GROUP").Codec)
	assert.Equal(t, quality.CodecXviD, parser.Parse("Movie.2003.DVDRip.XviD-GROUP").Codec)
}

func TestParse_HDRPrecedence(t *testing.T) {
	assert.Equal(t, quality.DolbyVisionHDR10, parser.Parse("Movie.2023.2160p.DV.HDR10.WEB-DL-GROUP").HDR)
	assert.Equal(t, quality.DolbyVision, parser.Parse("Movie.2023.2160p.DV.WEB-DL-GROUP").HDR)
	assert.Equal(t, quality.HDR10Plus, parser.Parse("Movie.2023.2160p.HDR10+.WEB-DL-GROUP").HDR)
	assert.Equal(t, quality.HDR10, parser.Parse("Movie.2023.2160p.HDR10.WEB-DL-GROUP").HDR)
	assert.Equal(t, quality.HDRStandard, parser.Parse("Movie.2023.2160p.HDR.WEB-DL-GROUP").HDR)
}

func TestParse_AudioPrecedence(t *testing.T) {
	assert.Equal(t, quality.AudioDTSHDMA, parser.Parse("Movie.2023.1080p.BluRay.DTS-HD.MA-GROUP").Audio)
	assert.Equal(t, quality.AudioAtmos, parser.Parse("Movie.2023.1080p.BluRay.TrueHD.Atmos-GROUP").Audio)
	assert.Equal(t, quality.AudioDDPlus, parser.Parse("Movie.2023.1080p.WEB-DL.DDP5.1-GROUP").Audio)
}

func TestParse_ProperAndRepackFlags(t *testing.T) {
	assert.True(t, parser.Parse("Show.S01E01.PROPER.1080p.WEB-DL-GROUP").IsProper)
	assert.True(t, parser.Parse("Show.S01E01.REPACK.1080p.WEB-DL-GROUP").IsRepack)
}
