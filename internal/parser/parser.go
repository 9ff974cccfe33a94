// Package parser extracts structured release metadata from free-form
// indexer titles: year, season/episode ranges, anime absolute numbering,
// source/resolution/codec/HDR/audio hints, release group, language tags,
// and embedded external IDs. Pure and deterministic: no I/O, same input
// always yields the same ParsedRelease.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/quality"
)

var (
	yearRe = regexp.MustCompile(`\b(19[5-9]\d|20[0-4]\d)\b`)

	// S01E01, S01E01E02, S01E01-E03
	seasonEpisodeRe = regexp.MustCompile(`(?i)\bS(\d{1,3})E(\d{1,4})(?:-?E(\d{1,4}))?\b`)
	// S01E01-05 style range without repeated E
	seasonEpisodeRangeRe = regexp.MustCompile(`(?i)\bS(\d{1,3})E(\d{1,4})-(\d{1,4})\b`)
	// Multi-season packs: S01-S05, Seasons 1-5
	multiSeasonRe     = regexp.MustCompile(`(?i)\bS(\d{1,3})-S(\d{1,3})\b`)
	multiSeasonWordRe = regexp.MustCompile(`(?i)\bSeasons?\s?(\d{1,3})\s?-\s?(\d{1,3})\b`)
	// Season-pack markers: S01, Season 1, Complete
	seasonPackRe    = regexp.MustCompile(`(?i)\bS(\d{1,3})\b(?:[^E]|$)`)
	seasonWordRe    = regexp.MustCompile(`(?i)\bSeason\s?(\d{1,3})\b`)
	completeSeriesRe = regexp.MustCompile(`(?i)\b(complete series|all seasons)\b`)
	completeRe      = regexp.MustCompile(`(?i)\b(complete|full season)\b`)

	// 1x01 style
	altEpisodeRe = regexp.MustCompile(`\b(\d{1,3})x(\d{1,4})\b`)

	// Daily show dates: 2024.03.15
	dailyRe = regexp.MustCompile(`\b(19[5-9]\d|20[0-4]\d)[.\-](\d{2})[.\-](\d{2})\b`)

	// Anime absolute numbering: " - 123 " or "Ep123"
	absoluteEpRe = regexp.MustCompile(`(?i)(?:\s-\s*|(?:^|[\s\-])ep)(\d{2,4})(?:[\s\-]|$|v\d)`)

	resolutionRe = regexp.MustCompile(`(?i)\b(480|576|720|1080|1440|2160)p\b`)

	properRe = regexp.MustCompile(`(?i)\bproper\b`)
	repackRe = regexp.MustCompile(`(?i)\brepack\b`)
	threeDRe = regexp.MustCompile(`(?i)\b3d\b`)

	imdbRe        = regexp.MustCompile(`(?i)\b(tt\d{7,9})\b`)
	tmdbRe        = regexp.MustCompile(`(?i)\b(?:tmdb|tmdbid)[-_=]?(\d+)\b`)
	tvdbRe        = regexp.MustCompile(`(?i)\b(?:tvdb|tvdbid)[-_=]?(\d+)\b`)

	ytsRe            = regexp.MustCompile(`(?i)\[?YTS(?:\.[A-Za-z]{2,3})?\]?`)
	animeFansubRe    = regexp.MustCompile(`^\[([A-Za-z0-9 _-]{2,20})\]`)
	hyphenGroupRe    = regexp.MustCompile(`-([A-Za-z0-9]+(?:-[A-Za-z0-9]+)?)$`)
	bracketSuffixRe  = regexp.MustCompile(`[\[({]([^\])}]{2,20})[\])}]\s*$`)
	atGroupRe        = regexp.MustCompile(`@([A-Za-z0-9]+)`)
	tildeGroupRe     = regexp.MustCompile(`~([A-Za-z0-9]+)~`)
	trailingWordRe   = regexp.MustCompile(`\s([A-Z0-9]{2,20})$`)
	bracketEmbeddedRe = regexp.MustCompile(`\[[^\]]*-([A-Za-z0-9]+)\]`)
	sizeWordRe       = regexp.MustCompile(`(?i)^\d+(\.\d+)?(mb|gb|kb)$`)
	bareYearRe       = regexp.MustCompile(`^(19\d{2}|20\d{2})$`)

	indexerPrefixRe = regexp.MustCompile(`(?i)^www\.[a-z0-9.-]+\.[a-z]{2,4}\s*-\s*`)
	indexerSuffixRe = regexp.MustCompile(`(?i)\s*\[?\b(EZTV|YIFY|RARBG|TGx|ETTV)\]?\s*$`)
	videoExtRe      = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|wmv|mov)$`)
)

// languageWords is an ordered list (not a map) so extractLanguages produces
// a stable order across calls on the same title, preserving parser
// idempotency.
var languageWords = []struct{ word, code string }{
	{"english", "en"},
	{"french", "fr"},
	{"german", "de"},
	{"spanish", "es"},
	{"italian", "it"},
	{"japanese", "ja"},
	{"korean", "ko"},
	{"russian", "ru"},
	{"multi", "multi"},
	{"vostfr", "fr"},
}

// defaultLanguages is assumed when no language tag is present in the
// title, matching the convention that untagged releases are English.
var defaultLanguages = []string{"en"}

// sourceTokens is checked in order; earlier entries win when more than one
// token is present (remux/bluray variants before the plainer web/hdtv/dvd
// ones, so "BluRay REMUX" classifies as remux, not bluray).
var sourceTokens = []struct {
	re     *regexp.Regexp
	source quality.Source
}{
	{regexp.MustCompile(`(?i)\bremux\b`), quality.SourceRemux},
	{regexp.MustCompile(`(?i)\b(blu-?ray|bdrip|bd)\b`), quality.SourceBluRay},
	{regexp.MustCompile(`(?i)\bweb-?dl\b`), quality.SourceWebDL},
	{regexp.MustCompile(`(?i)\bwebrip\b`), quality.SourceWebRip},
	{regexp.MustCompile(`(?i)\bweb\b`), quality.SourceWebDL},
	{regexp.MustCompile(`(?i)\bhdtv\b`), quality.SourceHDTV},
	{regexp.MustCompile(`(?i)\bsdtv\b`), quality.SourceSDTV},
	{regexp.MustCompile(`(?i)\bdvdrip\b`), quality.SourceDVD},
	{regexp.MustCompile(`(?i)\bdvd\b`), quality.SourceDVD},
	{regexp.MustCompile(`(?i)\b(hdts|telesync|ts)\b`), quality.SourceTS},
	{regexp.MustCompile(`(?i)\bcam\b`), quality.SourceCAM},
}

var codecTokens = []struct {
	re    *regexp.Regexp
	codec quality.Codec
}{
	{regexp.MustCompile(`(?i)\b(x265|h\.?265|hevc)\b`), quality.CodecH265},
	{regexp.MustCompile(`(?i)\b(x264|h\.?264|avc)\b`), quality.CodecH264},
	{regexp.MustCompile(`(?i)\bav1\b`), quality.CodecAV1},
	{regexp.MustCompile(`(?i)\b(xvid|divx)\b`), quality.CodecXviD},
}

// audioTokens is checked in order, most-specific first, so that a release
// with both a core codec and an object-based enhancement token classifies
// as the enhancement (dts-hdma > dts-hd > dts, atmos > truehd, dd+ > dd).
// Leading \b only (no trailing boundary) on the bitrate-suffixed formats:
// titles commonly glue a channel count directly onto the token ("DD5.1",
// "DDP5.1"), leaving no word boundary before the digits.
var audioTokens = []struct {
	re    *regexp.Regexp
	audio quality.AudioFormat
}{
	{regexp.MustCompile(`(?i)\bdts-?x\b`), quality.AudioDTSX},
	{regexp.MustCompile(`(?i)\bdts-?hd[.\s]?ma\b`), quality.AudioDTSHDMA},
	{regexp.MustCompile(`(?i)\bdts-?hd\b`), quality.AudioDTSHD},
	{regexp.MustCompile(`(?i)\bdts\b`), quality.AudioDTS},
	{regexp.MustCompile(`(?i)\batmos\b`), quality.AudioAtmos},
	{regexp.MustCompile(`(?i)\btruehd\b`), quality.AudioTrueHD},
	{regexp.MustCompile(`(?i)\b(dd\+|ddp|e-?ac-?3)`), quality.AudioDDPlus},
	{regexp.MustCompile(`(?i)\b(dd|ac-?3|dolby digital)`), quality.AudioDD},
	{regexp.MustCompile(`(?i)\baac\b`), quality.AudioAAC},
	{regexp.MustCompile(`(?i)\bflac\b`), quality.AudioFLAC},
}

var dolbyVisionRe = regexp.MustCompile(`(?i)\b(dolby.?vision|dv)\b`)
var hdr10PlusRe = regexp.MustCompile(`(?i)\bhdr10\+`)
var hdr10Re = regexp.MustCompile(`(?i)\bhdr10\b`)
var hdrRe = regexp.MustCompile(`(?i)\bhdr\b`)
var hlgRe = regexp.MustCompile(`(?i)\bhlg\b`)

// releaseGroupBlacklist rejects candidates that are actually quality,
// codec, source, or audio tokens misread as a release group.
var releaseGroupBlacklist = map[string]struct{}{
	"480p": {}, "576p": {}, "720p": {}, "1080p": {}, "1440p": {}, "2160p": {},
	"hdtv": {}, "sdtv": {}, "webdl": {}, "webrip": {}, "web": {}, "bluray": {}, "bdrip": {}, "bd": {},
	"dvdrip": {}, "dvd": {}, "cam": {}, "telesync": {}, "hdts": {}, "ts": {}, "remux": {},
	"x264": {}, "x265": {}, "h264": {}, "h265": {}, "hevc": {}, "avc": {}, "av1": {}, "xvid": {}, "divx": {},
	"aac": {}, "dts": {}, "dtshd": {}, "ddp": {}, "dd": {}, "atmos": {}, "truehd": {}, "flac": {}, "ac3": {},
	"internal": {}, "proper": {}, "repack": {}, "limited": {}, "extended": {}, "unrated": {},
	"eztv": {}, "yify": {}, "rarbg": {}, "tgx": {}, "ettv": {},
}

// Parse extracts a ParsedRelease from a raw title string.
func Parse(title string) indexer.ParsedRelease {
	p := indexer.ParsedRelease{
		Title:       title,
		ExternalIDs: map[string]string{},
	}

	extractExternalIDs(title, p.ExternalIDs)

	normalized := normalize(title)

	p.Year = extractYear(normalized)
	p.Resolution = extractResolution(normalized)
	p.Source = extractSource(normalized)
	p.Codec = extractCodec(normalized)
	p.HDR = extractHDR(normalized)
	p.Audio = extractAudio(normalized)
	p.IsProper = properRe.MatchString(normalized)
	p.IsRepack = repackRe.MatchString(normalized)
	p.Is3D = threeDRe.MatchString(normalized)
	p.IsRemux = p.Source == quality.SourceRemux

	p.ReleaseGroup = extractReleaseGroup(title)
	p.Languages = extractLanguages(normalized)

	extractEpisodeInfo(normalized, &p)

	p.CleanTitle = extractCleanTitle(normalized)

	p.Confidence = computeConfidence(p)

	return p
}

// normalize replaces dot/underscore separators with spaces and strips
// common indexer prefixes/suffixes and a trailing video extension, so
// downstream token matching sees clean word boundaries.
func normalize(title string) string {
	t := videoExtRe.ReplaceAllString(title, "")
	t = indexerPrefixRe.ReplaceAllString(t, "")
	t = indexerSuffixRe.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, ".", " ")
	t = strings.ReplaceAll(t, "_", " ")
	t = strings.Join(strings.Fields(t), " ")
	return t
}

func extractYear(title string) int {
	m := yearRe.FindString(title)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

func extractResolution(title string) quality.Resolution {
	m := resolutionRe.FindStringSubmatch(title)
	if m == nil {
		return quality.ResUnknown
	}
	r, _ := strconv.Atoi(m[1])
	return quality.Resolution(r)
}

func extractSource(title string) quality.Source {
	for _, tok := range sourceTokens {
		if tok.re.MatchString(title) {
			return tok.source
		}
	}
	return quality.SourceUnknown
}

func extractCodec(title string) quality.Codec {
	for _, tok := range codecTokens {
		if tok.re.MatchString(title) {
			return tok.codec
		}
	}
	return quality.CodecUnknown
}

// extractHDR applies the documented precedence: dolby-vision combined with
// hdr10/hdr collapses to dolby-vision-hdr10; dolby-vision alone stays
// dolby-vision; otherwise hdr10+ > hdr10 > hdr > hlg.
func extractHDR(title string) quality.HDRFormat {
	dv := dolbyVisionRe.MatchString(title)
	hasHDRFamily := hdr10Re.MatchString(title) || hdrRe.MatchString(title)
	if dv && hasHDRFamily {
		return quality.DolbyVisionHDR10
	}
	if dv {
		return quality.DolbyVision
	}
	switch {
	case hdr10PlusRe.MatchString(title):
		return quality.HDR10Plus
	case hdr10Re.MatchString(title):
		return quality.HDR10
	case hdrRe.MatchString(title):
		return quality.HDRStandard
	case hlgRe.MatchString(title):
		return quality.HLG
	default:
		return quality.HDRNone
	}
}

func extractAudio(title string) quality.AudioFormat {
	for _, tok := range audioTokens {
		if tok.re.MatchString(title) {
			return tok.audio
		}
	}
	return quality.AudioUnknown
}

// extractReleaseGroup tries, in order, the cascade of group-extraction
// strategies: anime fansub prefix, the YTS family (normalized to the
// canonical "YTS"), a hyphen-suffix group, a trailing bracket suffix,
// @GROUP / ~GROUP~ conventions, a trailing capitalized word, a group
// embedded inside a quality bracket, and finally the last dash-separated
// token. Each candidate is checked against the blacklist before being
// accepted; rejected candidates fall through to the next strategy.
// ExtractReleaseGroup runs the release-group cascade on its own, for
// callers that only need the group (e.g. import-path classification)
// without a full parse.
func ExtractReleaseGroup(title string) string {
	return extractReleaseGroup(title)
}

func extractReleaseGroup(title string) string {
	cleaned := strings.TrimSuffix(title, trailingExtension(title))

	if m := animeFansubRe.FindStringSubmatch(cleaned); m != nil {
		if c, ok := acceptGroup(m[1]); ok {
			return c
		}
	}
	if ytsRe.MatchString(cleaned) {
		return "YTS"
	}
	if m := hyphenGroupRe.FindStringSubmatch(cleaned); m != nil {
		if c, ok := acceptGroup(m[1]); ok {
			return c
		}
	}
	if m := bracketSuffixRe.FindStringSubmatch(cleaned); m != nil {
		if c, ok := acceptGroup(m[1]); ok {
			return c
		}
	}
	if m := atGroupRe.FindStringSubmatch(cleaned); m != nil {
		if c, ok := acceptGroup(m[1]); ok {
			return c
		}
	}
	if m := tildeGroupRe.FindStringSubmatch(cleaned); m != nil {
		if c, ok := acceptGroup(m[1]); ok {
			return c
		}
	}
	if m := trailingWordRe.FindStringSubmatch(cleaned); m != nil {
		if c, ok := acceptGroup(m[1]); ok {
			return c
		}
	}
	if m := bracketEmbeddedRe.FindStringSubmatch(cleaned); m != nil {
		if c, ok := acceptGroup(m[1]); ok {
			return c
		}
	}
	if parts := strings.Split(cleaned, "-"); len(parts) > 1 {
		if c, ok := acceptGroup(parts[len(parts)-1]); ok {
			return c
		}
	}
	return ""
}

// acceptGroup validates a candidate group string against the blacklist and
// the length/charset constraints from the cascade.
func acceptGroup(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if len(candidate) < 2 || len(candidate) > 20 {
		return "", false
	}
	lower := strings.ToLower(candidate)
	if _, blocked := releaseGroupBlacklist[lower]; blocked {
		return "", false
	}
	if resolutionRe.MatchString(candidate + "p") {
		return "", false
	}
	if sizeWordRe.MatchString(candidate) {
		return "", false
	}
	if bareYearRe.MatchString(candidate) {
		return "", false
	}
	return candidate, true
}

// trailingExtension returns a trailing file extension like ".mkv" if
// present, so the release-group regex isn't thrown off by it.
func trailingExtension(title string) string {
	idx := strings.LastIndex(title, ".")
	if idx == -1 || idx < len(title)-5 {
		return ""
	}
	ext := title[idx:]
	if strings.ContainsAny(ext, " -") {
		return ""
	}
	return ext
}

func extractLanguages(title string) []string {
	lower := strings.ToLower(title)
	var found []string
	seen := map[string]struct{}{}
	for _, lw := range languageWords {
		if strings.Contains(lower, lw.word) {
			if _, ok := seen[lw.code]; !ok {
				seen[lw.code] = struct{}{}
				found = append(found, lw.code)
			}
		}
	}
	if len(found) == 0 {
		return append([]string{}, defaultLanguages...)
	}
	return found
}

// extractExternalIDs supports tmdb/tvdb numeric IDs and IMDB's tt-prefixed
// ID, requiring at least 7 digits after "tt" (shorter matches are rejected
// even when a bare tt\d+ pattern is present).
// ExtractExternalIDs pulls imdb/tmdb/tvdb ids out of a title or file path,
// for callers classifying an already-imported file rather than a search
// result (e.g. a library path like ".../Movie (1972) [imdbid-tt0068646]/").
func ExtractExternalIDs(path string) map[string]string {
	ids := map[string]string{}
	extractExternalIDs(path, ids)
	return ids
}

func extractExternalIDs(title string, ids map[string]string) {
	if m := imdbRe.FindStringSubmatch(title); m != nil {
		ids["imdb"] = strings.ToLower(m[1])
	}
	if m := tmdbRe.FindStringSubmatch(title); m != nil {
		ids["tmdb"] = m[1]
	}
	if m := tvdbRe.FindStringSubmatch(title); m != nil {
		ids["tvdb"] = m[1]
	}
}

func extractEpisodeInfo(title string, p *indexer.ParsedRelease) {
	if m := dailyRe.FindStringSubmatch(title); m != nil {
		p.IsDaily = true
		p.AirDate = m[1] + "-" + m[2] + "-" + m[3]
		return
	}

	if m := seasonEpisodeRangeRe.FindStringSubmatch(title); m != nil {
		p.Season, _ = strconv.Atoi(m[1])
		p.Episode, _ = strconv.Atoi(m[2])
		p.EpisodeEnd, _ = strconv.Atoi(m[3])
		p.Episodes = episodeRange(p.Episode, p.EpisodeEnd)
		return
	}

	if m := seasonEpisodeRe.FindStringSubmatch(title); m != nil {
		p.Season, _ = strconv.Atoi(m[1])
		p.Episode, _ = strconv.Atoi(m[2])
		p.EpisodeEnd = p.Episode
		if m[3] != "" {
			p.EpisodeEnd, _ = strconv.Atoi(m[3])
		}
		p.Episodes = episodeRange(p.Episode, p.EpisodeEnd)
		return
	}

	if m := altEpisodeRe.FindStringSubmatch(title); m != nil {
		p.Season, _ = strconv.Atoi(m[1])
		p.Episode, _ = strconv.Atoi(m[2])
		p.EpisodeEnd = p.Episode
		p.Episodes = []int{p.Episode}
		return
	}

	if completeSeriesRe.MatchString(title) {
		p.IsFullSeries = true
		p.Seasons = []int{1}
		return
	}

	if m := multiSeasonRe.FindStringSubmatch(title); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		p.Seasons = seasonRange(start, end)
		p.IsFullSeries = start == 1
		return
	}
	if m := multiSeasonWordRe.FindStringSubmatch(title); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		p.Seasons = seasonRange(start, end)
		p.IsFullSeries = start == 1
		return
	}

	if completeRe.MatchString(title) {
		p.IsFullSeries = true
		if m := seasonWordRe.FindStringSubmatch(title); m != nil {
			p.Season, _ = strconv.Atoi(m[1])
		}
		return
	}

	if m := seasonWordRe.FindStringSubmatch(title); m != nil {
		p.Season, _ = strconv.Atoi(m[1])
		p.IsSeasonPack = true
		return
	}

	if m := seasonPackRe.FindStringSubmatch(title); m != nil {
		p.Season, _ = strconv.Atoi(m[1])
		p.IsSeasonPack = true
		return
	}

	// No season/episode markers found at all: check for anime absolute
	// numbering as a fallback (e.g. "Show Name - 123 [1080p]").
	if m := absoluteEpRe.FindStringSubmatch(title); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			p.AbsoluteEp = n
			p.Episode = n
			p.EpisodeEnd = n
			p.Episodes = []int{n}
		}
	}
}

func episodeRange(start, end int) []int {
	if end < start {
		end = start
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}

func seasonRange(start, end int) []int {
	if end < start {
		end = start
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}

// markerIndexes used by extractCleanTitle to find the earliest point a
// quality/episode/year token begins, so the clean title is everything
// before the first such marker.
var markerRes = []*regexp.Regexp{
	yearRe, resolutionRe, seasonEpisodeRe, seasonEpisodeRangeRe, altEpisodeRe,
	seasonPackRe, seasonWordRe, completeRe, dailyRe,
}

func extractCleanTitle(normalized string) string {
	earliest := len(normalized)
	for _, re := range markerRes {
		if loc := re.FindStringIndex(normalized); loc != nil && loc[0] < earliest {
			earliest = loc[0]
		}
	}
	clean := strings.TrimSpace(normalized[:earliest])
	if clean == "" {
		clean = strings.TrimSpace(normalized)
	}
	return titleCase(clean)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// computeConfidence is a coarse signal of how much structure was
// successfully extracted, as a weighted fraction of the facts the source
// algorithm considers diagnostic: year, resolution, source, codec,
// release group, and episode info.
func computeConfidence(p indexer.ParsedRelease) float64 {
	const weight = 1.0 / 6.0
	score := 0.0
	if p.Year > 0 {
		score += weight
	}
	if p.Resolution != quality.ResUnknown {
		score += weight
	}
	if p.Source != quality.SourceUnknown {
		score += weight
	}
	if p.Codec != quality.CodecUnknown {
		score += weight
	}
	if p.ReleaseGroup != "" {
		score += weight
	}
	if p.Season > 0 || len(p.Seasons) > 0 || p.AbsoluteEp > 0 || p.IsFullSeries || p.IsDaily {
		score += weight
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
