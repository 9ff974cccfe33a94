// Package quality models resolution/source tiers and the scoring profile
// that governs which releases are acceptable and when an already-grabbed
// release should be upgraded.
package quality

import "fmt"

// Source is the capture source of a release (web, bluray, hdtv, etc.),
// ordered roughly by typical encode fidelity within a given resolution.
type Source string

const (
	SourceUnknown Source = "unknown"
	SourceCAM     Source = "cam"
	SourceTS      Source = "telesync"
	SourceDVD     Source = "dvd"
	SourceSDTV    Source = "sdtv"
	SourceHDTV    Source = "hdtv"
	SourceWebDL   Source = "webdl"
	SourceWebRip  Source = "webrip"
	SourceBluRay  Source = "bluray"
	SourceRemux   Source = "remux"
)

// Resolution is the vertical pixel tier of a release.
type Resolution int

const (
	Res480p    Resolution = 480
	Res576p    Resolution = 576
	Res720p    Resolution = 720
	Res1080p   Resolution = 1080
	Res1440p   Resolution = 1440
	Res2160p   Resolution = 2160
	ResUnknown Resolution = 0
)

// Codec is the video encoding of a release.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecH265    Codec = "h265"
	CodecAV1     Codec = "av1"
	CodecXviD    Codec = "xvid"
	CodecUnknown Codec = "unknown"
)

// HDRFormat is the dynamic-range encoding of a release, ordered by
// dolby-vision + hdr10/hdr combinations taking precedence over either
// alone, then hdr10+ > hdr10 > hdr > hlg.
type HDRFormat string

const (
	HDRNone             HDRFormat = "none"
	HDRStandard         HDRFormat = "hdr"
	HDR10               HDRFormat = "hdr10"
	HDR10Plus           HDRFormat = "hdr10+"
	DolbyVision         HDRFormat = "dolby-vision"
	DolbyVisionHDR10    HDRFormat = "dolby-vision-hdr10"
	HLG                 HDRFormat = "hlg"
)

// AudioFormat is the audio codec/mix of a release. Precedence when more than
// one token matches: dts-hdma > dts-hd > dts, atmos > truehd, dd+ > dd.
type AudioFormat string

const (
	AudioAAC     AudioFormat = "aac"
	AudioDD      AudioFormat = "dd"
	AudioDDPlus  AudioFormat = "dd+"
	AudioDTS     AudioFormat = "dts"
	AudioDTSHD   AudioFormat = "dts-hd"
	AudioDTSHDMA AudioFormat = "dts-hdma"
	AudioDTSX    AudioFormat = "dts-x"
	AudioTrueHD  AudioFormat = "truehd"
	AudioAtmos   AudioFormat = "atmos"
	AudioFLAC    AudioFormat = "flac"
	AudioUnknown AudioFormat = "unknown"
)

// Quality is a (Source, Resolution) pair identifying a release's tier.
type Quality struct {
	Source     Source
	Resolution Resolution
}

func (q Quality) String() string {
	if q.Resolution == ResUnknown {
		return string(q.Source)
	}
	return fmt.Sprintf("%s-%dp", q.Source, q.Resolution)
}

// sourceRank orders sources from worst to best fidelity, independent of resolution.
var sourceRank = map[Source]int{
	SourceUnknown: 0,
	SourceCAM:     1,
	SourceTS:      2,
	SourceSDTV:    3,
	SourceDVD:     4,
	SourceHDTV:    5,
	SourceWebRip:  6,
	SourceWebDL:   7,
	SourceBluRay:  8,
	SourceRemux:   9,
}

// Rank returns a monotonic comparable score for a Quality: resolution is the
// primary axis, source the tiebreaker within the same resolution.
func (q Quality) Rank() int {
	return int(q.Resolution)*100 + sourceRank[q.Source]
}

// Better reports whether q is a strictly higher tier than other.
func (q Quality) Better(other Quality) bool {
	return q.Rank() > other.Rank()
}

// Item is one allowed rung in a Profile's quality ladder.
type Item struct {
	Quality Quality
	Allowed bool
}

// Profile defines which qualities are acceptable for a piece of media and
// the cutoff beyond which no further upgrade is sought.
type Profile struct {
	ID             int64
	Name           string
	Items          []Item
	CutoffQuality  Quality
	UpgradeAllowed bool
	MinScore       int
	PreferredWords []string
	// PreferredWordScore is added per matching PreferredWords hit when scoring.
	PreferredWordScore int
}

// Allows reports whether q is permitted by the profile at all.
func (p *Profile) Allows(q Quality) bool {
	for _, item := range p.Items {
		if item.Quality == q {
			return item.Allowed
		}
	}
	return false
}

// MeetsCutoff reports whether q has reached or exceeded the profile's
// cutoff, meaning no further upgrade should be sought once grabbed.
func (p *Profile) MeetsCutoff(q Quality) bool {
	return q.Rank() >= p.CutoffQuality.Rank()
}

// ShouldUpgrade reports whether candidate is both allowed and strictly
// better than the currently held quality, and the profile permits upgrades
// at all, and the held quality has not already met cutoff.
func (p *Profile) ShouldUpgrade(held, candidate Quality) bool {
	if !p.UpgradeAllowed {
		return false
	}
	if p.MeetsCutoff(held) {
		return false
	}
	if !p.Allows(candidate) {
		return false
	}
	return candidate.Better(held)
}

// PreferredWordBonus returns the cumulative score bonus for preferred-word
// hits found in title (case-insensitive substring match against each
// configured word).
func (p *Profile) PreferredWordBonus(titleLower string, contains func(haystack, needle string) bool) int {
	bonus := 0
	for _, w := range p.PreferredWords {
		if contains(titleLower, w) {
			bonus += p.PreferredWordScore
		}
	}
	return bonus
}

// DefaultProfile returns a standard profile, cutting off at 1080p WebDL,
// that allows only the listed qualities: SDTV (unknown resolution), HDTV
// 720p/1080p, WebDL 720p/1080p/2160p, and BluRay and Remux 1080p/2160p.
// Anything not listed, including CAM, TS, DVD and WebRip, is not allowed.
func DefaultProfile() *Profile {
	items := []Item{
		{Quality: Quality{Source: SourceCAM, Resolution: ResUnknown}, Allowed: false},
		{Quality: Quality{Source: SourceTS, Resolution: ResUnknown}, Allowed: false},
		{Quality: Quality{Source: SourceSDTV, Resolution: ResUnknown}, Allowed: true},
		{Quality: Quality{Source: SourceHDTV, Resolution: Res720p}, Allowed: true},
		{Quality: Quality{Source: SourceHDTV, Resolution: Res1080p}, Allowed: true},
		{Quality: Quality{Source: SourceWebDL, Resolution: Res720p}, Allowed: true},
		{Quality: Quality{Source: SourceWebDL, Resolution: Res1080p}, Allowed: true},
		{Quality: Quality{Source: SourceWebDL, Resolution: Res2160p}, Allowed: true},
		{Quality: Quality{Source: SourceBluRay, Resolution: Res1080p}, Allowed: true},
		{Quality: Quality{Source: SourceBluRay, Resolution: Res2160p}, Allowed: true},
		{Quality: Quality{Source: SourceRemux, Resolution: Res1080p}, Allowed: true},
		{Quality: Quality{Source: SourceRemux, Resolution: Res2160p}, Allowed: true},
	}
	return &Profile{
		Name:               "Standard",
		Items:              items,
		CutoffQuality:      Quality{Source: SourceWebDL, Resolution: Res1080p},
		UpgradeAllowed:     true,
		PreferredWordScore: 10,
	}
}
