// Package decision implements the per-entity accept/upgrade evaluator: given
// a single already-ranked candidate and (optionally) the release currently
// held for that movie/season/episode/series, it decides whether a grab
// should proceed and classifies the outcome as new, upgrade, sidegrade,
// downgrade, duplicate, or rejected.
package decision

import (
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/quality"
	"github.com/orchestrd/orchestrd/internal/scoring"
)

// UpgradeStatus classifies a candidate's relationship to whatever is
// currently held for the target entity.
type UpgradeStatus string

const (
	StatusNew       UpgradeStatus = "new"
	StatusUpgrade   UpgradeStatus = "upgrade"
	StatusSidegrade UpgradeStatus = "sidegrade"
	StatusDowngrade UpgradeStatus = "downgrade"
	StatusDuplicate UpgradeStatus = "duplicate"
	StatusRejected  UpgradeStatus = "rejected"
)

// ExistingRelease describes the file currently held for a movie, season,
// episode, or series, supplied by the caller: persisted library state is
// an external collaborator this package never looks up itself.
type ExistingRelease struct {
	Quality     quality.Quality
	Score       int
	Fingerprint string
}

// Options carries the per-call override. Force accepts a candidate
// regardless of upgrade arithmetic, recording that override in Reason.
type Options struct {
	Force bool
}

// Decision is the outcome of evaluating one candidate against one entity's
// current state.
type Decision struct {
	Accepted      bool
	IsUpgrade     bool
	UpgradeStatus UpgradeStatus
	Reason        string
	CandidateScore int
	ExistingScore  int
	RejectionType  scoring.RejectionCode
}

// Service evaluates candidates against an active quality Profile.
type Service struct {
	profile *quality.Profile
	scorer  *scoring.Scorer
}

// New creates a Service bound to profile.
func New(profile *quality.Profile) *Service {
	return &Service{profile: profile, scorer: scoring.New(profile)}
}

// EvaluateForMovie decides whether release should be grabbed for movieID.
func (s *Service) EvaluateForMovie(movieID string, release indexer.ReleaseView, existing *ExistingRelease, opts Options) Decision {
	return s.evaluate(release, existing, opts)
}

// EvaluateForSeason decides whether release should be grabbed as a pack for
// the given series/season.
func (s *Service) EvaluateForSeason(seriesID string, seasonNumber int, release indexer.ReleaseView, existing *ExistingRelease, opts Options) Decision {
	return s.evaluate(release, existing, opts)
}

// EvaluateForEpisode decides whether release should be grabbed for a single
// episode.
func (s *Service) EvaluateForEpisode(episodeID string, release indexer.ReleaseView, existing *ExistingRelease, opts Options) Decision {
	return s.evaluate(release, existing, opts)
}

// EvaluateForSeries decides whether release should be grabbed as a
// complete-series pack for seriesID.
func (s *Service) EvaluateForSeries(seriesID string, release indexer.ReleaseView, existing *ExistingRelease, opts Options) Decision {
	return s.evaluate(release, existing, opts)
}

// evaluate holds the shared accept/upgrade arithmetic all four entity-scoped
// methods delegate to: score the candidate, compare against existing (if
// any), and classify. A candidate the profile rejects is never accepted
// without force. Otherwise accepted is true iff there is no existing file
// (new), the candidate strictly outscores the existing file (upgrade), or
// force overrides the decision regardless of arithmetic.
func (s *Service) evaluate(release indexer.ReleaseView, existing *ExistingRelease, opts Options) Decision {
	sc := s.scorer.Score(release, scoring.Options{})

	if sc.Rejected && !opts.Force {
		return Decision{
			Accepted:      false,
			UpgradeStatus: StatusRejected,
			Reason:        "candidate rejected by quality profile",
			CandidateScore: sc.Value,
			RejectionType:  sc.RejectionReasons[0],
		}
	}

	if existing == nil {
		d := Decision{
			Accepted:       true,
			IsUpgrade:      false,
			UpgradeStatus:  StatusNew,
			Reason:         "no existing release held",
			CandidateScore: sc.Value,
		}
		if opts.Force {
			d.Reason = "forced grab, no existing release held"
		}
		return d
	}

	d := Decision{
		CandidateScore: sc.Value,
		ExistingScore:  existing.Score,
	}

	if existing.Fingerprint != "" && existing.Fingerprint == release.Fingerprint() {
		d.UpgradeStatus = StatusDuplicate
		d.Accepted = opts.Force
		d.Reason = "identical to currently held release"
		if opts.Force {
			d.Reason = "forced grab of a duplicate release"
		}
		return d
	}

	switch {
	case sc.Value > existing.Score:
		d.Accepted = true
		d.IsUpgrade = true
		d.UpgradeStatus = StatusUpgrade
		d.Reason = "candidate scores higher than existing release"
	case sc.Value == existing.Score:
		d.UpgradeStatus = StatusSidegrade
		d.Reason = "candidate matches existing release's score with different attributes"
	default:
		d.UpgradeStatus = StatusDowngrade
		d.Reason = "candidate scores lower than existing release"
	}

	if !d.Accepted && opts.Force {
		d.Accepted = true
		d.Reason = "forced grab overriding " + string(d.UpgradeStatus) + " rejection"
	}

	return d
}
