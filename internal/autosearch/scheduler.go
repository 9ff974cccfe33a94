// Package autosearch schedules periodic automatic searches for wanted
// media via gocron, calling into the orchestrator and decision service on
// the same path an interactive search would use.
package autosearch

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/orchestrd/orchestrd/internal/decision"
	"github.com/orchestrd/orchestrd/internal/grab"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/orchestrator"
	"github.com/orchestrd/orchestrd/internal/quality"
)

// WantedItem is a single piece of media the scheduler should periodically
// search for until it is grabbed.
type WantedItem struct {
	Criteria indexer.SearchCriteria
	Title    string
	Profile  *quality.Profile

	// MediaID identifies the movie/season/episode/series this item tracks,
	// passed through to the decision service's per-entity evaluation.
	MediaID string
	// Existing is the release currently held for MediaID, if any. Always
	// nil until a caller wires in persisted library state; this package
	// never looks it up itself.
	Existing *decision.ExistingRelease
}

// WantedSource supplies the current wanted list at search time, so newly
// added/removed items are picked up without restarting the scheduler.
type WantedSource interface {
	Wanted(ctx context.Context) ([]WantedItem, error)
}

// Scheduler runs automatic searches for every wanted item on an interval.
type Scheduler struct {
	scheduler    gocron.Scheduler
	orchestrator *orchestrator.Orchestrator
	dispatcher   *grab.Dispatcher
	source       WantedSource
	logger       zerolog.Logger
}

// New creates a Scheduler. Start must be called to begin running jobs.
func New(orch *orchestrator.Orchestrator, dispatcher *grab.Dispatcher, source WantedSource, logger zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		scheduler:    s,
		orchestrator: orch,
		dispatcher:   dispatcher,
		source:       source,
		logger:       logger.With().Str("component", "autosearch").Logger(),
	}, nil
}

// Start registers the periodic job at interval and begins the scheduler.
func (s *Scheduler) Start(interval time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.runOnce),
	)
	if err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	items, err := s.source.Wanted(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load wanted items")
		return
	}

	for _, item := range items {
		s.searchAndGrab(ctx, item)
	}
}

func (s *Scheduler) searchAndGrab(ctx context.Context, item WantedItem) {
	opts := orchestrator.DefaultOptions()
	opts.SearchSource = indexer.SearchSourceAutomatic

	result, err := s.orchestrator.Search(ctx, "", item.Criteria, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("title", item.Title).Msg("autosearch failed")
		return
	}
	if len(result.Views) == 0 {
		s.logger.Debug().Str("title", item.Title).Msg("no releases found")
		return
	}

	svc := decision.New(item.Profile)
	best := result.Views[0]

	var d decision.Decision
	switch {
	case item.Criteria.Type == indexer.SearchTV && item.Criteria.TV.SeasonOnly:
		d = svc.EvaluateForSeason(item.MediaID, item.Criteria.TV.Season, best, item.Existing, decision.Options{})
	case item.Criteria.Type == indexer.SearchTV:
		d = svc.EvaluateForEpisode(item.MediaID, best, item.Existing, decision.Options{})
	default:
		d = svc.EvaluateForMovie(item.MediaID, best, item.Existing, decision.Options{})
	}

	if !d.Accepted {
		s.logger.Debug().Str("title", item.Title).Str("reason", d.Reason).Msg("no acceptable release found")
		return
	}

	req := grab.GrabRequest{
		View:       best,
		MediaType:  string(item.Criteria.Type),
		Categories: item.Criteria.Categories,
		IsUpgrade:  d.IsUpgrade,
	}
	if _, err := s.dispatcher.Grab(ctx, req); err != nil {
		s.logger.Warn().Err(err).Str("title", item.Title).Msg("grab dispatch failed")
	}
}
