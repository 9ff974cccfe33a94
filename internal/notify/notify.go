// Package notify defines the Sink interface for outbound notifications
// about grabbed releases and indexer health events, plus a Discord
// webhook-backed sink.
package notify

import "context"

// GrabNotification describes a completed grab for delivery to a sink.
type GrabNotification struct {
	ReleaseTitle     string
	IndexerID        string
	DownloadClientID string
	Quality          string
}

// HealthNotification describes an indexer health transition.
type HealthNotification struct {
	IndexerID string
	Status    string
	Reason    string
}

// Sink delivers notifications to an external channel.
type Sink interface {
	ID() string
	NotifyGrab(ctx context.Context, n GrabNotification) error
	NotifyHealth(ctx context.Context, n HealthNotification) error
}

// Dispatcher fans a notification out to every configured sink,
// independently, so one sink's failure does not block the others.
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher creates a Dispatcher over sinks.
func NewDispatcher(sinks []Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

// NotifyGrab delivers n to every sink, collecting per-sink errors.
func (d *Dispatcher) NotifyGrab(ctx context.Context, n GrabNotification) map[string]error {
	errs := make(map[string]error)
	for _, s := range d.sinks {
		if err := s.NotifyGrab(ctx, n); err != nil {
			errs[s.ID()] = err
		}
	}
	return errs
}

// NotifyHealth delivers n to every sink, collecting per-sink errors.
func (d *Dispatcher) NotifyHealth(ctx context.Context, n HealthNotification) map[string]error {
	errs := make(map[string]error)
	for _, s := range d.sinks {
		if err := s.NotifyHealth(ctx, n); err != nil {
			errs[s.ID()] = err
		}
	}
	return errs
}
