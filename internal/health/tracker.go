// Package health tracks per-indexer failure streaks and escalating backoff
// windows, persisted so state survives a restart.
package health

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"
)

// Status is a point-in-time snapshot of an indexer's health.
type Status struct {
	IndexerID            string
	ConsecutiveFailures  int
	LastSuccessAt        *time.Time
	LastFailureAt        *time.Time
	LastFailureReason    string
	BackoffUntil         *time.Time
	Disabled             bool
}

// InBackoff reports whether the indexer is currently within its backoff
// window and should be skipped by the orchestrator.
func (s Status) InBackoff(now time.Time) bool {
	return s.BackoffUntil != nil && now.Before(*s.BackoffUntil)
}

// Tracker persists indexer health to the database and computes escalating
// backoff windows on repeated failure.
type Tracker struct {
	db                    *sql.DB
	failureThreshold      int
	backoffMultiplier     float64
	initialBackoff        time.Duration
	maxBackoff            time.Duration
}

// Config controls backoff escalation policy.
type Config struct {
	FailureThreshold      int
	BackoffMultiplier     float64
	InitialBackoffMinutes int
	MaxBackoffHours       int
}

// New creates a health Tracker backed by db.
func New(db *sql.DB, cfg Config) *Tracker {
	return &Tracker{
		db:                db,
		failureThreshold:  cfg.FailureThreshold,
		backoffMultiplier: cfg.BackoffMultiplier,
		initialBackoff:    time.Duration(cfg.InitialBackoffMinutes) * time.Minute,
		maxBackoff:        time.Duration(cfg.MaxBackoffHours) * time.Hour,
	}
}

// Get returns the current status for indexerID, defaulting to a healthy
// zero-value status if no record exists yet.
func (t *Tracker) Get(ctx context.Context, indexerID string) (Status, error) {
	row := t.db.QueryRowContext(ctx, `
		SELECT consecutive_failures, last_success_at, last_failure_at,
		       last_failure_reason, backoff_until, disabled
		FROM indexer_status WHERE indexer_id = ?`, indexerID)

	var s Status
	s.IndexerID = indexerID
	var lastSuccess, lastFailure, backoffUntil sql.NullTime
	var reason sql.NullString
	err := row.Scan(&s.ConsecutiveFailures, &lastSuccess, &lastFailure, &reason, &backoffUntil, &s.Disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return Status{}, err
	}
	if lastSuccess.Valid {
		s.LastSuccessAt = &lastSuccess.Time
	}
	if lastFailure.Valid {
		s.LastFailureAt = &lastFailure.Time
	}
	if backoffUntil.Valid {
		s.BackoffUntil = &backoffUntil.Time
	}
	s.LastFailureReason = reason.String
	return s, nil
}

// RecordSuccess resets the failure streak and clears any active backoff.
func (t *Tracker) RecordSuccess(ctx context.Context, indexerID string) error {
	now := time.Now()
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO indexer_status (indexer_id, consecutive_failures, last_success_at, backoff_until, updated_at)
		VALUES (?, 0, ?, NULL, ?)
		ON CONFLICT(indexer_id) DO UPDATE SET
			consecutive_failures = 0,
			last_success_at = excluded.last_success_at,
			backoff_until = NULL,
			updated_at = excluded.updated_at`,
		indexerID, now, now)
	return err
}

// RecordFailure increments the failure streak and, once the failure
// threshold is crossed, computes an escalating backoff window:
// initialBackoff * multiplier^(failures-threshold), capped at maxBackoff.
func (t *Tracker) RecordFailure(ctx context.Context, indexerID, reason string) (Status, error) {
	current, err := t.Get(ctx, indexerID)
	if err != nil {
		return Status{}, err
	}

	now := time.Now()
	failures := current.ConsecutiveFailures + 1

	var backoffUntil *time.Time
	if failures >= t.failureThreshold {
		escalations := failures - t.failureThreshold
		backoff := time.Duration(float64(t.initialBackoff) * math.Pow(t.backoffMultiplier, float64(escalations)))
		if backoff > t.maxBackoff {
			backoff = t.maxBackoff
		}
		until := now.Add(backoff)
		backoffUntil = &until
	}

	_, err = t.db.ExecContext(ctx, `
		INSERT INTO indexer_status (indexer_id, consecutive_failures, last_failure_at, last_failure_reason, backoff_until, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(indexer_id) DO UPDATE SET
			consecutive_failures = excluded.consecutive_failures,
			last_failure_at = excluded.last_failure_at,
			last_failure_reason = excluded.last_failure_reason,
			backoff_until = excluded.backoff_until,
			updated_at = excluded.updated_at`,
		indexerID, failures, now, reason, backoffUntil, now)
	if err != nil {
		return Status{}, err
	}

	current.ConsecutiveFailures = failures
	current.LastFailureAt = &now
	current.LastFailureReason = reason
	current.BackoffUntil = backoffUntil
	return current, nil
}

// SweepExpired clears backoff windows that have elapsed, so a subsequent
// Get reflects availability without relying on InBackoff's time comparison
// alone (used by a scheduled maintenance pass to also log recoveries).
func (t *Tracker) SweepExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		UPDATE indexer_status SET backoff_until = NULL, updated_at = ?
		WHERE backoff_until IS NOT NULL AND backoff_until <= ?`,
		time.Now(), time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
