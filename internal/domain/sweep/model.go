package sweep

import (
	"context"
	"time"
)

// Job names, also used in cron configuration and the admin trigger.
const (
	JobOrphanFiles        = "orphan-files"
	JobEmbeddingBackfill  = "embedding-backfill"
	JobTTSBackfill        = "tts-backfill"
	JobPresenceExpiration = "presence-expiration"
)

// Job does one unit of background work and returns a JSON friendly result.
type Job func(ctx context.Context) (any, error)

// Report describes one execution.
type Report struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	// Skipped is set when another replica held the lock.
	Skipped bool   `json:"skipped"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Locker provides a cluster wide mutex per job. TryLock returns acquired=false when another holder exists.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(), acquired bool, err error)
}

// Recorder observes executions, typically as metrics.
type Recorder interface {
	Observe(name string, duration time.Duration, err error, skipped bool)
}

// PresenceResult is the outcome of a presence expiration.
type PresenceResult struct {
	Expired int `json:"expired"`
}
