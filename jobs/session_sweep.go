package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/socdesk/socdesk/internal/jobs"
)

const defaultIdempotencyRetention = 72 * time.Hour

// SessionPurger deletes persisted sessions that expired.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// KeyCleaner drops idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SessionSweepJob purges expired session rows and stale idempotency keys.
type SessionSweepJob struct {
	Sessions SessionPurger
	Keys     KeyCleaner
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewSessionSweepJob initialises the sweep handler.
func NewSessionSweepJob(sessions SessionPurger, keys KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionSweepJob {
	return &SessionSweepJob{
		Sessions: sessions,
		Keys:     keys,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskSessionSweep tasks.
func (j *SessionSweepJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sessions == nil {
		return errors.New("session sweep: handler not configured")
	}
	var payload SessionSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.IdempotencyRetention <= 0 {
		payload.IdempotencyRetention = defaultIdempotencyRetention
	}
	tracker := j.Metrics.Track(TaskSessionSweep)
	defer func() {
		err = tracker.End(err)
	}()

	sessions, err := j.Sessions.DeleteExpiredSessions(ctx, j.now())
	if err != nil {
		return err
	}
	var keys int64
	if j.Keys != nil {
		keys, err = j.Keys.Cleanup(ctx, payload.IdempotencyRetention)
		if err != nil {
			return err
		}
	}
	if j.Logger != nil {
		j.Logger.Info("session sweep complete", slog.Int64("sessions", sessions), slog.Int64("idempotency_keys", keys))
	}
	return nil
}

func (j *SessionSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
