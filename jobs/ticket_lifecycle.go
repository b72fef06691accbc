package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/socdesk/socdesk/internal/jobs"
	"github.com/socdesk/socdesk/internal/shared"
)

// TicketLifecycleJob records terminal ticket transitions for reporting.
type TicketLifecycleJob struct {
	Audit   shared.AuditRecorder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewTicketLifecycleJob initialises the lifecycle handler.
func NewTicketLifecycleJob(audit shared.AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *TicketLifecycleJob {
	return &TicketLifecycleJob{Audit: audit, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTicketLifecycle tasks.
func (j *TicketLifecycleJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("ticket lifecycle: handler not configured")
	}
	var payload TicketLifecyclePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.TicketID == "" {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskTicketLifecycle)
	defer func() {
		err = tracker.End(err)
	}()

	j.Metrics.AddTicketOutcome(payload.To, payload.SLABreached)
	if j.Audit != nil {
		err = j.Audit.Record(ctx, shared.AuditLog{
			ActorID:  payload.ActorID,
			Action:   "ticket.lifecycle." + payload.To,
			Entity:   "ticket",
			EntityID: payload.TicketID,
			Meta:     map[string]any{"from": payload.From, "sla_breached": payload.SLABreached},
			At:       payload.At,
		})
		if err != nil {
			return err
		}
	}
	j.logger().Info("ticket lifecycle recorded",
		slog.String("ticket_id", payload.TicketID),
		slog.String("to", payload.To),
		slog.Bool("sla_breached", payload.SLABreached))
	return nil
}

func (j *TicketLifecycleJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
