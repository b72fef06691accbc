package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTicketLifecycle is emitted when a ticket reaches resolved or closed.
	TaskTicketLifecycle = "ticket:lifecycle"
	// TaskSessionSweep purges expired sessions and idempotency keys.
	TaskSessionSweep = "session:sweep"
)

// TicketLifecyclePayload describes a terminal ticket transition.
type TicketLifecyclePayload struct {
	TicketID    string    `json:"ticket_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ActorID     string    `json:"actor_id"`
	SLABreached bool      `json:"sla_breached"`
	At          time.Time `json:"at"`
}

// NewTicketLifecycleTask constructs an Asynq task.
func NewTicketLifecycleTask(payload TicketLifecyclePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTicketLifecycle, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// SessionSweepPayload configures a sweep run.
type SessionSweepPayload struct {
	IdempotencyRetention time.Duration `json:"idempotency_retention"`
}

// NewSessionSweepTask builds the periodic sweep task.
func NewSessionSweepTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(SessionSweepPayload{IdempotencyRetention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionSweep, body, asynq.Queue(QueueDefault)), nil
}
