package tickets

import "time"

// SLA reports how much of a ticket's response window has been used.
type SLA struct {
	Percent          float64 `json:"percent"`
	RemainingSeconds int64   `json:"remaining_seconds"`
	Breached         bool    `json:"breached"`
}

// SLAProgress computes the elapsed share of the window between createdAt and
// deadline at now. Percent is clamped to [0, 100] and remaining time never
// goes negative.
func SLAProgress(createdAt, deadline, now time.Time) SLA {
	breached := now.After(deadline)
	remaining := deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	total := deadline.Sub(createdAt)
	var percent float64
	switch {
	case total <= 0:
		percent = 100
	default:
		percent = float64(now.Sub(createdAt)) / float64(total) * 100
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return SLA{
		Percent:          percent,
		RemainingSeconds: int64(remaining / time.Second),
		Breached:         breached,
	}
}

func withSLA(t Ticket, now time.Time) Ticket {
	if t.SLADeadline == nil || t.Status.Terminal() {
		return t
	}
	sla := SLAProgress(t.CreatedAt, *t.SLADeadline, now)
	t.SLA = &sla
	return t
}
