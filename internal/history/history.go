package history

import (
	"context"
	"time"
)

// EventType defines the kind of spawn lifecycle event.
type EventType string

const (
	// EventSpawn records a successful exec handoff.
	EventSpawn EventType = "spawn"
	// EventExit records a reaped child.
	EventExit EventType = "exit"
	// EventError records a spawn that never produced a child.
	EventError EventType = "error"
)

// Record is the spawn outcome attached to an event. Exit fields are
// meaningful only on EventExit, ErrKind only on EventError.
type Record struct {
	Job       string    `json:"job"`
	Path      string    `json:"path"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	ExitedAt  time.Time `json:"exited_at,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Signal    string    `json:"signal,omitempty"`
	ErrKind   string    `json:"err_kind,omitempty"`
	Uniq      string    `json:"uniq"`
}

// Event is a spawn lifecycle event exported to external systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     Record    `json:"record"`
}

// Sink is a destination for history events (analytics/statistics
// systems). Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
