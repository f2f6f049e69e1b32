// Package audit records match events for post-game review. The table
// coordinator emits one event per state transition; where those events end
// up (structured log, PostgreSQL, nowhere) is the recorder's concern.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventType classifies a match event.
type EventType string

// Match event types emitted by the table coordinator.
const (
	EventJoin        EventType = "join"
	EventLeave       EventType = "leave"
	EventMatchStart  EventType = "match_start"
	EventBid         EventType = "bid"
	EventChallenge   EventType = "challenge"
	EventReveal      EventType = "reveal"
	EventElimination EventType = "elimination"
	EventGameOver    EventType = "game_over"
)

// Event is one recorded match occurrence.
type Event struct {
	// MatchID identifies the match the event belongs to.
	MatchID string
	// Type classifies the event.
	Type EventType
	// Player is the acting player's name; empty for table-wide events.
	Player string
	// Detail is a human-readable description of what happened.
	Detail string
	// At is when the event occurred.
	At time.Time
}

// Recorder persists match events.
//
// Implementations MUST be safe for concurrent use; Record is called while
// the table holds its mutation lock, so it should return promptly.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// NopRecorder discards every event.
type NopRecorder struct{}

// Record discards ev.
func (NopRecorder) Record(context.Context, Event) error { return nil }

// LogRecorder writes events to a structured logger. It is the default
// recorder when the PostgreSQL audit store is disabled.
type LogRecorder struct {
	logger *zap.Logger
}

// NewLogRecorder creates a LogRecorder.
//
// Precondition: logger must be non-nil.
func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record logs ev at info level.
func (r *LogRecorder) Record(_ context.Context, ev Event) error {
	r.logger.Info("match event",
		zap.String("match_id", ev.MatchID),
		zap.String("event", string(ev.Type)),
		zap.String("player", ev.Player),
		zap.String("detail", ev.Detail),
		zap.Time("at", ev.At),
	)
	return nil
}
