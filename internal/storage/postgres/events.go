package postgres

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/liarsdice/internal/audit"
)

// GameEventRepository stores match events in the game_events table. It
// implements audit.Recorder, so the table coordinator can write through it
// without knowing about PostgreSQL.
type GameEventRepository struct {
	pool *Pool
}

// NewGameEventRepository creates a repository backed by the given pool.
//
// Precondition: pool must be connected.
func NewGameEventRepository(pool *Pool) *GameEventRepository {
	return &GameEventRepository{pool: pool}
}

// Record inserts one match event.
//
// Postcondition: The event row exists, or a non-nil error is returned. The
// caller decides whether a failed insert is fatal; the table coordinator
// logs and continues.
func (r *GameEventRepository) Record(ctx context.Context, ev audit.Event) error {
	const q = `
		INSERT INTO game_events (match_id, event_type, player_name, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.DB().Exec(ctx, q,
		ev.MatchID, string(ev.Type), ev.Player, ev.Detail, ev.At,
	); err != nil {
		return fmt.Errorf("inserting game event: %w", err)
	}
	return nil
}

// ListByMatch returns a match's events in the order they were recorded.
//
// Postcondition: Returns the events ordered by insertion, or a non-nil error.
func (r *GameEventRepository) ListByMatch(ctx context.Context, matchID string) ([]audit.Event, error) {
	const q = `
		SELECT match_id, event_type, player_name, detail, created_at
		FROM game_events
		WHERE match_id = $1
		ORDER BY id`

	rows, err := r.pool.DB().Query(ctx, q, matchID)
	if err != nil {
		return nil, fmt.Errorf("querying game events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var ev audit.Event
		var evType string
		if err := rows.Scan(&ev.MatchID, &evType, &ev.Player, &ev.Detail, &ev.At); err != nil {
			return nil, fmt.Errorf("scanning game event: %w", err)
		}
		ev.Type = audit.EventType(evType)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading game events: %w", err)
	}
	return events, nil
}
