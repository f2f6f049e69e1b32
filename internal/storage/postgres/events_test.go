package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/liarsdice/internal/audit"
	"github.com/cory-johannsen/liarsdice/internal/storage/postgres"
	"github.com/cory-johannsen/liarsdice/internal/testutil"
)

func makeEvent(matchID string, evType audit.EventType, player, detail string) audit.Event {
	return audit.Event{
		MatchID: matchID,
		Type:    evType,
		Player:  player,
		Detail:  detail,
		At:      time.Now().UTC(),
	}
}

func TestGameEventRepository_RecordAndList(t *testing.T) {
	repo := postgres.NewGameEventRepository(testutil.NewPool(t))
	ctx := context.Background()
	matchID := uuid.NewString()

	events := []audit.Event{
		makeEvent(matchID, audit.EventJoin, "Alice", "seat 1 of 2"),
		makeEvent(matchID, audit.EventJoin, "Bob", "seat 2 of 2"),
		makeEvent(matchID, audit.EventMatchStart, "", "2 players, 5 dice each"),
		makeEvent(matchID, audit.EventBid, "Alice", "3 dice showing 4"),
		makeEvent(matchID, audit.EventChallenge, "Bob", "disputes 3 dice showing 4 by Alice"),
		makeEvent(matchID, audit.EventGameOver, "Bob", "Bob wins the game!"),
	}
	for _, ev := range events {
		require.NoError(t, repo.Record(ctx, ev))
	}

	got, err := repo.ListByMatch(ctx, matchID)
	require.NoError(t, err)
	require.Len(t, got, len(events))

	// Events come back in insertion order with their fields intact.
	for i, ev := range events {
		assert.Equal(t, matchID, got[i].MatchID)
		assert.Equal(t, ev.Type, got[i].Type)
		assert.Equal(t, ev.Player, got[i].Player)
		assert.Equal(t, ev.Detail, got[i].Detail)
		assert.WithinDuration(t, ev.At, got[i].At, time.Second)
	}
}

func TestGameEventRepository_ListByMatch_Empty(t *testing.T) {
	repo := postgres.NewGameEventRepository(testutil.NewPool(t))

	got, err := repo.ListByMatch(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGameEventRepository_IsolatesMatches(t *testing.T) {
	repo := postgres.NewGameEventRepository(testutil.NewPool(t))
	ctx := context.Background()

	first := uuid.NewString()
	second := uuid.NewString()
	require.NoError(t, repo.Record(ctx, makeEvent(first, audit.EventJoin, "Alice", "")))
	require.NoError(t, repo.Record(ctx, makeEvent(second, audit.EventJoin, "Bob", "")))

	got, err := repo.ListByMatch(ctx, first)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Player)
}
