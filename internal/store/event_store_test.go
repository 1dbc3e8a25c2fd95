package store

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewEventStore(db)
	event := createTestEvent(t, db, battle.EventUpcoming)

	fetched, err := store.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)

	assert.Equal(t, event.ID, fetched.ID)
	assert.Equal(t, event.Title, fetched.Title)
	assert.Equal(t, event.Theme, fetched.Theme)
	assert.Equal(t, battle.EventUpcoming, fetched.Status)
	assert.Nil(t, fetched.MidwayTime)
	assert.Nil(t, fetched.MidwayTheme)
	assert.WithinDuration(t, event.StartTime, fetched.StartTime, 0)
	assert.WithinDuration(t, event.EndTime, fetched.EndTime, 0)
}

func TestAdvanceStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewEventStore(db)
	event := createTestEvent(t, db, battle.EventUpcoming)

	advanced, err := store.AdvanceStatus(ctx, event.ID, battle.EventUpcoming, battle.EventOngoing)
	require.NoError(t, err)
	assert.True(t, advanced)

	// A second writer working from the stale status does nothing
	advanced, err = store.AdvanceStatus(ctx, event.ID, battle.EventUpcoming, battle.EventOngoing)
	require.NoError(t, err)
	assert.False(t, advanced)

	unfinished, err := store.GetUnfinishedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, unfinished, 1)

	advanced, err = store.AdvanceStatus(ctx, event.ID, battle.EventOngoing, battle.EventEnded)
	require.NoError(t, err)
	assert.True(t, advanced)

	unfinished, err = store.GetUnfinishedEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, unfinished)
}

func TestAdvanceStatus_Rejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewEventStore(db)
	event := createTestEvent(t, db, battle.EventOngoing)

	tests := []struct {
		name string
		from battle.EventStatus
		to   battle.EventStatus
	}{
		{"unknown target", battle.EventOngoing, battle.EventStatus("paused")},
		{"empty target", battle.EventOngoing, ""},
		{"backwards", battle.EventOngoing, battle.EventUpcoming},
		{"same status", battle.EventOngoing, battle.EventOngoing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advanced, err := store.AdvanceStatus(ctx, event.ID, tt.from, tt.to)
			assert.ErrorIs(t, err, ErrInvalidStatus)
			assert.False(t, advanced)

			fetched, err := store.GetEvent(ctx, event.ID)
			require.NoError(t, err)
			assert.Equal(t, battle.EventOngoing, fetched.Status)
		})
	}
}

func TestCreateEvent_InvalidStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	event := &battle.Event{ID: uuid.New(), Title: "Broken", Theme: "Dragons", Status: battle.EventStatus("paused")}
	err := NewEventStore(db).CreateEvent(context.Background(), db, event)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParticipants(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewEventStore(db)
	event := createTestEvent(t, db, battle.EventOngoing)
	alice := createTestProfile(t, db, "alice")
	bob := createTestProfile(t, db, "bob")
	carol := createTestProfile(t, db, "carol")

	missing, err := store.FindParticipant(ctx, db, event.ID, alice)
	require.NoError(t, err)
	assert.Nil(t, missing)

	joinTestEvent(t, db, event.ID, alice, battle.TeamA)
	joinTestEvent(t, db, event.ID, bob, battle.TeamB)
	joinTestEvent(t, db, event.ID, carol, battle.TeamA)

	found, err := store.FindParticipant(ctx, db, event.ID, bob)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, battle.TeamB, found.Team)

	countA, countB, err := store.CountTeamMembers(ctx, db, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, countA)
	assert.Equal(t, 1, countB)

	emptyA, emptyB, err := store.CountTeamMembers(ctx, db, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, emptyA)
	assert.Zero(t, emptyB)

	// (event_id, user_id) is unique
	err = store.CreateParticipant(ctx, db, &battle.Participant{EventID: event.ID, UserID: alice, Team: battle.TeamB})
	assert.Error(t, err)

	for _, team := range []battle.Team{"", "C", "a"} {
		err = store.CreateParticipant(ctx, db, &battle.Participant{EventID: event.ID, UserID: createTestProfile(t, db, "dave"), Team: team})
		assert.ErrorIs(t, err, ErrInvalidTeam, "team %q", team)
	}

	participants, err := store.GetParticipants(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 3)
}
