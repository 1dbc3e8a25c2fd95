package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/AdamBeresnev/art-battle/internal/db"
	"github.com/AdamBeresnev/art-battle/internal/profile"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a throwaway SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to connect to test DB")

	err = db.RunMigrations(database.DB, "file://../../migrations")
	require.NoError(t, err, "Failed to apply migrations")

	return database
}

func createTestProfile(t *testing.T, database *sqlx.DB, name string) uuid.UUID {
	t.Helper()

	p := &profile.Profile{
		UserID:   uuid.New(),
		Username: fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
	}
	require.NoError(t, NewProfileStore(database).CreateProfile(context.Background(), p))
	return p.UserID
}

func createTestEvent(t *testing.T, database *sqlx.DB, status battle.EventStatus) *battle.Event {
	t.Helper()

	now := time.Now().UTC()
	event := &battle.Event{
		ID:        uuid.New(),
		Title:     "Test Battle",
		Theme:     "Dragons",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		TeamAName: "Red",
		TeamBName: "Blue",
		Status:    status,
	}
	require.NoError(t, NewEventStore(database).CreateEvent(context.Background(), database, event))
	return event
}

func createTestArtwork(t *testing.T, database *sqlx.DB, eventID, userID uuid.UUID) *battle.Artwork {
	t.Helper()

	artwork := &battle.Artwork{
		ID:       uuid.New(),
		EventID:  eventID,
		UserID:   userID,
		Title:    "Sunset",
		ImageURL: "https://cdn.example.com/sunset.png",
	}
	require.NoError(t, NewArtworkStore(database).CreateArtwork(context.Background(), database, artwork))
	return artwork
}

func joinTestEvent(t *testing.T, database *sqlx.DB, eventID, userID uuid.UUID, team battle.Team) {
	t.Helper()

	err := NewEventStore(database).CreateParticipant(context.Background(), database, &battle.Participant{
		EventID:  eventID,
		UserID:   userID,
		Team:     team,
		JoinedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}
