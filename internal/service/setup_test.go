package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/AdamBeresnev/art-battle/internal/db"
	"github.com/AdamBeresnev/art-battle/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
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

type testEnv struct {
	db         *sqlx.DB
	eventStore *store.EventStore
	artworks   *store.ArtworkStore
	points     *store.PointsStore

	lifecycle *LifecycleService
	events    *EventService
	scoring   *ScoringService
	reconcile *ReconcileService
	profiles  *ProfileService

	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := setupTestDB(t)
	t.Cleanup(func() { database.Close() })

	env := &testEnv{
		db:         database,
		eventStore: store.NewEventStore(database),
		artworks:   store.NewArtworkStore(database),
		points:     store.NewPointsStore(database),
		now:        time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	cfg := DefaultScoringConfig
	cfg.RetryInterval = time.Millisecond

	env.lifecycle = NewLifecycleService(env.eventStore)
	env.events = NewEventService(database, env.eventStore, env.artworks, env.lifecycle)
	env.events.now = clock
	env.scoring = NewScoringService(database, env.eventStore, env.artworks, env.points, env.lifecycle, cfg)
	env.scoring.now = clock
	env.reconcile = NewReconcileService(database, env.artworks, env.points, env.scoring)
	env.profiles = NewProfileService(database, store.NewProfileStore(database))

	return env
}

func (env *testEnv) createUser(t *testing.T, name string) uuid.UUID {
	t.Helper()

	p, err := env.profiles.FindOrCreateByProvider(context.Background(), goth.User{
		Provider: "discord",
		UserID:   uuid.NewString(),
		NickName: name,
	})
	require.NoError(t, err)
	return p.UserID
}

// createEvent makes an event that started an hour before the test clock and ends an hour after it
func (env *testEnv) createEvent(t *testing.T) *battle.Event {
	t.Helper()

	event, err := env.events.CreateEvent(context.Background(), CreateEventInput{
		Title:     "Spring Battle",
		Theme:     "Dragons",
		StartTime: env.now.Add(-time.Hour),
		EndTime:   env.now.Add(time.Hour),
		TeamAName: "Red",
		TeamBName: "Blue",
	})
	require.NoError(t, err)
	require.Equal(t, battle.EventOngoing, event.Status)
	return event
}

func (env *testEnv) join(t *testing.T, userID, eventID uuid.UUID) battle.Team {
	t.Helper()

	p, err := env.events.JoinEvent(context.Background(), userID, eventID)
	require.NoError(t, err)
	return p.Team
}

func (env *testEnv) submit(t *testing.T, userID, eventID uuid.UUID) *battle.Artwork {
	t.Helper()

	outcome, err := env.scoring.SubmitArtwork(context.Background(), SubmitArtworkInput{
		UserID:   userID,
		EventID:  eventID,
		Title:    "Dragon at dusk",
		ImageURL: "https://cdn.example.com/dragon.png",
	})
	require.NoError(t, err)
	require.False(t, outcome.Partial())
	return outcome.Artwork
}

func (env *testEnv) userPoints(t *testing.T, userID, eventID uuid.UUID) battle.UserPoints {
	t.Helper()

	points, err := env.points.GetUserPoints(context.Background(), userID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return battle.UserPoints{UserID: userID, EventID: eventID}
	}
	require.NoError(t, err)
	require.True(t, points.Consistent())
	return *points
}

func (env *testEnv) artwork(t *testing.T, id uuid.UUID) *battle.Artwork {
	t.Helper()

	artwork, err := env.artworks.GetArtwork(context.Background(), id)
	require.NoError(t, err)
	return artwork
}

// failingLedger fails every points update while still queueing deltas
type failingLedger struct {
	*store.PointsStore
	calls int
}

func (f *failingLedger) UpdateUserPoints(ctx context.Context, tx sqlx.ExtContext, delta battle.PointsDelta) error {
	f.calls++
	return errors.New("database is locked")
}
