package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/AdamBeresnev/art-battle/internal/store"
	"github.com/google/uuid"
)

// LifecycleService keeps the stored event status in step with the wall clock. Status only ever moves
// forward and every write is conditional on the status it was computed from.
type LifecycleService struct {
	store *store.EventStore
}

func NewLifecycleService(store *store.EventStore) *LifecycleService {
	return &LifecycleService{store: store}
}

// RefreshStatuses advances every unfinished event whose stored status lags behind now and returns how
// many were moved.
func (s *LifecycleService) RefreshStatuses(ctx context.Context, now time.Time) (int, error) {
	events, err := s.store.GetUnfinishedEvents(ctx)
	if err != nil {
		return 0, apperr.Storage("failed to load unfinished events", err)
	}

	advanced := 0
	for _, e := range events {
		target := e.StatusAt(now)
		if !e.Status.Before(target) {
			continue
		}

		ok, err := s.store.AdvanceStatus(ctx, e.ID, e.Status, target)
		if err != nil {
			return advanced, apperr.Storage("failed to advance event status", err)
		}
		if ok {
			advanced++
			slog.Info("event status advanced", "event_id", e.ID, "from", e.Status, "to", target)
		}
	}
	return advanced, nil
}

// Current loads an event and brings its status up to date first.
func (s *LifecycleService) Current(ctx context.Context, eventID uuid.UUID, now time.Time) (*battle.Event, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, lookupErr(err, apperr.CodeEventNotFound, "Event not found")
	}

	target := event.StatusAt(now)
	if event.Status.Before(target) {
		// Losing the race means another writer already stored target or a later status
		if _, err := s.store.AdvanceStatus(ctx, event.ID, event.Status, target); err != nil {
			return nil, apperr.Storage("failed to advance event status", err)
		}
		event.Status = target
	}
	return event, nil
}
