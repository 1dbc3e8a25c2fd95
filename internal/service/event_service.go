package service

import (
	"context"
	"strings"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/AdamBeresnev/art-battle/internal/store"
	"github.com/AdamBeresnev/art-battle/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxTitleLength = 100

type EventService struct {
	db        *sqlx.DB
	store     *store.EventStore
	artworks  *store.ArtworkStore
	lifecycle *LifecycleService
	now       func() time.Time
}

func NewEventService(db *sqlx.DB, store *store.EventStore, artworks *store.ArtworkStore, lifecycle *LifecycleService) *EventService {
	return &EventService{
		db:        db,
		store:     store,
		artworks:  artworks,
		lifecycle: lifecycle,
		now:       time.Now,
	}
}

type CreateEventInput struct {
	Title       string
	Description string
	Theme       string
	MidwayTheme string
	StartTime   time.Time
	EndTime     time.Time
	MidwayTime  *time.Time
	TeamAName   string
	TeamBName   string
}

// EventDetails is an event as the view layer sees it
type EventDetails struct {
	Event        *battle.Event    `json:"event"`
	CurrentTheme string           `json:"current_theme"`
	UploadsOpen  bool             `json:"uploads_open"`
	Artworks     []battle.Artwork `json:"artworks"`
}

func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*battle.Event, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.Validation(apperr.CodeTitleRequired, "Title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, apperr.Validation(apperr.CodeTitleTooLong, "Title is too long")
	}
	theme := strings.TrimSpace(input.Theme)
	if theme == "" {
		return nil, apperr.Validation(apperr.CodeThemeRequired, "Theme is required")
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, apperr.Validation(apperr.CodeInvalidSchedule, "The event must end after it starts")
	}
	if input.MidwayTime != nil && (input.MidwayTime.Before(input.StartTime) || !input.MidwayTime.Before(input.EndTime)) {
		return nil, apperr.Validation(apperr.CodeInvalidSchedule, "The midway point must fall inside the event")
	}

	event := &battle.Event{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Theme:       theme,
		MidwayTheme: utils.StringOrNil(input.MidwayTheme),
		StartTime:   input.StartTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		TeamAName:   teamNameOr(input.TeamAName, "Team A"),
		TeamBName:   teamNameOr(input.TeamBName, "Team B"),
	}
	if input.MidwayTime != nil {
		event.MidwayTime = utils.Ptr(input.MidwayTime.UTC())
	}
	event.Status = event.StatusAt(s.now())

	if err := s.store.CreateEvent(ctx, s.db, event); err != nil {
		return nil, apperr.Storage("failed to create event", err)
	}
	return event, nil
}

func teamNameOr(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}

func (s *EventService) GetEvent(ctx context.Context, eventID uuid.UUID) (*EventDetails, error) {
	now := s.now()
	event, err := s.lifecycle.Current(ctx, eventID, now)
	if err != nil {
		return nil, err
	}

	artworks, err := s.artworks.GetArtworksByEvent(ctx, eventID)
	if err != nil {
		return nil, apperr.Storage("failed to load artworks", err)
	}

	return &EventDetails{
		Event:        event,
		CurrentTheme: event.CurrentTheme(now),
		UploadsOpen:  event.IsOngoing() && (event.MidwayTime == nil || !now.Before(*event.MidwayTime)),
		Artworks:     artworks,
	}, nil
}

// JoinEvent assigns the user to the smaller team. Joining twice returns the existing membership.
func (s *EventService) JoinEvent(ctx context.Context, userID, eventID uuid.UUID) (*battle.Participant, error) {
	now := s.now()
	event, err := s.lifecycle.Current(ctx, eventID, now)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindParticipant(ctx, s.db, eventID, userID)
	if err != nil {
		return nil, apperr.Storage("failed to load participant", err)
	}
	if existing != nil {
		return existing, nil
	}
	if event.Status == battle.EventEnded {
		return nil, apperr.NotEligible(apperr.CodeEventEnded, "The event has ended")
	}

	// The write lock is taken at BEGIN, so the counts cannot change before the insert
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback()

	existing, err = s.store.FindParticipant(ctx, tx, eventID, userID)
	if err != nil {
		return nil, apperr.Storage("failed to load participant", err)
	}
	if existing != nil {
		return existing, nil
	}

	countA, countB, err := s.store.CountTeamMembers(ctx, tx, eventID)
	if err != nil {
		return nil, apperr.Storage("failed to count team members", err)
	}

	participant := &battle.Participant{
		EventID:  eventID,
		UserID:   userID,
		Team:     battle.BalancedTeam(countA, countB),
		JoinedAt: now.UTC(),
	}
	if err := s.store.CreateParticipant(ctx, tx, participant); err != nil {
		return nil, apperr.Storage("failed to join event", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("failed to commit join", err)
	}
	return participant, nil
}
