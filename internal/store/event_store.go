package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

const (
	createEventQuery = `
		INSERT INTO events (id, title, description, theme, midway_theme, start_time, end_time, midway_time, team_a_name, team_b_name, status)
		VALUES (:id, :title, :description, :theme, :midway_theme, :start_time, :end_time, :midway_time, :team_a_name, :team_b_name, :status)
	`
	advanceEventStatusQuery = "UPDATE events SET status = ? WHERE id = ? AND status = ?"

	createParticipantQuery = `
		INSERT INTO event_participants (event_id, user_id, team, joined_at)
		VALUES (:event_id, :user_id, :team, :joined_at)
	`
	countTeamMembersQuery = `
		SELECT
			COALESCE(SUM(CASE WHEN team = 'A' THEN 1 ELSE 0 END), 0) AS count_a,
			COALESCE(SUM(CASE WHEN team = 'B' THEN 1 ELSE 0 END), 0) AS count_b
		FROM event_participants
		WHERE event_id = ?
	`
)

func (s *EventStore) CreateEvent(ctx context.Context, tx sqlx.ExtContext, event *battle.Event) error {
	if !event.Status.Valid() {
		return ErrInvalidStatus
	}
	_, err := sqlx.NamedExecContext(ctx, tx, createEventQuery, event)
	return err
}

func (s *EventStore) GetEvent(ctx context.Context, id uuid.UUID) (*battle.Event, error) {
	var event battle.Event
	err := s.db.GetContext(ctx, &event, "SELECT * FROM events WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetUnfinishedEvents returns every event the lifecycle clock may still have to advance.
func (s *EventStore) GetUnfinishedEvents(ctx context.Context) ([]battle.Event, error) {
	var events []battle.Event
	err := s.db.SelectContext(ctx, &events, "SELECT * FROM events WHERE status != ? ORDER BY start_time ASC", battle.EventEnded)
	return events, err
}

// AdvanceStatus moves an event from one status to the next. It reports false when another writer
// already moved the event, which makes repeated refreshes harmless. Statuses only move forward.
func (s *EventStore) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to battle.EventStatus) (bool, error) {
	if !to.Valid() || !from.Before(to) {
		return false, ErrInvalidStatus
	}
	res, err := s.db.ExecContext(ctx, advanceEventStatusQuery, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// FindParticipant returns nil without an error when the user has not joined the event.
func (s *EventStore) FindParticipant(ctx context.Context, q sqlx.QueryerContext, eventID, userID uuid.UUID) (*battle.Participant, error) {
	var p battle.Participant
	err := sqlx.GetContext(ctx, q, &p, "SELECT * FROM event_participants WHERE event_id = ? AND user_id = ?", eventID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *EventStore) GetParticipants(ctx context.Context, eventID uuid.UUID) ([]battle.Participant, error) {
	var participants []battle.Participant
	err := s.db.SelectContext(ctx, &participants, "SELECT * FROM event_participants WHERE event_id = ? ORDER BY joined_at ASC", eventID)
	return participants, err
}

func (s *EventStore) CountTeamMembers(ctx context.Context, q sqlx.QueryerContext, eventID uuid.UUID) (int, int, error) {
	var counts struct {
		A int `db:"count_a"`
		B int `db:"count_b"`
	}
	if err := sqlx.GetContext(ctx, q, &counts, countTeamMembersQuery, eventID); err != nil {
		return 0, 0, err
	}
	return counts.A, counts.B, nil
}

func (s *EventStore) CreateParticipant(ctx context.Context, tx sqlx.ExtContext, participant *battle.Participant) error {
	if !participant.Team.Valid() {
		return ErrInvalidTeam
	}
	_, err := sqlx.NamedExecContext(ctx, tx, createParticipantQuery, participant)
	return err
}
