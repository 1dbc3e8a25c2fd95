package store

import (
	"context"

	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PointsStore struct {
	db *sqlx.DB
}

func NewPointsStore(db *sqlx.DB) *PointsStore {
	return &PointsStore{db: db}
}

// updateUserPointsQuery is the only statement that mutates user_points. The first scoring event for a
// (user, event) pair creates the row, later ones add to it. Components are clamped at zero and the
// total is always rebuilt from the clamped components.
const updateUserPointsQuery = `
	INSERT INTO user_points (user_id, event_id, artwork_points, like_points, attack_points, points_total, updated_at)
	VALUES (
		:user_id, :event_id,
		MAX(:artwork_points, 0), MAX(:like_points, 0), MAX(:attack_points, 0),
		MAX(:artwork_points, 0) + MAX(:like_points, 0) + MAX(:attack_points, 0),
		CURRENT_TIMESTAMP
	)
	ON CONFLICT (user_id, event_id) DO UPDATE SET
		artwork_points = MAX(user_points.artwork_points + :artwork_points, 0),
		like_points = MAX(user_points.like_points + :like_points, 0),
		attack_points = MAX(user_points.attack_points + :attack_points, 0),
		points_total = MAX(user_points.artwork_points + :artwork_points, 0)
			+ MAX(user_points.like_points + :like_points, 0)
			+ MAX(user_points.attack_points + :attack_points, 0),
		updated_at = CURRENT_TIMESTAMP
`

const (
	teamScoresQuery = `
		SELECT p.team AS team, COUNT(*) AS member_count, COALESCE(SUM(up.points_total), 0) AS total_points
		FROM event_participants p
		LEFT JOIN user_points up ON up.user_id = p.user_id AND up.event_id = p.event_id
		WHERE p.event_id = ?
		GROUP BY p.team
	`
	enqueueDeltaQuery = `
		INSERT INTO pending_point_deltas (id, user_id, event_id, artwork_points, like_points, attack_points, reason, last_error)
		VALUES (:id, :user_id, :event_id, :artwork_points, :like_points, :attack_points, :reason, :last_error)
	`
	cancelPendingDeltaQuery = `
		DELETE FROM pending_point_deltas WHERE id = (
			SELECT id FROM pending_point_deltas
			WHERE user_id = ? AND event_id = ? AND artwork_points = ? AND like_points = ? AND attack_points = ?
			ORDER BY created_at ASC, id ASC
			LIMIT 1
		)
	`
)

// UpdateUserPoints applies delta additively. tx may be the database or an open transaction.
func (s *PointsStore) UpdateUserPoints(ctx context.Context, tx sqlx.ExtContext, delta battle.PointsDelta) error {
	_, err := sqlx.NamedExecContext(ctx, tx, updateUserPointsQuery, delta)
	return err
}

func (s *PointsStore) GetUserPoints(ctx context.Context, userID, eventID uuid.UUID) (*battle.UserPoints, error) {
	var points battle.UserPoints
	err := s.db.GetContext(ctx, &points, "SELECT * FROM user_points WHERE user_id = ? AND event_id = ?", userID, eventID)
	if err != nil {
		return nil, err
	}
	return &points, nil
}

func (s *PointsStore) GetUserPointsByUser(ctx context.Context, userID uuid.UUID) ([]battle.UserPoints, error) {
	var points []battle.UserPoints
	err := s.db.SelectContext(ctx, &points, "SELECT * FROM user_points WHERE user_id = ? ORDER BY updated_at DESC", userID)
	return points, err
}

// GetTeamScores sums points_total per team. Participants without a user_points row count as members
// with zero points; teams without members are absent from the result.
func (s *PointsStore) GetTeamScores(ctx context.Context, eventID uuid.UUID) ([]battle.TeamScore, error) {
	var scores []battle.TeamScore
	err := s.db.SelectContext(ctx, &scores, teamScoresQuery, eventID)
	return scores, err
}

func (s *PointsStore) EnqueueDelta(ctx context.Context, tx sqlx.ExtContext, pending *battle.PendingDelta) error {
	_, err := sqlx.NamedExecContext(ctx, tx, enqueueDeltaQuery, pending)
	return err
}

func (s *PointsStore) GetPendingDeltas(ctx context.Context, limit int) ([]battle.PendingDelta, error) {
	var pending []battle.PendingDelta
	err := s.db.SelectContext(ctx, &pending, "SELECT * FROM pending_point_deltas ORDER BY created_at ASC LIMIT ?", limit)
	return pending, err
}

// DeletePendingDelta reports false when another worker already drained the row.
func (s *PointsStore) DeletePendingDelta(ctx context.Context, tx sqlx.ExtContext, id uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM pending_point_deltas WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CancelPendingDelta removes the oldest queued delta equal to delta, if any. It reports whether one
// was removed.
func (s *PointsStore) CancelPendingDelta(ctx context.Context, tx sqlx.ExtContext, delta battle.PointsDelta) (bool, error) {
	res, err := tx.ExecContext(ctx, cancelPendingDeltaQuery,
		delta.UserID, delta.EventID, delta.ArtworkPoints, delta.LikePoints, delta.AttackPoints)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
