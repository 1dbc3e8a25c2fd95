package store

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ArtworkStore struct {
	db *sqlx.DB
}

func NewArtworkStore(db *sqlx.DB) *ArtworkStore {
	return &ArtworkStore{db: db}
}

const (
	createArtworkQuery = `
		INSERT INTO artworks (id, event_id, user_id, title, description, image_url)
		VALUES (:id, :event_id, :user_id, :title, :description, :image_url)
	`
	recordAwardQuery = `
		INSERT INTO artwork_awards (artwork_id, user_id, event_id, points)
		VALUES (:artwork_id, :user_id, :event_id, :points)
		ON CONFLICT (artwork_id) DO NOTHING
	`
	getUnawardedArtworksQuery = `
		SELECT a.* FROM artworks a
		LEFT JOIN artwork_awards aw ON aw.artwork_id = a.id
		WHERE aw.artwork_id IS NULL
		ORDER BY a.created_at ASC
		LIMIT ?
	`
	insertInteractionQuery = `
		INSERT INTO artwork_interactions (id, artwork_id, user_id, interaction_type)
		VALUES (:id, :artwork_id, :user_id, :interaction_type)
		ON CONFLICT (artwork_id, user_id, interaction_type) DO NOTHING
	`
	deleteInteractionQuery = `
		DELETE FROM artwork_interactions
		WHERE artwork_id = ? AND user_id = ? AND interaction_type = ?
	`
	hasInteractionQuery = `
		SELECT EXISTS (
			SELECT 1 FROM artwork_interactions
			WHERE artwork_id = ? AND user_id = ? AND interaction_type = ?
		)
	`
	createFightArtworkQuery = `
		INSERT INTO fight_artworks (id, attacker_id, target_artwork_id, title, image_url)
		VALUES (:id, :attacker_id, :target_artwork_id, :title, :image_url)
	`
	reconcileCountersQuery = `
		UPDATE artworks SET
			likes_count = (SELECT COUNT(*) FROM artwork_interactions i WHERE i.artwork_id = artworks.id AND i.interaction_type = 'like'),
			attacks_count = (SELECT COUNT(*) FROM artwork_interactions i WHERE i.artwork_id = artworks.id AND i.interaction_type = 'attack')
		WHERE likes_count != (SELECT COUNT(*) FROM artwork_interactions i WHERE i.artwork_id = artworks.id AND i.interaction_type = 'like')
		OR attacks_count != (SELECT COUNT(*) FROM artwork_interactions i WHERE i.artwork_id = artworks.id AND i.interaction_type = 'attack')
	`
	getUserActivityQuery = `
		SELECT
			(SELECT COUNT(*) FROM artworks WHERE user_id = ?1) AS artworks_submitted,
			(SELECT COALESCE(SUM(likes_count), 0) FROM artworks WHERE user_id = ?1) AS likes_received,
			(SELECT COALESCE(SUM(attacks_count), 0) FROM artworks WHERE user_id = ?1) AS attacks_received,
			(SELECT COUNT(*) FROM artwork_interactions WHERE user_id = ?1 AND interaction_type = 'like') AS likes_given,
			(SELECT COUNT(*) FROM artwork_interactions WHERE user_id = ?1 AND interaction_type = 'attack') AS attacks_launched
	`
)

func (s *ArtworkStore) CreateArtwork(ctx context.Context, tx sqlx.ExtContext, artwork *battle.Artwork) error {
	_, err := sqlx.NamedExecContext(ctx, tx, createArtworkQuery, artwork)
	return err
}

func (s *ArtworkStore) GetArtwork(ctx context.Context, id uuid.UUID) (*battle.Artwork, error) {
	var artwork battle.Artwork
	err := s.db.GetContext(ctx, &artwork, "SELECT * FROM artworks WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &artwork, nil
}

func (s *ArtworkStore) GetArtworksByEvent(ctx context.Context, eventID uuid.UUID) ([]battle.Artwork, error) {
	var artworks []battle.Artwork
	err := s.db.SelectContext(ctx, &artworks, "SELECT * FROM artworks WHERE event_id = ? ORDER BY created_at DESC", eventID)
	return artworks, err
}

// RecordAward writes the idempotency ledger row for a submission reward. It reports false when the
// artwork was already awarded.
func (s *ArtworkStore) RecordAward(ctx context.Context, tx sqlx.ExtContext, award *battle.ArtworkAward) (bool, error) {
	res, err := sqlx.NamedExecContext(ctx, tx, recordAwardQuery, award)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *ArtworkStore) GetUnawardedArtworks(ctx context.Context, limit int) ([]battle.Artwork, error) {
	var artworks []battle.Artwork
	err := s.db.SelectContext(ctx, &artworks, getUnawardedArtworksQuery, limit)
	return artworks, err
}

// InsertInteraction returns ErrDuplicate when the (artwork, user, type) row already exists.
func (s *ArtworkStore) InsertInteraction(ctx context.Context, tx sqlx.ExtContext, interaction *battle.Interaction) error {
	res, err := sqlx.NamedExecContext(ctx, tx, insertInteractionQuery, interaction)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *ArtworkStore) DeleteInteraction(ctx context.Context, tx sqlx.ExtContext, artworkID, userID uuid.UUID, kind battle.InteractionType) (bool, error) {
	res, err := tx.ExecContext(ctx, deleteInteractionQuery, artworkID, userID, kind)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *ArtworkStore) HasInteraction(ctx context.Context, q sqlx.QueryerContext, artworkID, userID uuid.UUID, kind battle.InteractionType) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, hasInteractionQuery, artworkID, userID, kind)
	return exists, err
}

func counterColumn(kind battle.InteractionType) (string, error) {
	switch kind {
	case battle.InteractionLike:
		return "likes_count", nil
	case battle.InteractionAttack:
		return "attacks_count", nil
	}
	return "", fmt.Errorf("unknown interaction type %q", kind)
}

// AdjustCounter adds delta to the artwork's counter for kind in a single statement, clamping at zero.
func (s *ArtworkStore) AdjustCounter(ctx context.Context, tx sqlx.ExtContext, artworkID uuid.UUID, kind battle.InteractionType, delta int) error {
	column, err := counterColumn(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE artworks SET %[1]s = MAX(%[1]s + ?, 0) WHERE id = ?", column)
	_, err = tx.ExecContext(ctx, query, delta, artworkID)
	return err
}

func (s *ArtworkStore) CreateFightArtwork(ctx context.Context, tx sqlx.ExtContext, fight *battle.FightArtwork) error {
	_, err := sqlx.NamedExecContext(ctx, tx, createFightArtworkQuery, fight)
	return err
}

func (s *ArtworkStore) GetFightArtworks(ctx context.Context, targetArtworkID uuid.UUID) ([]battle.FightArtwork, error) {
	var fights []battle.FightArtwork
	err := s.db.SelectContext(ctx, &fights, "SELECT * FROM fight_artworks WHERE target_artwork_id = ? ORDER BY created_at ASC", targetArtworkID)
	return fights, err
}

// ReconcileCounters rewrites every counter that drifted from the interactions table and returns how
// many artworks were corrected.
func (s *ArtworkStore) ReconcileCounters(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, reconcileCountersQuery)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ArtworkStore) GetUserActivity(ctx context.Context, userID uuid.UUID) (*battle.UserActivity, error) {
	var activity battle.UserActivity
	if err := s.db.GetContext(ctx, &activity, getUserActivityQuery, userID); err != nil {
		return nil, err
	}
	return &activity, nil
}
