package battle

import (
	"time"

	"github.com/google/uuid"
)

type Artwork struct {
	ID          uuid.UUID `db:"id" json:"id"`
	EventID     uuid.UUID `db:"event_id" json:"event_id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	ImageURL    string    `db:"image_url" json:"image_url"`

	// Denormalized counts of artwork_interactions rows, the interactions table is the source of truth
	LikesCount   int `db:"likes_count" json:"likes_count"`
	AttacksCount int `db:"attacks_count" json:"attacks_count"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type InteractionType string

const (
	InteractionLike   InteractionType = "like"
	InteractionAttack InteractionType = "attack"
)

type Interaction struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	ArtworkID uuid.UUID       `db:"artwork_id" json:"artwork_id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      InteractionType `db:"interaction_type" json:"interaction_type"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// FightArtwork is the counter-submission attached to an attack when the event requires one.
type FightArtwork struct {
	ID              uuid.UUID `db:"id" json:"id"`
	AttackerID      uuid.UUID `db:"attacker_id" json:"attacker_id"`
	TargetArtworkID uuid.UUID `db:"target_artwork_id" json:"target_artwork_id"`
	Title           string    `db:"title" json:"title"`
	ImageURL        string    `db:"image_url" json:"image_url"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type ArtworkAward struct {
	ArtworkID uuid.UUID `db:"artwork_id"`
	UserID    uuid.UUID `db:"user_id"`
	EventID   uuid.UUID `db:"event_id"`
	Points    int       `db:"points"`
	AwardedAt time.Time `db:"awarded_at"`
}
