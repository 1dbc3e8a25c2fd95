package battle

import (
	"time"

	"github.com/google/uuid"
)

type UserPoints struct {
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	EventID       uuid.UUID `db:"event_id" json:"event_id"`
	ArtworkPoints int       `db:"artwork_points" json:"artwork_points"`
	LikePoints    int       `db:"like_points" json:"like_points"`
	AttackPoints  int       `db:"attack_points" json:"attack_points"`
	PointsTotal   int       `db:"points_total" json:"points_total"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Consistent reports whether the total matches its components.
func (p *UserPoints) Consistent() bool {
	return p.PointsTotal == p.ArtworkPoints+p.LikePoints+p.AttackPoints
}

// PointsDelta is the argument of the single point mutation entry point.
type PointsDelta struct {
	UserID        uuid.UUID `db:"user_id"`
	EventID       uuid.UUID `db:"event_id"`
	ArtworkPoints int       `db:"artwork_points"`
	LikePoints    int       `db:"like_points"`
	AttackPoints  int       `db:"attack_points"`
}

func (d PointsDelta) IsZero() bool {
	return d.ArtworkPoints == 0 && d.LikePoints == 0 && d.AttackPoints == 0
}

// Negate returns the compensating delta.
func (d PointsDelta) Negate() PointsDelta {
	d.ArtworkPoints = -d.ArtworkPoints
	d.LikePoints = -d.LikePoints
	d.AttackPoints = -d.AttackPoints
	return d
}

// PendingDelta is a point delta queued for the reconciler after its direct application failed.
type PendingDelta struct {
	ID uuid.UUID `db:"id"`
	PointsDelta
	Reason    string    `db:"reason"`
	LastError string    `db:"last_error"`
	CreatedAt time.Time `db:"created_at"`
}

// Rewards holds the point value of each scoring event.
type Rewards struct {
	Artwork int
	Like    int
	Attack  int
}

var DefaultRewards = Rewards{
	Artwork: 3,
	Like:    1,
	Attack:  2,
}

type TeamScore struct {
	Team        Team   `db:"team" json:"team"`
	Name        string `db:"-" json:"name"`
	TotalPoints int    `db:"total_points" json:"total_points"`
	MemberCount int    `db:"member_count" json:"member_count"`
}

type UserActivity struct {
	ArtworksSubmitted int `db:"artworks_submitted" json:"artworks_submitted"`
	LikesReceived     int `db:"likes_received" json:"likes_received"`
	AttacksReceived   int `db:"attacks_received" json:"attacks_received"`
	LikesGiven        int `db:"likes_given" json:"likes_given"`
	AttacksLaunched   int `db:"attacks_launched" json:"attacks_launched"`
}

type UserStats struct {
	UserID      uuid.UUID    `json:"user_id"`
	TotalPoints int          `json:"total_points"`
	Events      []UserPoints `json:"events"`
	Activity    UserActivity `json:"activity"`
}
