package profile

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const ProfileKey ContextKey = "profile"

// Profile is the local record of an identity-provider user. UserID never changes once created.
type Profile struct {
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"-"`
	Provider   *string   `db:"provider" json:"-"`
	ProviderID *string   `db:"provider_id" json:"-"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
