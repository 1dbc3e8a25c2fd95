package store

import (
	"context"

	"github.com/AdamBeresnev/art-battle/internal/profile"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ProfileStore struct {
	db *sqlx.DB
}

const (
	getProfileQuery           = "SELECT * FROM profiles WHERE user_id = ?"
	getProfileByProviderQuery = `
        SELECT * FROM profiles
        WHERE provider = ?
        AND provider_id = ?
    `
	createProfileQuery = `
		INSERT INTO profiles (user_id, username, email, provider, provider_id, avatar_url) VALUES
		(:user_id, :username, :email, :provider, :provider_id, :avatar_url)
	`
	updateProfileAvatarQuery = `
		UPDATE profiles SET
		avatar_url = :avatar_url
		WHERE user_id = :user_id
	`
	usernameTakenQuery = "SELECT EXISTS (SELECT 1 FROM profiles WHERE username = ?)"
)

func NewProfileStore(db *sqlx.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) GetProfileByProvider(ctx context.Context, provider string, providerID string) (*profile.Profile, error) {
	var p profile.Profile
	err := s.db.GetContext(ctx, &p, getProfileByProviderQuery, provider, providerID)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	var p profile.Profile
	err := s.db.GetContext(ctx, &p, getProfileQuery, userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) CreateProfile(ctx context.Context, p *profile.Profile) error {
	_, err := s.db.NamedExecContext(ctx, createProfileQuery, p)
	return err
}

func (s *ProfileStore) UpdateProfileAvatar(ctx context.Context, p *profile.Profile) error {
	_, err := s.db.NamedExecContext(ctx, updateProfileAvatarQuery, p)
	return err
}

func (s *ProfileStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := s.db.GetContext(ctx, &taken, usernameTakenQuery, username)
	return taken, err
}
