package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/AdamBeresnev/art-battle/internal/profile"
	"github.com/AdamBeresnev/art-battle/internal/store"
	"github.com/AdamBeresnev/art-battle/internal/utils"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
)

const maxUsernameAttempts = 50

type ProfileService struct {
	db    *sqlx.DB
	store *store.ProfileStore
}

func NewProfileService(db *sqlx.DB, store *store.ProfileStore) *ProfileService {
	return &ProfileService{db: db, store: store}
}

// FindOrCreateByProvider returns the profile linked to the provider account, creating it on first
// sign-in. The user id of an existing profile never changes.
func (s *ProfileService) FindOrCreateByProvider(ctx context.Context, gothUser goth.User) (*profile.Profile, error) {
	p, err := s.store.GetProfileByProvider(ctx, gothUser.Provider, gothUser.UserID)
	if err == nil {
		if gothUser.AvatarURL != "" && utils.OrZero(p.AvatarURL) != gothUser.AvatarURL {
			p.AvatarURL = utils.Ptr(gothUser.AvatarURL)
			if err := s.store.UpdateProfileAvatar(ctx, p); err != nil {
				return nil, apperr.Storage("failed to update avatar", err)
			}
		}
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Storage("failed to load profile", err)
	}

	username, err := s.uniqueUsername(ctx, gothUser)
	if err != nil {
		return nil, err
	}

	p = &profile.Profile{
		UserID:     uuid.New(),
		Username:   username,
		Email:      gothUser.Email,
		Provider:   utils.Ptr(gothUser.Provider),
		ProviderID: utils.Ptr(gothUser.UserID),
		AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return nil, apperr.Storage("failed to create profile", err)
	}
	return p, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, apperr.CodeProfileNotFound, "Profile not found")
	}
	return p, nil
}

func baseUsername(gothUser goth.User) string {
	local, _, _ := strings.Cut(gothUser.Email, "@")
	for _, candidate := range []string{gothUser.NickName, gothUser.Name, local} {
		if base := slug.Make(candidate); base != "" {
			return base
		}
	}
	return "artist"
}

// uniqueUsername slugifies the provider name and appends -2, -3... until it is free.
func (s *ProfileService) uniqueUsername(ctx context.Context, gothUser goth.User) (string, error) {
	base := baseUsername(gothUser)
	for i := 1; i <= maxUsernameAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		taken, err := s.store.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", apperr.Storage("failed to check username", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}
