package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/AdamBeresnev/art-battle/internal/config"
	"github.com/AdamBeresnev/art-battle/internal/httputil"
	"github.com/AdamBeresnev/art-battle/internal/profile"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/google"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// SessionUserKey is the session entry holding the signed-in user id.
const SessionUserKey = "userID"

type profileLoader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error)
}

// InitAuth registers the OAuth providers that have credentials configured.
func InitAuth(cfg config.OAuthConfig) {
	var providers []goth.Provider
	if cfg.DiscordKey != "" {
		providers = append(providers, discord.New(cfg.DiscordKey, cfg.DiscordSecret, cfg.DiscordCallbackURL, discord.ScopeIdentify, discord.ScopeEmail))
	}
	if cfg.GoogleKey != "" {
		providers = append(providers, google.New(cfg.GoogleKey, cfg.GoogleSecret, cfg.GoogleCallbackURL, "email", "profile"))
	}
	if len(providers) == 0 {
		slog.Warn("no OAuth providers configured, sign-in is disabled")
		return
	}
	goth.UseProviders(providers...)
}

// LoadAuthenticatedUser puts the session's user id and profile into the request context when there is
// one. It never rejects a request.
func LoadAuthenticatedUser(sessionManager *scs.SessionManager, profiles profileLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userIDStr := sessionManager.GetString(r.Context(), SessionUserKey)
			if userIDStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				sessionManager.Remove(r.Context(), SessionUserKey)
				next.ServeHTTP(w, r)
				return
			}

			p, err := profiles.GetProfile(r.Context(), userID)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					sessionManager.Remove(r.Context(), SessionUserKey)
					next.ServeHTTP(w, r)
					return
				}
				httputil.Error(w, r, err)
				return
			}

			ctx := WithProfile(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth answers 401 unless LoadAuthenticatedUser found a user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			httputil.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithProfile(ctx context.Context, p *profile.Profile) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	return context.WithValue(ctx, profile.ProfileKey, p)
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetAuthenticatedProfile(ctx context.Context) *profile.Profile {
	val := ctx.Value(profile.ProfileKey)
	if val == nil {
		return nil
	}
	p, ok := val.(*profile.Profile)
	if !ok {
		return nil
	}
	return p
}
