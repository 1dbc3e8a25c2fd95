package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/AdamBeresnev/art-battle/internal/blob"
	"github.com/AdamBeresnev/art-battle/internal/config"
	"github.com/AdamBeresnev/art-battle/internal/httputil"
	"github.com/AdamBeresnev/art-battle/internal/media"
	"github.com/AdamBeresnev/art-battle/internal/middleware"
	"github.com/AdamBeresnev/art-battle/internal/service"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

type uploader interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type application struct {
	cfg            *config.Config
	sessionManager *scs.SessionManager
	events         *service.EventService
	scoring        *service.ScoringService
	profiles       *service.ProfileService
	// nil when blob storage is not configured
	uploads uploader
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticatedUser(app.sessionManager, app.profiles))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/events/{id}", app.getEvent)
		r.Post("/events/{id}/join", app.joinEvent)
		r.Post("/events/{id}/artworks", app.submitArtwork)
		r.Get("/events/{id}/scores", app.getTeamScores)
		r.Post("/artworks/{id}/like", app.toggleLike)
		r.Post("/artworks/{id}/attack", app.launchAttack)
		r.Get("/users/{id}/stats", app.getUserStats)
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		p, err := app.profiles.FindOrCreateByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.Error(w, r, err)
			return
		}

		if err := app.sessionManager.RenewToken(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to renew session", err)
			return
		}
		app.sessionManager.Put(r.Context(), middleware.SessionUserKey, p.UserID.String())
		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := app.sessionManager.Destroy(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to end session", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func idParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Validation(apperr.CodeInvalidID, "Invalid ID")
	}
	return id, nil
}

// outcomeStatus is 202 when the action was stored but its points are still pending.
func outcomeStatus(outcome *service.Outcome, ok int) int {
	if outcome.Partial() {
		return http.StatusAccepted
	}
	return ok
}

func (app *application) getEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	details, err := app.events.GetEvent(r.Context(), eventID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, details)
}

func (app *application) joinEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	participant, err := app.events.JoinEvent(r.Context(), userID, eventID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, participant)
}

func (app *application) getTeamScores(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	scores, err := app.scoring.ComputeTeamScores(r.Context(), eventID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"event_id": eventID, "teams": scores})
}

func (app *application) getUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	stats, err := app.scoring.GetUserStats(r.Context(), userID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

// readImage returns the URL of the image sent with the form: an uploaded file under fileField, or a
// link under urlField. Uploads go to the blob store before any row is written.
func (app *application) readImage(r *http.Request, eventID uuid.UUID, title, fileField, urlField string) (string, error) {
	file, _, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return strings.TrimSpace(r.FormValue(urlField)), nil
	}
	if err != nil {
		return "", apperr.Validation(apperr.CodeImageInvalid, "Could not read the uploaded image")
	}
	defer file.Close()

	if app.uploads == nil {
		return "", apperr.Validation(apperr.CodeImageInvalid, "Uploads are disabled, send an image link instead")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", apperr.Validation(apperr.CodeImageInvalid, "Could not read the uploaded image")
	}
	contentType := http.DetectContentType(data)
	ext, ok := media.ExtensionFor(contentType)
	if !ok {
		return "", apperr.Validation(apperr.CodeImageInvalid, "Only PNG, JPEG, GIF and WebP images are accepted")
	}

	url, err := app.uploads.Put(r.Context(), blob.ArtworkKey(eventID, title, ext), contentType, data)
	if err != nil {
		return "", apperr.Storage("failed to upload image", err)
	}
	return url, nil
}

func (app *application) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, app.cfg.MaxUploadBytes)
	err := r.ParseMultipartForm(app.cfg.MaxUploadBytes)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return apperr.Validation(apperr.CodeImageInvalid, "The request body is too large or malformed")
	}
	return nil
}

func (app *application) submitArtwork(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := app.parseForm(w, r); err != nil {
		httputil.Error(w, r, err)
		return
	}

	// Reject before uploading so a refused submission leaves nothing in the bucket
	if err := app.scoring.CheckSubmission(r.Context(), userID, eventID); err != nil {
		httputil.Error(w, r, err)
		return
	}

	title := r.FormValue("title")
	imageURL, err := app.readImage(r, eventID, title, "image", "image_url")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	outcome, err := app.scoring.SubmitArtwork(r.Context(), service.SubmitArtworkInput{
		UserID:      userID,
		EventID:     eventID,
		Title:       title,
		Description: r.FormValue("description"),
		ImageURL:    imageURL,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, outcomeStatus(outcome, http.StatusCreated), outcome)
}

func optionalEventID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.FormValue("event_id"))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation(apperr.CodeInvalidID, "Invalid event ID")
	}
	return id, nil
}

func (app *application) toggleLike(w http.ResponseWriter, r *http.Request) {
	artworkID, err := idParam(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	eventID, err := optionalEventID(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	outcome, err := app.scoring.ToggleLike(r.Context(), userID, artworkID, eventID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, outcomeStatus(outcome, http.StatusOK), outcome)
}

func (app *application) launchAttack(w http.ResponseWriter, r *http.Request) {
	artworkID, err := idParam(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := app.parseForm(w, r); err != nil {
		httputil.Error(w, r, err)
		return
	}
	eventID, err := optionalEventID(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	input := service.LaunchAttackInput{
		AttackerID: userID,
		ArtworkID:  artworkID,
		EventID:    eventID,
	}
	if app.cfg.Scoring.AttackRequiresCounterArt {
		// Reject before uploading so a refused attack leaves nothing in the bucket
		target, err := app.scoring.CheckAttack(r.Context(), userID, artworkID, eventID)
		if err != nil {
			httputil.Error(w, r, err)
			return
		}

		input.FightTitle = r.FormValue("fight_title")
		input.FightImageURL, err = app.readImage(r, target.EventID, input.FightTitle, "fight_image", "fight_image_url")
		if err != nil {
			httputil.Error(w, r, err)
			return
		}
	}

	outcome, err := app.scoring.LaunchAttack(r.Context(), input)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, outcomeStatus(outcome, http.StatusCreated), outcome)
}
