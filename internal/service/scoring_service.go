package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/AdamBeresnev/art-battle/internal/media"
	"github.com/AdamBeresnev/art-battle/internal/store"
	"github.com/AdamBeresnev/art-battle/internal/utils"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// pointsLedger is the write side of user_points.
type pointsLedger interface {
	UpdateUserPoints(ctx context.Context, tx sqlx.ExtContext, delta battle.PointsDelta) error
	EnqueueDelta(ctx context.Context, tx sqlx.ExtContext, pending *battle.PendingDelta) error
	CancelPendingDelta(ctx context.Context, tx sqlx.ExtContext, delta battle.PointsDelta) (bool, error)
}

type ScoringConfig struct {
	Rewards                  battle.Rewards
	AttackRequiresCounterArt bool
	MaxRetries               uint
	RetryInterval            time.Duration
}

var DefaultScoringConfig = ScoringConfig{
	Rewards:       battle.DefaultRewards,
	MaxRetries:    3,
	RetryInterval: 50 * time.Millisecond,
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomePartialSuccess means the primary row was committed but the points were not applied yet.
	// The delta is picked up by the reconciler.
	OutcomePartialSuccess OutcomeStatus = "partial_success"
)

type Outcome struct {
	Status         OutcomeStatus   `json:"status"`
	Artwork        *battle.Artwork `json:"artwork,omitempty"`
	Liked          bool            `json:"liked"`
	AlreadyApplied bool            `json:"already_applied,omitempty"`
	PointsPending  bool            `json:"points_pending"`
	ScoringErr     error           `json:"-"`
}

func success() *Outcome {
	return &Outcome{Status: OutcomeSuccess}
}

func (o *Outcome) partial(err error) *Outcome {
	o.Status = OutcomePartialSuccess
	o.PointsPending = true
	o.ScoringErr = err
	return o
}

func (o *Outcome) Partial() bool {
	return o.Status == OutcomePartialSuccess
}

type ScoringService struct {
	db        *sqlx.DB
	events    *store.EventStore
	artworks  *store.ArtworkStore
	points    *store.PointsStore
	ledger    pointsLedger
	lifecycle *LifecycleService
	cfg       ScoringConfig
	now       func() time.Time
}

func NewScoringService(db *sqlx.DB, events *store.EventStore, artworks *store.ArtworkStore, points *store.PointsStore, lifecycle *LifecycleService, cfg ScoringConfig) *ScoringService {
	return &ScoringService{
		db:        db,
		events:    events,
		artworks:  artworks,
		points:    points,
		ledger:    points,
		lifecycle: lifecycle,
		cfg:       cfg,
		now:       time.Now,
	}
}

type SubmitArtworkInput struct {
	UserID      uuid.UUID
	EventID     uuid.UUID
	Title       string
	Description string
	ImageURL    string
}

type LaunchAttackInput struct {
	AttackerID uuid.UUID
	ArtworkID  uuid.UUID
	// Zero means the target artwork's event
	EventID       uuid.UUID
	FightTitle    string
	FightImageURL string
}

func (s *ScoringService) retry() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInterval
	b.MaxInterval = 20 * s.cfg.RetryInterval
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(max(s.cfg.MaxRetries, 1)),
	}
}

// applyPoints runs the points step of an interaction after its primary row was committed. A delta
// that still fails after the retries is queued for the reconciler and the error is returned.
func (s *ScoringService) applyPoints(ctx context.Context, delta battle.PointsDelta, reason string) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.ledger.UpdateUserPoints(ctx, s.db, delta)
	}, s.retry()...)
	if err == nil {
		return nil
	}

	pending := &battle.PendingDelta{
		ID:          uuid.New(),
		PointsDelta: delta,
		Reason:      reason,
		LastError:   err.Error(),
	}
	if qerr := s.ledger.EnqueueDelta(ctx, s.db, pending); qerr != nil {
		slog.Error("failed to queue point delta", "user_id", delta.UserID, "event_id", delta.EventID, "reason", reason, "error", qerr)
	}
	slog.Warn("points deferred", "user_id", delta.UserID, "event_id", delta.EventID, "reason", reason, "error", err)
	return err
}

// loadTarget resolves the artwork, its event and both parties' teams for a like or an attack.
func (s *ScoringService) loadTarget(ctx context.Context, actorID, artworkID, eventID uuid.UUID) (*battle.Artwork, *battle.Event, error) {
	artwork, err := s.artworks.GetArtwork(ctx, artworkID)
	if err != nil {
		return nil, nil, lookupErr(err, apperr.CodeArtworkNotFound, "Artwork not found")
	}
	if eventID == uuid.Nil {
		eventID = artwork.EventID
	}
	if artwork.EventID != eventID {
		return nil, nil, apperr.NotEligible(apperr.CodeWrongEvent, "The artwork belongs to another event")
	}

	event, err := s.lifecycle.Current(ctx, eventID, s.now())
	if err != nil {
		return nil, nil, err
	}

	actor, err := s.events.FindParticipant(ctx, s.db, eventID, actorID)
	if err != nil {
		return nil, nil, apperr.Storage("failed to load participant", err)
	}
	owner, err := s.events.FindParticipant(ctx, s.db, eventID, artwork.UserID)
	if err != nil {
		return nil, nil, apperr.Storage("failed to load participant", err)
	}

	if err := battle.CheckInteraction(actorID, artwork.UserID, battle.TeamOf(actor), battle.TeamOf(owner), event); err != nil {
		return nil, nil, err
	}
	return artwork, event, nil
}

// CheckSubmission reports why the user may not submit artwork to the event right now, or nil.
func (s *ScoringService) CheckSubmission(ctx context.Context, userID, eventID uuid.UUID) error {
	now := s.now()
	event, err := s.lifecycle.Current(ctx, eventID, now)
	if err != nil {
		return err
	}
	participant, err := s.events.FindParticipant(ctx, s.db, eventID, userID)
	if err != nil {
		return apperr.Storage("failed to load participant", err)
	}
	return battle.CheckUpload(participant, event, now)
}

func validateArtwork(title, imageURL string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation(apperr.CodeTitleRequired, "Title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", apperr.Validation(apperr.CodeTitleTooLong, "Title is too long")
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", apperr.Validation(apperr.CodeImageRequired, "An image is required")
	}
	if !media.IsImageURL(imageURL) {
		return "", apperr.Validation(apperr.CodeImageInvalid, "The image must be an http(s) link")
	}
	return title, nil
}

// SubmitArtwork stores the artwork and awards the submission points.
func (s *ScoringService) SubmitArtwork(ctx context.Context, input SubmitArtworkInput) (*Outcome, error) {
	title, err := validateArtwork(input.Title, input.ImageURL)
	if err != nil {
		return nil, err
	}
	if err := s.CheckSubmission(ctx, input.UserID, input.EventID); err != nil {
		return nil, err
	}

	artwork := &battle.Artwork{
		ID:          uuid.New(),
		EventID:     input.EventID,
		UserID:      input.UserID,
		Title:       title,
		Description: utils.StringOrNil(input.Description),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.artworks.CreateArtwork(ctx, s.db, artwork); err != nil {
		return nil, apperr.Storage("failed to save artwork", err)
	}

	outcome := s.award(ctx, artwork)
	outcome.Artwork = artwork
	return outcome, nil
}

// AwardArtworkSubmission grants the submission reward for an artwork exactly once. Calling it again for
// the same artwork changes nothing and reports AlreadyApplied.
func (s *ScoringService) AwardArtworkSubmission(ctx context.Context, userID, eventID, artworkID uuid.UUID) (*Outcome, error) {
	artwork, err := s.artworks.GetArtwork(ctx, artworkID)
	if err != nil {
		return nil, lookupErr(err, apperr.CodeArtworkNotFound, "Artwork not found")
	}
	if artwork.UserID != userID || artwork.EventID != eventID {
		return nil, apperr.NotEligible(apperr.CodeWrongEvent, "The artwork does not belong to this user and event")
	}
	return s.award(ctx, artwork), nil
}

// award records the ledger row and the points in one transaction. When it keeps failing nothing is
// written and the reconciler finds the artwork through the missing ledger row.
func (s *ScoringService) award(ctx context.Context, artwork *battle.Artwork) *Outcome {
	awarded, err := backoff.Retry(ctx, func() (bool, error) {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return false, err
		}
		defer tx.Rollback()

		inserted, err := s.artworks.RecordAward(ctx, tx, &battle.ArtworkAward{
			ArtworkID: artwork.ID,
			UserID:    artwork.UserID,
			EventID:   artwork.EventID,
			Points:    s.cfg.Rewards.Artwork,
		})
		if err != nil {
			return false, err
		}
		if inserted {
			delta := battle.PointsDelta{UserID: artwork.UserID, EventID: artwork.EventID, ArtworkPoints: s.cfg.Rewards.Artwork}
			if err := s.ledger.UpdateUserPoints(ctx, tx, delta); err != nil {
				return false, err
			}
		}
		return inserted, tx.Commit()
	}, s.retry()...)

	outcome := success()
	if err != nil {
		slog.Warn("submission award deferred", "artwork_id", artwork.ID, "user_id", artwork.UserID, "error", err)
		return outcome.partial(err)
	}
	outcome.AlreadyApplied = !awarded
	return outcome
}

// ToggleLike likes the artwork, or removes the like if the user already gave one. The owner gains or
// loses the like reward accordingly. A toggle that reverses a still queued like delta cancels it instead
// of touching user_points.
func (s *ScoringService) ToggleLike(ctx context.Context, userID, artworkID, eventID uuid.UUID) (*Outcome, error) {
	artwork, _, err := s.loadTarget(ctx, userID, artworkID, eventID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback()

	removed, err := s.artworks.DeleteInteraction(ctx, tx, artwork.ID, userID, battle.InteractionLike)
	if err != nil {
		return nil, apperr.Storage("failed to remove like", err)
	}

	delta := 1
	if removed {
		delta = -1
	} else {
		err := s.artworks.InsertInteraction(ctx, tx, &battle.Interaction{
			ID:        uuid.New(),
			ArtworkID: artwork.ID,
			UserID:    userID,
			Type:      battle.InteractionLike,
		})
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.NotEligible(apperr.CodeAlreadyLiked, "You already liked this artwork")
		}
		if err != nil {
			return nil, apperr.Storage("failed to save like", err)
		}
	}

	if err := s.artworks.AdjustCounter(ctx, tx, artwork.ID, battle.InteractionLike, delta); err != nil {
		return nil, apperr.Storage("failed to update like count", err)
	}

	points := battle.PointsDelta{UserID: artwork.UserID, EventID: artwork.EventID, LikePoints: delta * s.cfg.Rewards.Like}
	cancelled := false
	if !points.IsZero() {
		cancelled, err = s.ledger.CancelPendingDelta(ctx, tx, points.Negate())
		if err != nil {
			return nil, apperr.Storage("failed to cancel queued like points", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("failed to commit like", err)
	}

	outcome := success()
	outcome.Liked = !removed
	if cancelled || points.IsZero() {
		return outcome, nil
	}
	if err := s.applyPoints(ctx, points, string(battle.InteractionLike)); err != nil {
		return outcome.partial(err), nil
	}
	return outcome, nil
}

// CheckAttack returns the target artwork when the attacker may attack it right now. A zero eventID
// means the artwork's own event.
func (s *ScoringService) CheckAttack(ctx context.Context, attackerID, artworkID, eventID uuid.UUID) (*battle.Artwork, error) {
	artwork, _, err := s.loadTarget(ctx, attackerID, artworkID, eventID)
	if err != nil {
		return nil, err
	}

	attacked, err := s.artworks.HasInteraction(ctx, s.db, artwork.ID, attackerID, battle.InteractionAttack)
	if err != nil {
		return nil, apperr.Storage("failed to check previous attacks", err)
	}
	if attacked {
		return nil, apperr.NotEligible(apperr.CodeAlreadyAttacked, "You already attacked this artwork")
	}
	return artwork, nil
}

// RegisterAttack records a one-click attack.
func (s *ScoringService) RegisterAttack(ctx context.Context, attackerID, artworkID, eventID uuid.UUID) (*Outcome, error) {
	return s.LaunchAttack(ctx, LaunchAttackInput{AttackerID: attackerID, ArtworkID: artworkID, EventID: eventID})
}

// LaunchAttack records an attack on the artwork and rewards the attacker. When counter art is required
// the fight artwork is stored in the same transaction as the attack.
func (s *ScoringService) LaunchAttack(ctx context.Context, input LaunchAttackInput) (*Outcome, error) {
	var fight *battle.FightArtwork
	if s.cfg.AttackRequiresCounterArt {
		if strings.TrimSpace(input.FightTitle) == "" && strings.TrimSpace(input.FightImageURL) == "" {
			return nil, apperr.Validation(apperr.CodeCounterArtNeeded, "An attack needs counter artwork")
		}
		title, err := validateArtwork(input.FightTitle, input.FightImageURL)
		if err != nil {
			return nil, err
		}
		fight = &battle.FightArtwork{
			ID:              uuid.New(),
			AttackerID:      input.AttackerID,
			TargetArtworkID: input.ArtworkID,
			Title:           title,
			ImageURL:        strings.TrimSpace(input.FightImageURL),
		}
	}

	artwork, err := s.CheckAttack(ctx, input.AttackerID, input.ArtworkID, input.EventID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback()

	err = s.artworks.InsertInteraction(ctx, tx, &battle.Interaction{
		ID:        uuid.New(),
		ArtworkID: artwork.ID,
		UserID:    input.AttackerID,
		Type:      battle.InteractionAttack,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.NotEligible(apperr.CodeAlreadyAttacked, "You already attacked this artwork")
	}
	if err != nil {
		return nil, apperr.Storage("failed to save attack", err)
	}
	if err := s.artworks.AdjustCounter(ctx, tx, artwork.ID, battle.InteractionAttack, 1); err != nil {
		return nil, apperr.Storage("failed to update attack count", err)
	}
	if fight != nil {
		if err := s.artworks.CreateFightArtwork(ctx, tx, fight); err != nil {
			return nil, apperr.Storage("failed to save counter artwork", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("failed to commit attack", err)
	}

	outcome := success()
	points := battle.PointsDelta{UserID: input.AttackerID, EventID: artwork.EventID, AttackPoints: s.cfg.Rewards.Attack}
	if err := s.applyPoints(ctx, points, string(battle.InteractionAttack)); err != nil {
		return outcome.partial(err), nil
	}
	return outcome, nil
}

// ComputeTeamScores aggregates the current points of both teams. Team A always comes first.
func (s *ScoringService) ComputeTeamScores(ctx context.Context, eventID uuid.UUID) ([]battle.TeamScore, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, lookupErr(err, apperr.CodeEventNotFound, "Event not found")
	}

	rows, err := s.points.GetTeamScores(ctx, eventID)
	if err != nil {
		return nil, apperr.Storage("failed to aggregate team scores", err)
	}

	scores := []battle.TeamScore{
		{Team: battle.TeamA, Name: event.TeamName(battle.TeamA)},
		{Team: battle.TeamB, Name: event.TeamName(battle.TeamB)},
	}
	for _, row := range rows {
		for i := range scores {
			if scores[i].Team == row.Team {
				scores[i].TotalPoints = row.TotalPoints
				scores[i].MemberCount = row.MemberCount
			}
		}
	}
	return scores, nil
}

func (s *ScoringService) GetUserStats(ctx context.Context, userID uuid.UUID) (*battle.UserStats, error) {
	events, err := s.points.GetUserPointsByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("failed to load user points", err)
	}
	activity, err := s.artworks.GetUserActivity(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("failed to load user activity", err)
	}

	stats := &battle.UserStats{
		UserID:   userID,
		Events:   events,
		Activity: *activity,
	}
	if stats.Events == nil {
		stats.Events = []battle.UserPoints{}
	}
	for _, e := range events {
		stats.TotalPoints += e.PointsTotal
	}
	return stats, nil
}
