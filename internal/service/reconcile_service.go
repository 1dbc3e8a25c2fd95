package service

import (
	"context"
	"log/slog"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/AdamBeresnev/art-battle/internal/store"
	"github.com/jmoiron/sqlx"
)

const reconcileBatchSize = 200

// ReconcileService repairs what the two-step interaction writes can leave behind: drifted counters,
// submissions without their award and point deltas that were queued instead of applied.
type ReconcileService struct {
	db       *sqlx.DB
	artworks *store.ArtworkStore
	points   *store.PointsStore
	scoring  *ScoringService
}

func NewReconcileService(db *sqlx.DB, artworks *store.ArtworkStore, points *store.PointsStore, scoring *ScoringService) *ReconcileService {
	return &ReconcileService{db: db, artworks: artworks, points: points, scoring: scoring}
}

type Report struct {
	CountersFixed int64 `json:"counters_fixed"`
	AwardsGranted int   `json:"awards_granted"`
	DeltasApplied int   `json:"deltas_applied"`
	Failures      int   `json:"failures"`
}

func (s *ReconcileService) Reconcile(ctx context.Context) (*Report, error) {
	report := &Report{}

	fixed, err := s.artworks.ReconcileCounters(ctx)
	if err != nil {
		return report, apperr.Storage("failed to reconcile counters", err)
	}
	report.CountersFixed = fixed

	unawarded, err := s.artworks.GetUnawardedArtworks(ctx, reconcileBatchSize)
	if err != nil {
		return report, apperr.Storage("failed to load unawarded artworks", err)
	}
	for i := range unawarded {
		outcome := s.scoring.award(ctx, &unawarded[i])
		switch {
		case outcome.Partial():
			report.Failures++
		case !outcome.AlreadyApplied:
			report.AwardsGranted++
		}
	}

	pending, err := s.points.GetPendingDeltas(ctx, reconcileBatchSize)
	if err != nil {
		return report, apperr.Storage("failed to load pending point deltas", err)
	}
	for _, p := range pending {
		applied, err := s.applyPending(ctx, p)
		if err != nil {
			slog.Error("failed to apply pending point delta", "id", p.ID, "user_id", p.UserID, "reason", p.Reason, "error", err)
			report.Failures++
			continue
		}
		if applied {
			report.DeltasApplied++
		}
	}

	if report.CountersFixed > 0 || report.AwardsGranted > 0 || report.DeltasApplied > 0 || report.Failures > 0 {
		slog.Info("reconciled", "counters_fixed", report.CountersFixed, "awards_granted", report.AwardsGranted,
			"deltas_applied", report.DeltasApplied, "failures", report.Failures)
	}
	return report, nil
}

// applyPending removes the queue row and applies its delta in one transaction, so a delta drained by
// two reconcilers at once is applied only by the one whose delete succeeded.
func (s *ReconcileService) applyPending(ctx context.Context, p battle.PendingDelta) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	deleted, err := s.points.DeletePendingDelta(ctx, tx, p.ID)
	if err != nil || !deleted {
		return false, err
	}
	if err := s.scoring.ledger.UpdateUserPoints(ctx, tx, p.PointsDelta); err != nil {
		return false, err
	}
	return true, tx.Commit()
}
