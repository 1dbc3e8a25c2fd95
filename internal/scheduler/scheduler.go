package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/service"
	"github.com/go-co-op/gocron/v2"
)

type statusRefresher interface {
	RefreshStatuses(ctx context.Context, now time.Time) (int, error)
}

type reconciler interface {
	Reconcile(ctx context.Context) (*service.Report, error)
}

// Scheduler runs the background jobs: the event lifecycle clock and the reconciler.
type Scheduler struct {
	sched      gocron.Scheduler
	lifecycle  statusRefresher
	reconciler reconciler
}

func New(lifecycle statusRefresher, reconciler reconciler) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{sched: sched, lifecycle: lifecycle, reconciler: reconciler}, nil
}

// Start registers both jobs and starts them immediately. A run that overlaps the previous one is
// skipped instead of stacked.
func (s *Scheduler) Start(ctx context.Context, refreshEvery, reconcileEvery time.Duration) error {
	if _, err := s.sched.NewJob(
		gocron.DurationJob(refreshEvery),
		gocron.NewTask(func() { s.refreshStatuses(ctx) }),
		gocron.WithName("refresh-event-statuses"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return fmt.Errorf("failed to schedule status refresh: %w", err)
	}

	if _, err := s.sched.NewJob(
		gocron.DurationJob(reconcileEvery),
		gocron.NewTask(func() { s.reconcile(ctx) }),
		gocron.WithName("reconcile-points"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}

	s.sched.Start()
	slog.Info("scheduler started", "refresh_every", refreshEvery, "reconcile_every", reconcileEvery)
	return nil
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) refreshStatuses(ctx context.Context) {
	if _, err := s.lifecycle.RefreshStatuses(ctx, time.Now()); err != nil {
		slog.Error("status refresh failed", "error", err)
	}
}

func (s *Scheduler) reconcile(ctx context.Context) {
	if _, err := s.reconciler.Reconcile(ctx); err != nil {
		slog.Error("reconcile failed", "error", err)
	}
}
