package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"GreenDeck/internal/logger"
	"GreenDeck/internal/recorder"
	"GreenDeck/internal/report"
	"GreenDeck/internal/session"
)

// Scheduler manages the periodic snapshot and idle-sweep jobs.
type Scheduler struct {
	Cron        *cron.Cron
	Registry    *session.Registry
	Recorder    recorder.Recorder
	IdleTimeout time.Duration
	log         *logger.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(reg *session.Registry, rec recorder.Recorder, idle time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Registry:    reg,
		Recorder:    rec,
		IdleTimeout: idle,
		log:         log.With("component", "Scheduler"),
	}
}

// RegisterAll registers the snapshot and sweep jobs.
func (s *Scheduler) RegisterAll(snapshotCron, sweepCron string) error {
	if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunSnapshotNow executes the snapshot task immediately (for manual trigger
// and shutdown). Returns the number of learners recorded.
func (s *Scheduler) RunSnapshotNow() int {
	return s.snapshot()
}

func (s *Scheduler) snapshotTask() {
	s.snapshot()
}

func (s *Scheduler) snapshot() int {
	learners := s.Registry.Snapshot()
	if len(learners) == 0 {
		s.log.Debug("snapshot skipped, no active learners")
		return 0
	}

	recorded := 0
	completed := 0
	var sum float64
	for _, l := range learners {
		sum += l.Derived.ProgressPercent
		completed += len(l.State.CompletedMilestones)
		if err := s.Recorder.RecordSnapshot(&recorder.Snapshot{
			LearnerID:       l.LearnerID,
			CurrentSlide:    l.State.CurrentSlide,
			ProgressPercent: l.Derived.ProgressPercent,
			ActiveSectionID: l.Derived.ActiveSectionID,
			Milestones:      l.State.CompletedMilestones,
		}); err != nil {
			s.log.Error("record snapshot", "learner", l.LearnerID, "error", err)
			continue
		}
		recorded++
	}

	s.log.Info(report.FormatSnapshotSummary(len(learners), sum/float64(len(learners)), completed))
	return recorded
}

func (s *Scheduler) sweepTask() {
	s.Registry.Sweep(s.IdleTimeout)
}
