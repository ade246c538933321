// Package scheduler runs the recurring jobs: prediction refresh, results
// settlement, exchange rate updates and session cleanup. All cron
// expressions are evaluated in the configured application timezone.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/config"
	"github.com/yourusername/odd2/internal/payment"
	"github.com/yourusername/odd2/internal/repository"
	"github.com/yourusername/odd2/internal/service"
)

// sessionRetention is how long expired sessions are kept before deletion
const sessionRetention = 7 * 24 * time.Hour

// Scheduler manages the recurring background jobs
type Scheduler struct {
	cron            *cron.Cron
	generator       *service.Generator
	results         *service.ResultsChecker
	rates           *payment.RatesRefresher
	sessions        repository.SessionRepository
	schedule        config.ScheduleConfig
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a scheduler in the given location
func NewScheduler(
	location *time.Location,
	generator *service.Generator,
	results *service.ResultsChecker,
	rates *payment.RatesRefresher,
	sessions repository.SessionRepository,
	schedule config.ScheduleConfig,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(location)),
		generator:       generator,
		results:         results,
		rates:           rates,
		sessions:        sessions,
		schedule:        schedule,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleAll registers the four recurring jobs
func (s *Scheduler) ScheduleAll() error {
	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"generate_predictions", s.schedule.Predictions, s.runPredictionJob},
		{"update_results", s.schedule.Results, s.runResultsJob},
		{"update_exchange_rates", s.schedule.ExchangeRates, s.runRatesJob},
		{"cleanup_sessions", s.schedule.SessionCleanup, s.runSessionCleanup},
	}

	for _, job := range jobs {
		if err := s.addJob(job.name, job.spec, job.fn); err != nil {
			return err
		}
	}
	return nil
}

// addJob registers one cron job
func (s *Scheduler) addJob(name, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("Scheduled job")
	return nil
}

// runPredictionJob refreshes the published predictions and cuts off all
// outstanding VIP access, since the access was sold against the old picks
func (s *Scheduler) runPredictionJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info("Running prediction job")

	if _, err := s.generator.GenerateAndPersist(ctx); err != nil {
		s.logger.WithError(err).Error("Prediction job failed")
		return
	}

	expired, err := s.sessions.ExpireAll(ctx, time.Now().UTC())
	if err != nil {
		s.logger.WithError(err).Warn("Failed to expire VIP sessions")
		return
	}
	s.logger.WithField("count", expired).Info("Expired VIP sessions")
}

// runResultsJob settles finished matches
func (s *Scheduler) runResultsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.results.CheckPending(ctx); err != nil {
		s.logger.WithError(err).Error("Results job failed")
	}
}

// runRatesJob refreshes exchange rates
func (s *Scheduler) runRatesJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.rates.Refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("Exchange rate job failed")
	}
}

// runSessionCleanup deletes sessions past the retention window
func (s *Scheduler) runSessionCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deleted, err := s.sessions.DeleteOlderThan(ctx, time.Now().UTC().Add(-sessionRetention))
	if err != nil {
		s.logger.WithError(err).Warn("Session cleanup failed")
		return
	}
	s.logger.WithField("count", deleted).Debug("Cleaned up old sessions")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Scheduler stop timed out waiting for jobs")
	}

	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the earliest upcoming job time
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}
