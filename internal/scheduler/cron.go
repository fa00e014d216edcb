package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/services"
)

// CronScheduler drives the periodic refresh cycle. SkipIfStillRunning keeps
// a slow cycle from overlapping the next tick; there is no per-cycle
// deadline, a slow cycle simply delays the next one.
type CronScheduler struct {
	cron           *cron.Cron
	monitor        *services.RefreshMonitor
	interval       time.Duration
	logger         *logrus.Logger
	activeJobs     sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

func NewCronScheduler(
	monitor *services.RefreshMonitor,
	interval time.Duration,
	logger *logrus.Logger,
) *CronScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &CronScheduler{
		cron:           cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		monitor:        monitor,
		interval:       interval,
		logger:         logger,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}
}

func (s *CronScheduler) Start() {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, s.createJobWrapper("Fleet Refresh", func(ctx context.Context) error {
		return s.monitor.RunCycle(ctx)
	}))
	if err != nil {
		s.logger.WithError(err).Error("Failed to schedule fleet refresh")
		return
	}

	s.cron.Start()
	s.logger.WithField("interval", s.interval.String()).Info("Cron scheduler started successfully")
}

// createJobWrapper wraps a job with the shutdown context, logging, and panic recovery
func (s *CronScheduler) createJobWrapper(jobName string, jobFunc func(context.Context) error) func() {
	return func() {
		s.activeJobs.Add(1)
		defer s.activeJobs.Done()

		startTime := time.Now()

		s.logger.WithFields(logrus.Fields{
			"job":       jobName,
			"timestamp": startTime.UTC(),
		}).Debug("Starting scheduled job")

		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(logrus.Fields{
					"job":   jobName,
					"panic": r,
				}).Error("Job panicked")
			}
		}()

		err := jobFunc(s.shutdownCtx)

		duration := time.Since(startTime)

		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"job":      jobName,
				"duration": duration.String(),
				"error":    err.Error(),
			}).Error("Job failed")
		} else {
			s.logger.WithFields(logrus.Fields{
				"job":      jobName,
				"duration": duration.String(),
			}).Debug("Job completed successfully")
		}
	}
}

func (s *CronScheduler) Stop() {
	s.logger.Info("Stopping cron scheduler...")

	// Stop accepting new jobs
	ctx := s.cron.Stop()

	// Cancel the running cycle between its steps
	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.activeJobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("All jobs completed, cron scheduler stopped")
	case <-ctx.Done():
		s.logger.Info("Cron scheduler stopped")
	case <-time.After(1 * time.Minute):
		s.logger.Warn("Timeout waiting for jobs to complete, forcing shutdown")
	}
}

// GetSchedulerStatus returns the current status of the scheduler
func (s *CronScheduler) GetSchedulerStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
