// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler that reads standard five-field cron expressions and
// the @every/@hourly descriptors. Runs of the same job never overlap.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger.With(zap.String("component", "scheduler")),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// AddJob registers a job on a cron schedule, e.g. "*/15 * * * *" or "@every 30m".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.run(job)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Job registered",
		zap.String("schedule", schedule),
		zap.String("job", job.Name()),
	)
	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info("Running job immediately", zap.String("job", job.Name()))
	return job.Run()
}

func (s *Scheduler) run(job Job) {
	s.logger.Debug("Running job", zap.String("job", job.Name()))
	if err := job.Run(); err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name()), zap.Error(err))
		return
	}
	s.logger.Debug("Job completed", zap.String("job", job.Name()))
}
