// Package scheduler runs the periodic maintenance jobs of the server.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"lingoquest/internal/logger"
)

// jobTimeout bounds a single run of a job
const jobTimeout = 5 * time.Minute

// StreakResetter zeroes streaks that were not extended in time
type StreakResetter interface {
	ResetStaleStreaks(ctx context.Context) (int64, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	streaks   StreakResetter
	log       *logger.Logger
}

// New creates a new scheduler. All cron expressions are evaluated in UTC.
func New(streaks StreakResetter, log *logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		streaks:   streaks,
		log:       log.With("component", "scheduler"),
	}
}

// Start registers the streak reset job on cronExpr and begins running jobs
// in the background. An empty expression disables the job.
func (s *Scheduler) Start(cronExpr string) error {
	if cronExpr == "" {
		s.log.Info("streak reset job disabled")
	} else {
		if _, err := s.scheduler.Cron(cronExpr).SingletonMode().Do(s.resetStreaks); err != nil {
			return fmt.Errorf("invalid streak reset schedule %q: %w", cronExpr, err)
		}
		s.log.Info("streak reset job scheduled", "cron", cronExpr)
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// JobCount returns the number of registered jobs
func (s *Scheduler) JobCount() int {
	return s.scheduler.Len()
}

func (s *Scheduler) resetStreaks() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.streaks.ResetStaleStreaks(ctx); err != nil {
		s.log.Error("streak reset failed", "error", err)
	}
}
