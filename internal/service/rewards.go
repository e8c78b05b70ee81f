package service

import (
	"context"
	"fmt"
	"time"

	"lingoquest/internal/database"
	"lingoquest/internal/events"
	"lingoquest/internal/logger"
	"lingoquest/internal/repository"
)

// RewardService applies the gamification side effects of a completed lesson
type RewardService struct {
	profiles *repository.ProfileRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewRewardService creates a new reward service
func NewRewardService(profiles *repository.ProfileRepository, log *logger.Logger) *RewardService {
	return &RewardService{
		profiles: profiles,
		log:      log.With("service", "rewards"),
		now:      time.Now,
	}
}

// Register subscribes the XP award and the streak update to bus. XP goes
// first: its UPDATE takes the profile row lock the streak read relies on.
func (s *RewardService) Register(bus *events.Bus) error {
	if err := bus.Subscribe(events.TypeLessonCompleted, "award_xp", s.AwardXP); err != nil {
		return err
	}
	return bus.Subscribe(events.TypeLessonCompleted, "update_streak", s.UpdateStreak)
}

// AwardXP adds the lesson's reward to the user's XP in one atomic statement.
// It holds no dedup logic; the progress uniqueness constraint guarantees a
// single LessonCompleted per (user, lesson).
func (s *RewardService) AwardXP(ctx context.Context, tx database.DBTX, ev events.Event) error {
	lc, ok := ev.(events.LessonCompleted)
	if !ok {
		return nil
	}
	if err := s.profiles.IncrementXP(ctx, tx, lc.UserID, lc.XPReward); err != nil {
		return fmt.Errorf("failed to award xp: %w", err)
	}
	s.log.Debug("xp awarded", "user_id", lc.UserID, "lesson_id", lc.LessonID, "xp", lc.XPReward)
	return nil
}

// UpdateStreak counts consecutive UTC days with a first-time completion
func (s *RewardService) UpdateStreak(ctx context.Context, tx database.DBTX, ev events.Event) error {
	lc, ok := ev.(events.LessonCompleted)
	if !ok {
		return nil
	}
	current, last, err := s.profiles.GetStreak(ctx, tx, lc.UserID)
	if err != nil {
		return fmt.Errorf("failed to read streak: %w", err)
	}

	at := lc.CompletedAt
	if at.IsZero() {
		at = s.now()
	}
	next := NextStreak(current, last, at)
	if err := s.profiles.SetStreak(ctx, tx, lc.UserID, next, at); err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	return nil
}

// ResetStaleStreaks zeroes the streak of users with no completion since the
// start of yesterday (UTC)
func (s *RewardService) ResetStaleStreaks(ctx context.Context) (int64, error) {
	cutoff := startOfDay(s.now()).AddDate(0, 0, -1)
	n, err := s.profiles.ResetStreaksBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("stale streaks reset", "profiles", n, "cutoff", cutoff)
	return n, nil
}

// NextStreak returns the streak after a completion at time at, given the
// current streak and the previous completion time
func NextStreak(current int, last *time.Time, at time.Time) int {
	if last == nil {
		return 1
	}
	today := startOfDay(at)
	lastDay := startOfDay(*last)

	switch {
	case !lastDay.Before(today):
		if current < 1 {
			return 1
		}
		return current
	case lastDay.Equal(today.AddDate(0, 0, -1)):
		return current + 1
	default:
		return 1
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
