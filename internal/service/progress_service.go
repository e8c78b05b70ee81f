package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lingoquest/internal/apperr"
	"lingoquest/internal/database"
	"lingoquest/internal/events"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/repository"
)

// errAlreadyRecorded aborts the progress transaction when the pair already exists
var errAlreadyRecorded = errors.New("progress already recorded")

// ProgressService records lesson completions. Recording is idempotent per
// (user, lesson): the first call creates the record and publishes
// LessonCompleted; later calls return the existing record.
type ProgressService struct {
	db       *database.DB
	content  *repository.ContentRepository
	progress *repository.ProgressRepository
	profiles *repository.ProfileRepository
	bus      *events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(
	db *database.DB,
	content *repository.ContentRepository,
	progress *repository.ProgressRepository,
	profiles *repository.ProfileRepository,
	bus *events.Bus,
	log *logger.Logger,
) *ProgressService {
	return &ProgressService{
		db:       db,
		content:  content,
		progress: progress,
		profiles: profiles,
		bus:      bus,
		log:      log.With("service", "progress"),
		now:      time.Now,
	}
}

// MsgLessonIDNotPositive rejects zero, negative and non-numeric lesson ids
const MsgLessonIDNotPositive = "lesson_id must be a positive integer."

// LogProgress marks lessonID complete for userID. created is true only for
// the call that inserted the record.
func (s *ProgressService) LogProgress(ctx context.Context, userID int64, lessonID *int64) (*models.UserProgress, bool, error) {
	if lessonID == nil {
		return nil, false, apperr.BadRequest(apperr.MsgRequired)
	}
	if *lessonID <= 0 {
		return nil, false, apperr.BadRequest(MsgLessonIDNotPositive)
	}

	lesson, err := s.content.GetLesson(ctx, *lessonID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load lesson: %w", err)
	}
	if lesson == nil {
		return nil, false, apperr.NotFound("Lesson not found.")
	}

	if err := s.profiles.EnsureExists(ctx, userID); err != nil {
		return nil, false, err
	}

	var record *models.UserProgress
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		p, err := s.progress.Create(ctx, tx, userID, lesson.ID, s.now())
		if errors.Is(err, repository.ErrDuplicate) {
			return errAlreadyRecorded
		}
		if err != nil {
			return err
		}

		ev := events.LessonCompleted{
			UserID:      userID,
			LessonID:    lesson.ID,
			XPReward:    lesson.XPReward,
			CompletedAt: p.CompletedAt,
		}
		if err := s.bus.Publish(ctx, tx, ev); err != nil {
			return err
		}
		record = p
		return nil
	})

	if errors.Is(err, errAlreadyRecorded) {
		existing, err := s.progress.Get(ctx, userID, lesson.ID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			// The winning row disappeared with its lesson or user
			return nil, false, apperr.NotFound("Lesson not found.")
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to record progress: %w", err)
	}

	s.log.Info("lesson completed", "user_id", userID, "lesson_id", lesson.ID, "xp_reward", lesson.XPReward)
	return record, true, nil
}

// ListProgress returns the user's completion records, newest first
func (s *ProgressService) ListProgress(ctx context.Context, userID int64) ([]models.UserProgress, error) {
	records, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNil(records), nil
}
