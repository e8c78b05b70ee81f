package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lingoquest/internal/database"
	"lingoquest/internal/models"
)

const progressColumns = "id, user_id, lesson_id, is_completed, completed_at"

// ProgressRepository handles database operations for lesson completions
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Create records a completed lesson. A second record for the same
// (user, lesson) pair yields ErrDuplicate.
func (r *ProgressRepository) Create(ctx context.Context, q database.DBTX, userID, lessonID int64, completedAt time.Time) (*models.UserProgress, error) {
	completedAt = completedAt.UTC()
	id, err := pick(q, r.db).ExecReturningID(ctx,
		"INSERT INTO user_progress (user_id, lesson_id, is_completed, completed_at) VALUES (?, ?, ?, ?)",
		userID, lessonID, true, completedAt)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}

	return &models.UserProgress{
		ID:          id,
		UserID:      userID,
		LessonID:    lessonID,
		IsCompleted: true,
		CompletedAt: completedAt,
	}, nil
}

// Get retrieves the record for a (user, lesson) pair, or nil if none exists
func (r *ProgressRepository) Get(ctx context.Context, userID, lessonID int64) (*models.UserProgress, error) {
	var p models.UserProgress
	err := r.db.GetContext(ctx, &p, "SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? AND lesson_id = ?", userID, lessonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &p, nil
}

// ListByUser returns a user's records, newest first
func (r *ProgressRepository) ListByUser(ctx context.Context, userID int64) ([]models.UserProgress, error) {
	var records []models.UserProgress
	err := r.db.SelectContext(ctx, &records,
		"SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? ORDER BY completed_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}
