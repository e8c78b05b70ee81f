package models

import "time"

// UserProgress records that a user completed a lesson. It is written once.
type UserProgress struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"-"`
	LessonID    int64     `db:"lesson_id" json:"lesson"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}
