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

// ErrProfileMissing is returned when a profile update matches no row
var ErrProfileMissing = errors.New("user profile does not exist")

// ProfileRepository handles database operations for user profiles
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

var profileInsertColumns = []string{"user_id", "bio", "profile_photo_url", "interests", "streak_days", "xp"}

// Create inserts an empty profile for a new user
func (r *ProfileRepository) Create(ctx context.Context, q database.DBTX, userID int64) error {
	query := "INSERT INTO user_profiles (user_id, bio, profile_photo_url, interests, streak_days, xp) VALUES (?, ?, ?, ?, ?, ?)"
	if _, err := pick(q, r.db).ExecContext(ctx, query, userID, "", "", models.StringList{}, 0, 0); err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// EnsureExists creates the user's profile unless it is already there
func (r *ProfileRepository) EnsureExists(ctx context.Context, userID int64) error {
	query := r.db.Dialect.InsertIgnoreQuery("user_profiles", profileInsertColumns...)
	if _, err := r.db.ExecContext(ctx, query, userID, "", "", models.StringList{}, 0, 0); err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

// GetByUserID retrieves a user's profile, or nil if none exists
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.UserProfile, error) {
	query := `
		SELECT p.id, p.user_id, u.username, p.bio, p.profile_photo_url, p.interests,
		       p.streak_days, p.xp, p.last_completed_at
		FROM user_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = ?
	`
	var profile models.UserProfile
	err := r.db.GetContext(ctx, &profile, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// UpdateDetails writes the user-editable profile fields
func (r *ProfileRepository) UpdateDetails(ctx context.Context, userID int64, bio, photoURL string, interests models.StringList) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE user_profiles SET bio = ?, profile_photo_url = ?, interests = ? WHERE user_id = ?",
		bio, photoURL, interests, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return expectOneRow(res)
}

// IncrementXP adds amount to the user's XP in a single statement
func (r *ProfileRepository) IncrementXP(ctx context.Context, q database.DBTX, userID int64, amount int) error {
	res, err := pick(q, r.db).ExecContext(ctx, "UPDATE user_profiles SET xp = xp + ? WHERE user_id = ?", amount, userID)
	if err != nil {
		return fmt.Errorf("failed to increment xp: %w", err)
	}
	return expectOneRow(res)
}

// GetStreak returns the streak counter and the last completion time
func (r *ProfileRepository) GetStreak(ctx context.Context, q database.DBTX, userID int64) (int, *time.Time, error) {
	var row struct {
		StreakDays      int        `db:"streak_days"`
		LastCompletedAt *time.Time `db:"last_completed_at"`
	}
	err := pick(q, r.db).GetContext(ctx, &row, "SELECT streak_days, last_completed_at FROM user_profiles WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, ErrProfileMissing
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return row.StreakDays, row.LastCompletedAt, nil
}

// SetStreak stores the streak counter and last completion time
func (r *ProfileRepository) SetStreak(ctx context.Context, q database.DBTX, userID int64, days int, lastCompletedAt time.Time) error {
	res, err := pick(q, r.db).ExecContext(ctx,
		"UPDATE user_profiles SET streak_days = ?, last_completed_at = ? WHERE user_id = ?",
		days, lastCompletedAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to set streak: %w", err)
	}
	return expectOneRow(res)
}

// ResetStreaksBefore zeroes the streak of every profile whose last completion
// is older than cutoff and returns how many profiles changed
func (r *ProfileRepository) ResetStreaksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE user_profiles SET streak_days = 0 WHERE streak_days > 0 AND (last_completed_at IS NULL OR last_completed_at < ?)",
		cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reset streaks: %w", err)
	}
	return res.RowsAffected()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrProfileMissing
	}
	return nil
}
