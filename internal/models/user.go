package models

import "time"

// User is an account able to authenticate and record progress
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DateJoined   time.Time `db:"date_joined" json:"-"`
}

// UserProfile holds the gamification state of a user
type UserProfile struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"-"`
	Username        string     `db:"username" json:"username"`
	Bio             string     `db:"bio" json:"bio"`
	ProfilePhotoURL string     `db:"profile_photo_url" json:"profile_photo_url"`
	Interests       StringList `db:"interests" json:"interests"`
	StreakDays      int        `db:"streak_days" json:"streak_days"`
	XP              int        `db:"xp" json:"xp"`
	LastCompletedAt *time.Time `db:"last_completed_at" json:"-"`
}

// AccessToken is issued by the token endpoint
type AccessToken struct {
	Access    string    `json:"access"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}
