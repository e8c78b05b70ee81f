// Package testutil provides migrated SQLite databases and content fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lingoquest/internal/database"
)

// NewDB opens a fresh SQLite database under t.TempDir() with all migrations applied
func NewDB(t testing.TB) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Initialize(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(ctx, database.MigrationSource(""))
	require.NoError(t, err)
	return db
}

// Fixture holds the ids of a seeded single-branch content tree
type Fixture struct {
	LanguageID int64
	ModuleID   int64
	LessonID   int64
	ExerciseID int64
}

// SeedTree inserts one language with one module, one lesson worth xpReward
// and one mcq exercise
func SeedTree(t testing.TB, db *database.DB, code string, xpReward int) Fixture {
	t.Helper()
	ctx := context.Background()
	var f Fixture
	var err error

	f.LanguageID, err = db.ExecReturningID(ctx, "INSERT INTO languages (name, code) VALUES (?, ?)", "Language "+code, code)
	require.NoError(t, err)
	f.ModuleID = InsertModule(t, db, f.LanguageID, "Basics", 1)
	f.LessonID = InsertLesson(t, db, f.ModuleID, "Greetings", 1, xpReward)
	f.ExerciseID, err = db.ExecReturningID(ctx,
		"INSERT INTO exercises (lesson_id, type, question, answer, options) VALUES (?, ?, ?, ?, ?)",
		f.LessonID, "mcq", "Hola", "Hello", `{"choices":["Hello","Bye"]}`)
	require.NoError(t, err)
	return f
}

// InsertModule adds a module to a language
func InsertModule(t testing.TB, db *database.DB, languageID int64, title string, order int) int64 {
	t.Helper()
	id, err := db.ExecReturningID(context.Background(),
		"INSERT INTO modules (language_id, title, position, description) VALUES (?, ?, ?, ?)",
		languageID, title, order, "")
	require.NoError(t, err)
	return id
}

// InsertLesson adds a lesson to a module
func InsertLesson(t testing.TB, db *database.DB, moduleID int64, title string, order, xpReward int) int64 {
	t.Helper()
	id, err := db.ExecReturningID(context.Background(),
		"INSERT INTO lessons (module_id, title, position, xp_reward) VALUES (?, ?, ?, ?)",
		moduleID, title, order, xpReward)
	require.NoError(t, err)
	return id
}

// InsertUser adds a user with a profile and returns its id. The password hash is a placeholder.
func InsertUser(t testing.TB, db *database.DB, username string) int64 {
	t.Helper()
	id := InsertUserWithoutProfile(t, db, username)
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO user_profiles (user_id, bio, profile_photo_url, interests, streak_days, xp) VALUES (?, '', '', '[]', 0, 0)", id)
	require.NoError(t, err)
	return id
}

// InsertUserWithoutProfile adds a bare user row
func InsertUserWithoutProfile(t testing.TB, db *database.DB, username string) int64 {
	t.Helper()
	id, err := db.ExecReturningID(context.Background(),
		"INSERT INTO users (username, email, password_hash, date_joined) VALUES (?, ?, ?, ?)",
		username, username+"@example.com", "not-a-hash", time.Now().UTC())
	require.NoError(t, err)
	return id
}

// XP reads a user's XP
func XP(t testing.TB, db *database.DB, userID int64) int {
	t.Helper()
	var xp int
	require.NoError(t, db.GetContext(context.Background(), &xp, "SELECT xp FROM user_profiles WHERE user_id = ?", userID))
	return xp
}

// Count returns the number of rows in table
func Count(t testing.TB, db *database.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, "SELECT COUNT(*) FROM "+table))
	return n
}
