package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lingoquest/internal/database"
	"lingoquest/internal/models"
)

const (
	languageColumns = "id, name, code"
	moduleColumns   = "id, language_id, title, position, description"
	lessonColumns   = "id, module_id, title, position, xp_reward"
	exerciseColumns = "id, lesson_id, type, question, answer, options"
)

// ContentRepository handles database operations for the content tree.
// Reads return flat rows; callers attach children level by level.
type ContentRepository struct {
	db *database.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *database.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// ListLanguages returns all languages ordered by id
func (r *ContentRepository) ListLanguages(ctx context.Context) ([]models.Language, error) {
	var langs []models.Language
	if err := r.db.SelectContext(ctx, &langs, "SELECT "+languageColumns+" FROM languages ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	return langs, nil
}

// GetLanguage returns a language by id, or nil if it does not exist
func (r *ContentRepository) GetLanguage(ctx context.Context, id int64) (*models.Language, error) {
	var lang models.Language
	err := r.db.GetContext(ctx, &lang, "SELECT "+languageColumns+" FROM languages WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get language: %w", err)
	}
	return &lang, nil
}

// GetLanguageByCode returns a language by its code, or nil if it does not exist
func (r *ContentRepository) GetLanguageByCode(ctx context.Context, q database.DBTX, code string) (*models.Language, error) {
	var lang models.Language
	err := pick(q, r.db).GetContext(ctx, &lang, "SELECT "+languageColumns+" FROM languages WHERE code = ?", code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get language by code: %w", err)
	}
	return &lang, nil
}

// ListModules returns all modules ordered by position then id
func (r *ContentRepository) ListModules(ctx context.Context) ([]models.Module, error) {
	var mods []models.Module
	if err := r.db.SelectContext(ctx, &mods, "SELECT "+moduleColumns+" FROM modules ORDER BY position, id"); err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return mods, nil
}

// GetModule returns a module by id, or nil if it does not exist
func (r *ContentRepository) GetModule(ctx context.Context, id int64) (*models.Module, error) {
	var mod models.Module
	err := r.db.GetContext(ctx, &mod, "SELECT "+moduleColumns+" FROM modules WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return &mod, nil
}

// ModulesByLanguages returns the modules of the given languages ordered by position then id
func (r *ContentRepository) ModulesByLanguages(ctx context.Context, languageIDs []int64) ([]models.Module, error) {
	mods, err := selectIn[models.Module](ctx, r.db, "SELECT "+moduleColumns+" FROM modules WHERE language_id IN (?) ORDER BY position, id", languageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}
	return mods, nil
}

// ListLessons returns all lessons ordered by position then id
func (r *ContentRepository) ListLessons(ctx context.Context) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, "SELECT "+lessonColumns+" FROM lessons ORDER BY position, id"); err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// GetLesson returns a lesson by id, or nil if it does not exist
func (r *ContentRepository) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	var lesson models.Lesson
	err := r.db.GetContext(ctx, &lesson, "SELECT "+lessonColumns+" FROM lessons WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &lesson, nil
}

// LessonsByModules returns the lessons of the given modules ordered by position then id
func (r *ContentRepository) LessonsByModules(ctx context.Context, moduleIDs []int64) ([]models.Lesson, error) {
	lessons, err := selectIn[models.Lesson](ctx, r.db, "SELECT "+lessonColumns+" FROM lessons WHERE module_id IN (?) ORDER BY position, id", moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load lessons: %w", err)
	}
	return lessons, nil
}

// ListExercises returns all exercises ordered by id
func (r *ContentRepository) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if err := r.db.SelectContext(ctx, &exercises, "SELECT "+exerciseColumns+" FROM exercises ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	return exercises, nil
}

// GetExercise returns an exercise by id, or nil if it does not exist
func (r *ContentRepository) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	var ex models.Exercise
	err := r.db.GetContext(ctx, &ex, "SELECT "+exerciseColumns+" FROM exercises WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	return &ex, nil
}

// ExercisesByLessons returns the exercises of the given lessons ordered by id
func (r *ContentRepository) ExercisesByLessons(ctx context.Context, lessonIDs []int64) ([]models.Exercise, error) {
	exercises, err := selectIn[models.Exercise](ctx, r.db, "SELECT "+exerciseColumns+" FROM exercises WHERE lesson_id IN (?) ORDER BY id", lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load exercises: %w", err)
	}
	return exercises, nil
}

// inBatchSize caps the ids bound into one IN (?) list, well under the
// bind-parameter limits of SQLite and PostgreSQL
var inBatchSize = 1000

// selectIn runs query with its IN (?) list filled from ids, one batch of
// inBatchSize at a time. Rows keep the query's order within a parent since
// all children of one parent come back in the same batch. An empty list
// selects nothing.
func selectIn[T any](ctx context.Context, q database.DBTX, query string, ids []int64) ([]T, error) {
	var rows []T
	for start := 0; start < len(ids); start += inBatchSize {
		end := min(start+inBatchSize, len(ids))

		expanded, args, err := database.In(query, ids[start:end])
		if err != nil {
			return nil, err
		}
		var batch []T
		if err := q.SelectContext(ctx, &batch, expanded, args...); err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}

// CreateLanguage inserts a language
func (r *ContentRepository) CreateLanguage(ctx context.Context, q database.DBTX, lang *models.Language) error {
	id, err := pick(q, r.db).ExecReturningID(ctx, "INSERT INTO languages (name, code) VALUES (?, ?)", lang.Name, lang.Code)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return fmt.Errorf("language %q: %w", lang.Code, ErrDuplicate)
		}
		return fmt.Errorf("failed to create language: %w", err)
	}
	lang.ID = id
	return nil
}

// CreateModule inserts a module
func (r *ContentRepository) CreateModule(ctx context.Context, q database.DBTX, mod *models.Module) error {
	id, err := pick(q, r.db).ExecReturningID(ctx,
		"INSERT INTO modules (language_id, title, position, description) VALUES (?, ?, ?, ?)",
		mod.LanguageID, mod.Title, mod.Order, mod.Description)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	mod.ID = id
	return nil
}

// CreateLesson inserts a lesson
func (r *ContentRepository) CreateLesson(ctx context.Context, q database.DBTX, lesson *models.Lesson) error {
	id, err := pick(q, r.db).ExecReturningID(ctx,
		"INSERT INTO lessons (module_id, title, position, xp_reward) VALUES (?, ?, ?, ?)",
		lesson.ModuleID, lesson.Title, lesson.Order, lesson.XPReward)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	lesson.ID = id
	return nil
}

// CreateExercise inserts an exercise
func (r *ContentRepository) CreateExercise(ctx context.Context, q database.DBTX, ex *models.Exercise) error {
	id, err := pick(q, r.db).ExecReturningID(ctx,
		"INSERT INTO exercises (lesson_id, type, question, answer, options) VALUES (?, ?, ?, ?, ?)",
		ex.LessonID, ex.Type, ex.Question, ex.Answer, ex.Options)
	if err != nil {
		return fmt.Errorf("failed to create exercise: %w", err)
	}
	ex.ID = id
	return nil
}

// DeleteLanguageByCode removes a language and, through cascades, its whole
// subtree and the progress recorded against it. It reports whether a row was deleted.
func (r *ContentRepository) DeleteLanguageByCode(ctx context.Context, q database.DBTX, code string) (bool, error) {
	res, err := pick(q, r.db).ExecContext(ctx, "DELETE FROM languages WHERE code = ?", code)
	if err != nil {
		return false, fmt.Errorf("failed to delete language: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete language: %w", err)
	}
	return n > 0, nil
}

// DeleteAll removes every language and everything below it
func (r *ContentRepository) DeleteAll(ctx context.Context, q database.DBTX) error {
	if _, err := pick(q, r.db).ExecContext(ctx, "DELETE FROM languages"); err != nil {
		return fmt.Errorf("failed to clear content: %w", err)
	}
	return nil
}
