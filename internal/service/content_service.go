package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lingoquest/internal/apperr"
	"lingoquest/internal/cache"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/repository"
)

// ContentService serves the read-only content tree. Every level is loaded
// with one query per depth, never one per row.
type ContentService struct {
	repo  *repository.ContentRepository
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewContentService creates a new content service. A nil cache disables caching.
func NewContentService(repo *repository.ContentRepository, c cache.Cache, ttl time.Duration, log *logger.Logger) *ContentService {
	if c == nil {
		c = cache.Nop{}
	}
	return &ContentService{
		repo:  repo,
		cache: c,
		ttl:   ttl,
		log:   log.With("service", "content"),
	}
}

// ListLanguages returns every language with its full subtree
func (s *ContentService) ListLanguages(ctx context.Context) ([]models.Language, error) {
	return cached(ctx, s, "languages", func() ([]models.Language, error) {
		langs, err := s.repo.ListLanguages(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.attachModules(ctx, langs); err != nil {
			return nil, err
		}
		return nonNil(langs), nil
	})
}

// GetLanguage returns one language with its full subtree
func (s *ContentService) GetLanguage(ctx context.Context, id int64) (*models.Language, error) {
	return cached(ctx, s, fmt.Sprintf("languages:%d", id), func() (*models.Language, error) {
		lang, err := s.repo.GetLanguage(ctx, id)
		if err != nil {
			return nil, err
		}
		if lang == nil {
			return nil, apperr.NotFound("Language not found.")
		}
		langs := []models.Language{*lang}
		if err := s.attachModules(ctx, langs); err != nil {
			return nil, err
		}
		return &langs[0], nil
	})
}

// ListModules returns every module with its lessons and exercises
func (s *ContentService) ListModules(ctx context.Context) ([]models.Module, error) {
	return cached(ctx, s, "modules", func() ([]models.Module, error) {
		mods, err := s.repo.ListModules(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.attachLessons(ctx, mods); err != nil {
			return nil, err
		}
		return nonNil(mods), nil
	})
}

// GetModule returns one module with its lessons and exercises
func (s *ContentService) GetModule(ctx context.Context, id int64) (*models.Module, error) {
	return cached(ctx, s, fmt.Sprintf("modules:%d", id), func() (*models.Module, error) {
		mod, err := s.repo.GetModule(ctx, id)
		if err != nil {
			return nil, err
		}
		if mod == nil {
			return nil, apperr.NotFound("Module not found.")
		}
		mods := []models.Module{*mod}
		if err := s.attachLessons(ctx, mods); err != nil {
			return nil, err
		}
		return &mods[0], nil
	})
}

// ListLessons returns every lesson with its exercises
func (s *ContentService) ListLessons(ctx context.Context) ([]models.Lesson, error) {
	return cached(ctx, s, "lessons", func() ([]models.Lesson, error) {
		lessons, err := s.repo.ListLessons(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.attachExercises(ctx, lessons); err != nil {
			return nil, err
		}
		return nonNil(lessons), nil
	})
}

// GetLesson returns one lesson with its exercises
func (s *ContentService) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	return cached(ctx, s, fmt.Sprintf("lessons:%d", id), func() (*models.Lesson, error) {
		lesson, err := s.repo.GetLesson(ctx, id)
		if err != nil {
			return nil, err
		}
		if lesson == nil {
			return nil, apperr.NotFound("Lesson not found.")
		}
		lessons := []models.Lesson{*lesson}
		if err := s.attachExercises(ctx, lessons); err != nil {
			return nil, err
		}
		return &lessons[0], nil
	})
}

// ListExercises returns every exercise
func (s *ContentService) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	return cached(ctx, s, "exercises", func() ([]models.Exercise, error) {
		exercises, err := s.repo.ListExercises(ctx)
		if err != nil {
			return nil, err
		}
		return nonNil(exercises), nil
	})
}

// GetExercise returns one exercise
func (s *ContentService) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	return cached(ctx, s, fmt.Sprintf("exercises:%d", id), func() (*models.Exercise, error) {
		ex, err := s.repo.GetExercise(ctx, id)
		if err != nil {
			return nil, err
		}
		if ex == nil {
			return nil, apperr.NotFound("Exercise not found.")
		}
		return ex, nil
	})
}

// Invalidate drops every cached content entry
func (s *ContentService) Invalidate(ctx context.Context) error {
	if err := s.cache.DeletePrefix(ctx, cache.PrefixContent); err != nil {
		return fmt.Errorf("failed to invalidate content cache: %w", err)
	}
	return nil
}

func (s *ContentService) attachModules(ctx context.Context, langs []models.Language) error {
	ids := make([]int64, len(langs))
	index := make(map[int64]int, len(langs))
	for i := range langs {
		langs[i].Modules = []models.Module{}
		ids[i] = langs[i].ID
		index[langs[i].ID] = i
	}

	mods, err := s.repo.ModulesByLanguages(ctx, ids)
	if err != nil {
		return err
	}
	if err := s.attachLessons(ctx, mods); err != nil {
		return err
	}
	for _, m := range mods {
		i := index[m.LanguageID]
		langs[i].Modules = append(langs[i].Modules, m)
	}
	return nil
}

func (s *ContentService) attachLessons(ctx context.Context, mods []models.Module) error {
	ids := make([]int64, len(mods))
	index := make(map[int64]int, len(mods))
	for i := range mods {
		mods[i].Lessons = []models.Lesson{}
		ids[i] = mods[i].ID
		index[mods[i].ID] = i
	}

	lessons, err := s.repo.LessonsByModules(ctx, ids)
	if err != nil {
		return err
	}
	if err := s.attachExercises(ctx, lessons); err != nil {
		return err
	}
	for _, l := range lessons {
		i := index[l.ModuleID]
		mods[i].Lessons = append(mods[i].Lessons, l)
	}
	return nil
}

func (s *ContentService) attachExercises(ctx context.Context, lessons []models.Lesson) error {
	ids := make([]int64, len(lessons))
	index := make(map[int64]int, len(lessons))
	for i := range lessons {
		lessons[i].Exercises = []models.Exercise{}
		ids[i] = lessons[i].ID
		index[lessons[i].ID] = i
	}

	exercises, err := s.repo.ExercisesByLessons(ctx, ids)
	if err != nil {
		return err
	}
	for _, ex := range exercises {
		i := index[ex.LessonID]
		lessons[i].Exercises = append(lessons[i].Exercises, ex)
	}
	return nil
}

// cached serves key from the cache, falling back to load and storing its
// result. Cache failures are logged and never fail the read.
func cached[T any](ctx context.Context, s *ContentService, key string, load func() (T, error)) (T, error) {
	key = cache.PrefixContent + key

	var hit T
	err := s.cache.Get(ctx, key, &hit)
	if err == nil {
		return hit, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("content cache read failed", "key", key, "error", err)
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.log.Warn("content cache write failed", "key", key, "error", err)
	}
	return value, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
