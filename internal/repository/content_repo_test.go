package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingoquest/internal/models"
	"lingoquest/internal/testutil"
)

func TestContentRepositoryLookups(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()
	f := testutil.SeedTree(t, db, "es", 15)

	lang, err := repo.GetLanguage(ctx, f.LanguageID)
	require.NoError(t, err)
	require.NotNil(t, lang)
	assert.Equal(t, "es", lang.Code)

	lesson, err := repo.GetLesson(ctx, f.LessonID)
	require.NoError(t, err)
	require.NotNil(t, lesson)
	assert.Equal(t, 15, lesson.XPReward)
	assert.Equal(t, f.ModuleID, lesson.ModuleID)

	ex, err := repo.GetExercise(ctx, f.ExerciseID)
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, models.ExerciseMCQ, ex.Type)
	assert.JSONEq(t, `{"choices":["Hello","Bye"]}`, string(ex.Options))

	missing, err := repo.GetLesson(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byCode, err := repo.GetLanguageByCode(ctx, nil, "es")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, f.LanguageID, byCode.ID)
}

func TestChildrenComeBackOrdered(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()
	f := testutil.SeedTree(t, db, "fr", 10)

	// Inserted out of order on purpose
	testutil.InsertModule(t, db, f.LanguageID, "Travel", 3)
	testutil.InsertModule(t, db, f.LanguageID, "Food", 2)
	testutil.InsertModule(t, db, f.LanguageID, "Intro", 0)

	mods, err := repo.ModulesByLanguages(ctx, []int64{f.LanguageID})
	require.NoError(t, err)
	var titles []string
	for _, m := range mods {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"Intro", "Basics", "Food", "Travel"}, titles)

	lessons, err := repo.LessonsByModules(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestCreateLanguageDuplicateCode(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateLanguage(ctx, nil, &models.Language{Name: "German", Code: "de"}))
	err := repo.CreateLanguage(ctx, nil, &models.Language{Name: "Deutsch", Code: "de"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDeleteLanguageCascades(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()
	f := testutil.SeedTree(t, db, "it", 10)
	userID := testutil.InsertUser(t, db, "marco")

	_, err := NewProgressRepository(db).Create(ctx, nil, userID, f.LessonID, testNow())
	require.NoError(t, err)

	deleted, err := repo.DeleteLanguageByCode(ctx, nil, "it")
	require.NoError(t, err)
	assert.True(t, deleted)

	for _, table := range []string{"modules", "lessons", "exercises", "user_progress"} {
		assert.Zero(t, testutil.Count(t, db, table), table)
	}

	deleted, err = repo.DeleteLanguageByCode(ctx, nil, "it")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestChildLookupsSpanSeveralBatches(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	prev := inBatchSize
	inBatchSize = 2
	t.Cleanup(func() { inBatchSize = prev })

	var langIDs, lessonIDs []int64
	var first testutil.Fixture
	for i, code := range []string{"es", "fr", "de", "it", "pt"} {
		f := testutil.SeedTree(t, db, code, 10)
		if i == 0 {
			first = f
		}
		langIDs = append(langIDs, f.LanguageID)
		lessonIDs = append(lessonIDs, f.LessonID)
	}
	earlier := testutil.InsertModule(t, db, first.LanguageID, "Alphabet", 0)

	mods, err := repo.ModulesByLanguages(ctx, langIDs)
	require.NoError(t, err)
	require.Len(t, mods, 6)

	var firstLang []int64
	for _, m := range mods {
		if m.LanguageID == first.LanguageID {
			firstLang = append(firstLang, m.ID)
		}
	}
	assert.Equal(t, []int64{earlier, first.ModuleID}, firstLang)

	exercises, err := repo.ExercisesByLessons(ctx, lessonIDs)
	require.NoError(t, err)
	assert.Len(t, exercises, 5)

	none, err := repo.LessonsByModules(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
