package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingoquest/internal/apperr"
	"lingoquest/internal/logger"
	"lingoquest/internal/testutil"
)

func TestProfileGetBackfillsMissingProfile(t *testing.T) {
	h := newHarness(t)
	svc := NewProfileService(h.profiles, logger.Nop())
	userID := testutil.InsertUserWithoutProfile(t, h.db, "legacy")

	profile, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "legacy", profile.Username)
	assert.Empty(t, profile.Interests)
}

func TestProfileUpdate(t *testing.T) {
	h := newHarness(t)
	svc := NewProfileService(h.profiles, logger.Nop())
	ctx := context.Background()
	userID := testutil.InsertUser(t, h.db, "ana")

	profile, err := svc.Update(ctx, userID, ProfileUpdate{
		Bio:             ptr("Learning Spanish"),
		ProfilePhotoURL: ptr(" https://example.com/ana.png "),
		Interests:       &[]string{"travel", "music"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Learning Spanish", profile.Bio)
	assert.Equal(t, "https://example.com/ana.png", profile.ProfilePhotoURL)
	assert.Equal(t, []string{"travel", "music"}, []string(profile.Interests))

	// Omitted fields keep their values
	profile, err = svc.Update(ctx, userID, ProfileUpdate{Bio: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, profile.Bio)
	assert.Equal(t, "https://example.com/ana.png", profile.ProfilePhotoURL)

	// An empty URL clears the photo
	profile, err = svc.Update(ctx, userID, ProfileUpdate{ProfilePhotoURL: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, profile.ProfilePhotoURL)
}

func TestProfileUpdateValidation(t *testing.T) {
	h := newHarness(t)
	svc := NewProfileService(h.profiles, logger.Nop())
	ctx := context.Background()
	userID := testutil.InsertUser(t, h.db, "ana")

	tests := []struct {
		name  string
		input ProfileUpdate
		field string
	}{
		{"bad url", ProfileUpdate{ProfilePhotoURL: ptr("not a url")}, "profile_photo_url"},
		{"long bio", ProfileUpdate{Bio: ptr(strings.Repeat("a", 5001))}, "bio"},
		{"blank interest", ProfileUpdate{Interests: &[]string{"travel", ""}}, "interests[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, userID, tt.input)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestProfileUpdateCannotTouchRewards(t *testing.T) {
	h := newHarness(t)
	svc := NewProfileService(h.profiles, logger.Nop())
	ctx := context.Background()
	f := testutil.SeedTree(t, h.db, "es", 10)
	userID := testutil.InsertUser(t, h.db, "ana")
	_, _, err := h.logs.LogProgress(ctx, userID, &f.LessonID)
	require.NoError(t, err)

	profile, err := svc.Update(ctx, userID, ProfileUpdate{Bio: ptr("hi")})
	require.NoError(t, err)
	assert.Equal(t, 10, profile.XP)
	assert.Equal(t, 1, profile.StreakDays)
}
