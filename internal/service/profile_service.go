package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lingoquest/internal/apperr"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/repository"
	"lingoquest/internal/validation"
)

// ProfileUpdate carries the writable profile fields; nil fields are left unchanged
type ProfileUpdate struct {
	Bio             *string   `json:"bio"`
	ProfilePhotoURL *string   `json:"profile_photo_url"`
	Interests       *[]string `json:"interests"`
}

// profileDetails is the validated state written back to the profile row
type profileDetails struct {
	Bio             string   `json:"bio" validate:"max=5000"`
	ProfilePhotoURL string   `json:"profile_photo_url" validate:"omitempty,max=200,url"`
	Interests       []string `json:"interests" validate:"max=50,dive,required,max=100"`
}

// ProfileService reads and edits user profiles. XP and streaks are only
// changed by the reward subscribers.
type ProfileService struct {
	profiles *repository.ProfileRepository
	log      *logger.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profiles *repository.ProfileRepository, log *logger.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, log: log.With("service", "profile")}
}

// Get returns the user's profile, creating an empty one if it is missing
func (s *ProfileService) Get(ctx context.Context, userID int64) (*models.UserProfile, error) {
	if err := s.profiles.EnsureExists(ctx, userID); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperr.NotFound("Profile not found.")
	}
	return profile, nil
}

// Update applies a partial profile update and returns the result
func (s *ProfileService) Update(ctx context.Context, userID int64, in ProfileUpdate) (*models.UserProfile, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	details := profileDetails{
		Bio:             current.Bio,
		ProfilePhotoURL: current.ProfilePhotoURL,
		Interests:       current.Interests,
	}
	if in.Bio != nil {
		details.Bio = *in.Bio
	}
	if in.ProfilePhotoURL != nil {
		details.ProfilePhotoURL = strings.TrimSpace(*in.ProfilePhotoURL)
	}
	if in.Interests != nil {
		details.Interests = *in.Interests
	}
	if err := validation.Struct(details); err != nil {
		return nil, err
	}

	err = s.profiles.UpdateDetails(ctx, userID, details.Bio, details.ProfilePhotoURL, models.StringList(details.Interests))
	if err != nil {
		if errors.Is(err, repository.ErrProfileMissing) {
			return nil, apperr.NotFound("Profile not found.")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	s.log.Debug("profile updated", "user_id", userID)
	return s.Get(ctx, userID)
}
