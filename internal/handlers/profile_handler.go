package handlers

import (
	"net/http"

	"lingoquest/internal/logger"
	"lingoquest/internal/service"
)

// ProfileHandler reads and edits the caller's profile
type ProfileHandler struct {
	profiles *service.ProfileService
	log      *logger.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *service.ProfileService, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log.With("handler", "profile")}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	profile, err := h.profiles.Get(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, profile)
}

// UpdateProfile applies a partial update; xp and streak_days in the body are ignored
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req service.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	profile, err := h.profiles.Update(r.Context(), user.ID, req)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, profile)
}
