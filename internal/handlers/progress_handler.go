package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"lingoquest/internal/apperr"
	"lingoquest/internal/logger"
	"lingoquest/internal/service"
)

// ProgressHandler records and lists lesson completions
type ProgressHandler struct {
	progress *service.ProgressService
	log      *logger.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *service.ProgressService, log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, log: log.With("handler", "progress")}
}

type logProgressRequest struct {
	LessonID json.RawMessage `json:"lesson_id"`
}

// LogProgress marks a lesson complete for the caller. It answers 201 when
// the record was created and 200 when it already existed.
func (h *ProgressHandler) LogProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req logProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	lessonID, err := parseLessonID(req.LessonID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	if lessonID == nil {
		respondWithError(w, r, h.log, apperr.BadRequest(ErrLessonIDRequired))
		return
	}

	record, created, err := h.progress.LogProgress(r.Context(), user.ID, lessonID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, h.log, status, record)
}

// ListProgress returns the caller's completion records
func (h *ProgressHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	records, err := h.progress.ListProgress(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, records)
}

// parseLessonID accepts a JSON integer or a string holding one. A missing
// or null value yields nil.
func parseLessonID(raw json.RawMessage) (*int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, apperr.BadRequest(ErrLessonIDNotPositive)
		}
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.BadRequest(ErrLessonIDNotPositive)
	}
	return &id, nil
}
