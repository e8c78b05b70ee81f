package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lingoquest/internal/apperr"
	"lingoquest/internal/logger"
	"lingoquest/internal/service"
)

// ContentHandler serves the read-only content tree
type ContentHandler struct {
	content *service.ContentService
	log     *logger.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(content *service.ContentService, log *logger.Logger) *ContentHandler {
	return &ContentHandler{content: content, log: log.With("handler", "content")}
}

func (h *ContentHandler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context) (interface{}, error) { return h.content.ListLanguages(ctx) })
}

func (h *ContentHandler) GetLanguage(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, func(ctx context.Context, id int64) (interface{}, error) { return h.content.GetLanguage(ctx, id) })
}

func (h *ContentHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context) (interface{}, error) { return h.content.ListModules(ctx) })
}

func (h *ContentHandler) GetModule(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, func(ctx context.Context, id int64) (interface{}, error) { return h.content.GetModule(ctx, id) })
}

func (h *ContentHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context) (interface{}, error) { return h.content.ListLessons(ctx) })
}

func (h *ContentHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, func(ctx context.Context, id int64) (interface{}, error) { return h.content.GetLesson(ctx, id) })
}

func (h *ContentHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context) (interface{}, error) { return h.content.ListExercises(ctx) })
}

func (h *ContentHandler) GetExercise(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, func(ctx context.Context, id int64) (interface{}, error) { return h.content.GetExercise(ctx, id) })
}

func (h *ContentHandler) list(w http.ResponseWriter, r *http.Request, load func(ctx context.Context) (interface{}, error)) {
	items, err := load(r.Context())
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, items)
}

func (h *ContentHandler) get(w http.ResponseWriter, r *http.Request, load func(ctx context.Context, id int64) (interface{}, error)) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, r, h.log, apperr.NotFound(ErrNotFound))
		return
	}
	item, err := load(r.Context(), id)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, item)
}

// pathID parses the {id} URL parameter; anything but a positive integer
// names no entity
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
