package handlers

import (
	"net/http"

	"lingoquest/internal/logger"
	"lingoquest/internal/service"
)

// AuthHandler handles registration and token issuance
type AuthHandler struct {
	authService *service.AuthService
	log         *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With("handler", "auth"),
	}
}

type registerResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register creates an account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusCreated, registerResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token exchanges credentials for an access token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	token, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, token)
}
