package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"lingoquest/internal/apperr"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/security"
	"lingoquest/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
	log         *logger.Logger
}

// NewMiddleware creates a new middleware instance. A nil limiter disables rate limiting.
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter, log *logger.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
		log:         log,
	}
}

// Authenticate resolves a bearer token into the request's user. Requests
// without an Authorization header continue anonymously; a header that does
// not carry a valid token is rejected.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
			respondWithError(w, r, m.log, apperr.Unauthorized(ErrInvalidAuthHeader))
			return
		}

		user, err := m.authService.Authenticate(r.Context(), token)
		if err != nil {
			respondWithError(w, r, m.log, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			respondWithError(w, r, m.log, apperr.Unauthorized(ErrAuthRequired))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit throttles requests per client IP
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			m.log.Warn("rate limit exceeded", "path", r.URL.Path, "client_ip", security.GetClientIP(r))
			w.Header().Set("Retry-After", "60")
			respondJSON(w, m.log, http.StatusTooManyRequests, errorResponse{Error: errorBody{
				Code:    "throttled",
				Message: ErrTooManyRequests,
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Logging logs every request once it has been served
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				kv := []interface{}{
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				}
				switch {
				case ww.Status() >= 500:
					log.Error("request completed", kv...)
				case ww.Status() >= 400:
					log.Warn("request completed", kv...)
				default:
					log.Info("request completed", kv...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
