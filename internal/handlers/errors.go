package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"lingoquest/internal/apperr"
	"lingoquest/internal/logger"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// respondJSON writes payload as JSON with the given status
func respondJSON(w http.ResponseWriter, log *logger.Logger, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to encode response", "error", err)
		w.Header().Set(contentTypeHeader, contentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"internal_error","message":"A server error occurred."}}`))
		return
	}

	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(status)
	w.Write(body)
}

// respondWithError maps err to its status and error envelope. Errors without
// an application kind are logged and reported as a generic 500.
func respondWithError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		log.Error("unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		appErr = &apperr.Error{Kind: apperr.KindInternal, Message: ErrInternalServerError}
	}

	respondJSON(w, log, appErr.Kind.Status(), errorResponse{Error: errorBody{
		Code:    appErr.Kind.Code(),
		Message: appErr.Message,
		Fields:  appErr.Fields,
	}})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are ignored.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperr.BadRequest(ErrInvalidJSON)
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest(ErrInvalidJSON)
		}
		return apperr.Wrap(apperr.KindBadRequest, fmt.Sprintf("%s %s", ErrInvalidJSON, describeDecodeError(err)), err)
	}
	return nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("Field %s has the wrong type.", typeErr.Field)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("Syntax error at offset %d.", syntaxErr.Offset)
	}
	return "Expected a JSON object."
}
