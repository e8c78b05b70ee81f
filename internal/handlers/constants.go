package handlers

import (
	"lingoquest/internal/apperr"
	"lingoquest/internal/service"
)

const (
	ErrInvalidJSON         = "JSON parse error."
	ErrNotFound            = "Not found."
	ErrMethodNotAllowed    = "Method not allowed."
	ErrAuthRequired        = "Authentication credentials were not provided."
	ErrInvalidAuthHeader   = "Invalid token header."
	ErrTooManyRequests     = "Request was throttled."
	ErrInternalServerError = "A server error occurred."
	ErrLessonIDRequired    = apperr.MsgRequired
	ErrLessonIDNotPositive = service.MsgLessonIDNotPositive
)

const (
	contentTypeHeader   = "Content-Type"
	contentTypeJSON     = "application/json"
	maxRequestBodyBytes = 1 << 20
)
