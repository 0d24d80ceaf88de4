package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure with an HTTP-style status attached.
// Services return these (possibly wrapped with fmt.Errorf and %w) and the
// transport layer maps them to structured responses.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// Validation failures: required input missing or empty after trimming
	ErrFieldRequired  = &Error{Status: http.StatusBadRequest, Message: "required field is missing or empty"}
	ErrLoginRequired  = &Error{Status: http.StatusBadRequest, Message: "username or email is required"}
	ErrAvatarRequired = &Error{Status: http.StatusBadRequest, Message: "avatar file is required"}

	// Duplicate unique fields
	ErrUserAlreadyExists = &Error{Status: http.StatusConflict, Message: "user with this username or email already exists"}

	// Referenced entity absent
	ErrUserNotFound    = &Error{Status: http.StatusNotFound, Message: "user not found"}
	ErrChannelNotFound = &Error{Status: http.StatusNotFound, Message: "channel not found"}
	ErrVideoNotFound   = &Error{Status: http.StatusNotFound, Message: "video not found"}

	// Credential or token failures
	ErrUnauthorized        = &Error{Status: http.StatusUnauthorized, Message: "unauthorized request"}
	ErrInvalidCredentials  = &Error{Status: http.StatusUnauthorized, Message: "invalid user credentials"}
	ErrAccessTokenInvalid  = &Error{Status: http.StatusUnauthorized, Message: "invalid or expired access token"}
	ErrRefreshTokenInvalid = &Error{Status: http.StatusUnauthorized, Message: "invalid refresh token"}
	ErrRefreshTokenUsed    = &Error{Status: http.StatusUnauthorized, Message: "refresh token is expired or used"}

	// Required asset failed to persist
	ErrUploadFailed = &Error{Status: http.StatusBadRequest, Message: "error while uploading file"}

	// Unexpected failures in token issuance or store access
	ErrInternal = &Error{Status: http.StatusInternalServerError, Message: "internal server error"}
)

// Status returns the HTTP status carried by err or 500 for unknown errors.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Message returns the human readable message carried by err.
// Unknown errors are hidden behind a generic message so internals never leak.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrInternal.Message
}

// FieldRequired reports a missing required field by name.
func FieldRequired(field string) error {
	return fmt.Errorf("%w: %s", ErrFieldRequired, field)
}
