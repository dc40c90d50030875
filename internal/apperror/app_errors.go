package apperror

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrUnknownAction   = errors.New("unknown action")
)
