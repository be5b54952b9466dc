package services

import "errors"

// Domain errors are wrapped with the asset id, e.g. "asset <id> not found".
var (
	ErrNotFound          = errors.New("not found")
	ErrUploadNotVerified = errors.New("has not been uploaded")
	ErrAlreadyCompleted  = errors.New("upload is already completed")
	ErrInvalidRequest    = errors.New("invalid request")
)
