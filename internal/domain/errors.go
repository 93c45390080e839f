package domain

import "errors"

var (
	// ErrMappingNotFound is returned when no mapping is stored for an index.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrMappingExists is returned when creating a mapping whose key is taken.
	ErrMappingExists  = errors.New("mapping already exists")
	ErrInvalidIndexID = errors.New("invalid index id")
	ErrInvalidMapping = errors.New("invalid mapping")
	// ErrEngineFailure is returned when the engine reports succeeded=false.
	ErrEngineFailure = errors.New("search engine operation failed")
	// ErrEngineUnavailable is returned when no notification arrives in time
	// or the gateway cannot deliver a command.
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrPersistence wraps mapping store read and write failures.
	ErrPersistence  = errors.New("mapping store persistence failure")
	ErrUnauthorized = errors.New("unauthorized")
)
