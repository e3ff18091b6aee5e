package domain

import "errors"

var (
	// ErrInvalidArgument indicates missing or malformed input
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden indicates the caller does not own the resource
	ErrForbidden = errors.New("access forbidden")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBackend indicates a vector index or LLM backend failure
	ErrBackend = errors.New("backend failure")
	// ErrGenerationFailed indicates both primary and fallback generation failed
	ErrGenerationFailed = errors.New("generation failed")
)
