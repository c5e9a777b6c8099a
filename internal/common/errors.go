// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
)

// Common application errors.
var (
	// Catalog errors.
	ErrUnknownForm = errors.New("unknown form template")

	// Request errors.
	ErrEmptyDocument = errors.New("empty document")

	// Collaborator errors.
	ErrLLMUnavailable = errors.New("llm unavailable")
	ErrTraceWrite     = errors.New("trace write failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)
