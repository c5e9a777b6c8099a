// Package session persists per-session analysis traces and conversation
// memory. Writes are append-only and namespaced by session ID.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harvestfund/granary/internal/model"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
)

// MemoryRecord is one conversation memory entry.
type MemoryRecord struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the session persistence interface. Trace writes are best-effort
// from the caller's perspective; implementations still return errors so
// callers can decide to log them.
type Store interface {
	AppendTrace(ctx context.Context, trace model.AnalyzeTrace) error
	Traces(ctx context.Context, sessionID string) ([]model.AnalyzeTrace, error)
	AppendMemory(ctx context.Context, record MemoryRecord) error
	LoadMemory(ctx context.Context, sessionID string) ([]MemoryRecord, error)
	Close() error
}

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(s, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}
