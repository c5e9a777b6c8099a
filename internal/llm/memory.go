package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/harvestfund/granary/internal/session"
)

// MemoryStore is the slice of session persistence the memory decorator
// needs. *session.SQLiteStore satisfies it.
type MemoryStore interface {
	AppendMemory(ctx context.Context, record session.MemoryRecord) error
	LoadMemory(ctx context.Context, sessionID string) ([]session.MemoryRecord, error)
}

// memoryClient wraps a Client so completions within one session see the
// session's prior prompts and answers, and contribute their own. Store
// failures degrade to a memoryless completion rather than an error.
type memoryClient struct {
	inner     Client
	store     MemoryStore
	sessionID string
	now       func() time.Time
}

// WithMemory decorates a client with per-session conversation memory.
// An empty session ID or nil store returns the inner client unchanged.
func WithMemory(inner Client, store MemoryStore, sessionID string) Client {
	if store == nil || sessionID == "" {
		return inner
	}
	return &memoryClient{inner: inner, store: store, sessionID: sessionID, now: time.Now}
}

func (m *memoryClient) Complete(ctx context.Context, prompt, contextText string) (string, error) {
	history, err := m.store.LoadMemory(ctx, m.sessionID)
	if err != nil {
		slog.Warn("session memory load failed, completing without history",
			"session_id", m.sessionID, "error", err)
	}
	if rendered := renderHistory(history); rendered != "" {
		if contextText != "" {
			contextText = contextText + "\n\n" + rendered
		} else {
			contextText = rendered
		}
	}

	answer, err := m.inner.Complete(ctx, prompt, contextText)
	if err != nil {
		return "", err
	}
	if answer != "" {
		m.record(ctx, "user", prompt)
		m.record(ctx, "assistant", answer)
	}
	return answer, nil
}

func (m *memoryClient) record(ctx context.Context, role, content string) {
	err := m.store.AppendMemory(ctx, session.MemoryRecord{
		SessionID: m.sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: m.now(),
	})
	if err != nil {
		slog.Warn("session memory write failed",
			"session_id", m.sessionID, "role", role, "error", err)
	}
}

// renderHistory flattens prior records into a context block the provider
// prompt can carry.
func renderHistory(history []session.MemoryRecord) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Earlier answers in this session:")
	for _, rec := range history {
		b.WriteString("\n")
		b.WriteString(rec.Role)
		b.WriteString(": ")
		b.WriteString(rec.Content)
	}
	return b.String()
}
