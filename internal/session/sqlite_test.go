package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/harvestfund/granary/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndReadTraces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.NewString()

	first := model.AnalyzeTrace{
		SessionID:    sessionID,
		Filename:     "q3-941.pdf",
		DetectedType: "form_941",
		Confidence:   0.92,
		Extractor:    "form_941",
		ElapsedMS:    12,
	}
	second := model.AnalyzeTrace{
		SessionID:    sessionID,
		DetectedType: "untyped",
		Extractor:    "untyped",
		ElapsedMS:    3,
	}

	require.NoError(t, store.AppendTrace(ctx, first))
	require.NoError(t, store.AppendTrace(ctx, second))

	got, err := store.Traces(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestTraces_SessionNamespacing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, b := uuid.NewString(), uuid.NewString()
	require.NoError(t, store.AppendTrace(ctx, model.AnalyzeTrace{SessionID: a, DetectedType: "w9"}))
	require.NoError(t, store.AppendTrace(ctx, model.AnalyzeTrace{SessionID: b, DetectedType: "form_941"}))

	got, err := store.Traces(ctx, a)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "w9", got[0].DetectedType)
}

func TestAppendTrace_Validation(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendTrace(context.Background(), model.AnalyzeTrace{})
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestMemoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.NewString()

	require.NoError(t, store.AppendMemory(ctx, MemoryRecord{
		SessionID: sessionID,
		Role:      "user",
		Content:   "what grants am I eligible for?",
	}))
	require.NoError(t, store.AppendMemory(ctx, MemoryRecord{
		SessionID: sessionID,
		Role:      "assistant",
		Content:   "two programs look promising",
	}))

	got, err := store.LoadMemory(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "assistant", got[1].Role)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestLoadMemory_EmptySession(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadMemory(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, got)
}
