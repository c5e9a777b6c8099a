package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/harvestfund/granary/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemoryStore records appends in order; loadErr and appendErr force
// the corresponding failure.
type fakeMemoryStore struct {
	records   []session.MemoryRecord
	loadErr   error
	appendErr error
}

func (f *fakeMemoryStore) AppendMemory(_ context.Context, rec session.MemoryRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeMemoryStore) LoadMemory(_ context.Context, sessionID string) ([]session.MemoryRecord, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var out []session.MemoryRecord
	for _, rec := range f.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// scriptedClient returns canned answers and captures what it was asked.
type scriptedClient struct {
	answers  []string
	prompts  []string
	contexts []string
}

func (s *scriptedClient) Complete(_ context.Context, prompt, contextText string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.contexts = append(s.contexts, contextText)
	answer := ""
	if len(s.answers) > 0 {
		answer, s.answers = s.answers[0], s.answers[1:]
	}
	return answer, nil
}

func TestWithMemory_RecordsAndReplaysHistory(t *testing.T) {
	store := &fakeMemoryStore{}
	inner := &scriptedClient{answers: []string{"Harvest Bakery LLC", "Retail bakery"}}
	client := WithMemory(inner, store, "case-1142")

	first, err := client.Complete(context.Background(), "business name", "")
	require.NoError(t, err)
	assert.Equal(t, "Harvest Bakery LLC", first)

	// Both sides of the first exchange are persisted under the session.
	require.Len(t, store.records, 2)
	assert.Equal(t, "user", store.records[0].Role)
	assert.Equal(t, "business name", store.records[0].Content)
	assert.Equal(t, "assistant", store.records[1].Role)
	assert.Equal(t, "Harvest Bakery LLC", store.records[1].Content)
	assert.Equal(t, "case-1142", store.records[0].SessionID)

	_, err = client.Complete(context.Background(), "business description", "")
	require.NoError(t, err)

	// The second completion carries the first exchange as context.
	require.Len(t, inner.contexts, 2)
	assert.Empty(t, inner.contexts[0])
	assert.Contains(t, inner.contexts[1], "user: business name")
	assert.Contains(t, inner.contexts[1], "assistant: Harvest Bakery LLC")
}

func TestWithMemory_HistoryAppendsToExistingContext(t *testing.T) {
	store := &fakeMemoryStore{records: []session.MemoryRecord{
		{SessionID: "case-1142", Role: "assistant", Content: "prior answer"},
	}}
	inner := &scriptedClient{answers: []string{"ok"}}
	client := WithMemory(inner, store, "case-1142")

	_, err := client.Complete(context.Background(), "field", "ein: 12-3456789")
	require.NoError(t, err)

	require.Len(t, inner.contexts, 1)
	assert.Contains(t, inner.contexts[0], "ein: 12-3456789")
	assert.Contains(t, inner.contexts[0], "assistant: prior answer")
}

func TestWithMemory_NoAnswerIsNotRecorded(t *testing.T) {
	store := &fakeMemoryStore{}
	client := WithMemory(&scriptedClient{}, store, "case-1142")

	answer, err := client.Complete(context.Background(), "field", "")
	require.NoError(t, err)
	assert.Empty(t, answer)
	assert.Empty(t, store.records)
}

func TestWithMemory_StoreFailuresDegrade(t *testing.T) {
	store := &fakeMemoryStore{
		loadErr:   errors.New("db locked"),
		appendErr: errors.New("db locked"),
	}
	inner := &scriptedClient{answers: []string{"still works"}}
	client := WithMemory(inner, store, "case-1142")

	answer, err := client.Complete(context.Background(), "field", "")
	require.NoError(t, err)
	assert.Equal(t, "still works", answer)
}

func TestWithMemory_PassthroughWithoutSessionOrStore(t *testing.T) {
	inner := &scriptedClient{}
	assert.Same(t, Client(inner), WithMemory(inner, nil, "case-1142"))
	assert.Same(t, Client(inner), WithMemory(inner, &fakeMemoryStore{}, ""))
}
