package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harvestfund/granary/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestNewClient_DisabledWhenUnconfigured(t *testing.T) {
	for _, provider := range []string{"", "disabled", "none"} {
		client, err := NewClient(Config{Provider: provider})
		require.NoError(t, err)

		got, err := client.Complete(context.Background(), "describe the business", "")
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "oracle9000"})
	assert.Error(t, err)
}

func TestNewClient_OpenAIRequiresKey(t *testing.T) {
	_, err := NewClient(Config{Provider: "openai"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestComplete_RoundTrip(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		chatReply(t, w, "  We provide bookkeeping services to local restaurants.\n")
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Provider: "openai",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(),
		"Describe the business in one sentence.",
		"business_name: Maple Ledger LLC")
	require.NoError(t, err)
	assert.Equal(t, "We provide bookkeeping services to local restaurants.", got)

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	assert.Contains(t, user["content"], "Maple Ledger LLC")
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		chatReply(t, w, "recovered")
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "openai", APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), "p", "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "openai", APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "p", "")
	assert.ErrorIs(t, err, common.ErrLLMUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_NoChoicesMeansNoAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "openai", APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), "p", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := newRateLimiter(60000) // one token per millisecond
	for rl.tryAcquire() {
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rl.wait(ctx))
}

func TestRateLimiter_WaitHonorsCancellation(t *testing.T) {
	rl := newRateLimiter(1)
	require.True(t, rl.tryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.wait(ctx))
}
