// Package llm provides the text-completion collaborator used to draft
// free-text form answers. The core never requires it: an unconfigured
// deployment gets a disabled client whose completions are empty strings,
// which every caller treats as "no answer, fall back".
package llm

import (
	"context"
	"strings"
)

// Client generates a free-text completion. An empty string (with nil
// error) signals that no answer is available.
type Client interface {
	Complete(ctx context.Context, prompt, contextText string) (string, error)
}

// Config holds provider settings, typically bound from the application
// configuration.
type Config struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerMinute int
}

// Enabled reports whether the configuration names a usable provider.
func (c Config) Enabled() bool {
	switch strings.ToLower(c.Provider) {
	case "", "disabled", "none":
		return false
	}
	return true
}

// disabledClient is the no-op implementation used when no provider is
// configured.
type disabledClient struct{}

// NewDisabled returns a client whose completions are always empty.
func NewDisabled() Client { return disabledClient{} }

func (disabledClient) Complete(context.Context, string, string) (string, error) {
	return "", nil
}
