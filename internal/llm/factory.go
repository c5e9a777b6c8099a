package llm

import (
	"fmt"
	"strings"
)

// NewClient builds a client from configuration. An unconfigured or
// explicitly disabled provider yields the disabled client, never nil, so
// callers can use the result unconditionally.
func NewClient(cfg Config) (Client, error) {
	if !cfg.Enabled() {
		return NewDisabled(), nil
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
