package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/harvestfund/granary/internal/catalog"
	"github.com/harvestfund/granary/internal/config"
	"github.com/harvestfund/granary/internal/report"
	"github.com/harvestfund/granary/internal/session"
)

// loadCatalog loads the embedded catalogs; a malformed catalog is fatal.
func loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}

// openSessionStore opens the session database, or returns nil when session
// persistence is unavailable. Analysis runs fine without it.
func openSessionStore(cfg *config.Config) session.Store {
	store, err := session.NewSQLiteStore(cfg.SessionDBPath)
	if err != nil {
		slog.Warn("session store unavailable, traces will not persist",
			"path", cfg.SessionDBPath, "error", err)
		return nil
	}
	return store
}

// readJSONFile decodes one JSON object file into a generic mapping.
func readJSONFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return data, nil
}

// emit writes a value to stdout in the requested format. Markdown and HTML
// formats take the pre-rendered markdown; json marshals the value itself.
func emit(format string, value any, markdown string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case "markdown":
		fmt.Print(markdown)
		return nil
	case "html":
		html, err := report.HTML(markdown)
		if err != nil {
			return err
		}
		fmt.Print(html)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
