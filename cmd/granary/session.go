package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harvestfund/granary/internal/cli"
	"github.com/harvestfund/granary/internal/config"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/session"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect recorded analysis sessions",
	}
	cmd.AddCommand(sessionShowCmd())
	return cmd
}

func sessionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the traces and conversation memory recorded for a session",
		Long: `Show everything recorded under one session ID: the analysis trace of
each document processed and any drafting exchanges the form filler had
with the configured LLM.

Examples:
  granary session show case-1142
  granary session show case-1142 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: runSessionShow,
	}

	cmd.Flags().String("output", "text", "output format (text, json)")

	return cmd
}

// sessionDump is the JSON shape of one session's recorded history.
type sessionDump struct {
	SessionID string                 `json:"session_id"`
	Traces    []model.AnalyzeTrace   `json:"traces"`
	Memory    []session.MemoryRecord `json:"memory"`
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := config.FromViper()
	if err != nil {
		return err
	}

	store, err := session.NewSQLiteStore(cfg.SessionDBPath)
	if err != nil {
		return fmt.Errorf("failed to open session store at %s: %w", cfg.SessionDBPath, err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	traces, err := store.Traces(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to read traces: %w", err)
	}
	memory, err := store.LoadMemory(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to read session memory: %w", err)
	}

	if len(traces) == 0 && len(memory) == 0 {
		return fmt.Errorf("no records found for session %q", sessionID)
	}

	if outputFormat == "json" {
		return emit("json", sessionDump{SessionID: sessionID, Traces: traces, Memory: memory}, "")
	}

	fmt.Println(cli.FormatTitle("Session " + sessionID))
	for _, trace := range traces {
		name := trace.Filename
		if name == "" {
			name = "(stdin)"
		}
		fmt.Printf("%s %s → %s (detected %s at %.2f, %d ms",
			cli.DocIcon, name, trace.Extractor, trace.DetectedType,
			trace.Confidence, trace.ElapsedMS)
		if len(trace.SkippedFields) > 0 {
			fmt.Printf(", %d fields outside schema", len(trace.SkippedFields))
		}
		fmt.Println(")")
	}
	if len(memory) > 0 {
		fmt.Println()
		fmt.Println(cli.FormatTitle("Drafting memory"))
		for _, rec := range memory {
			fmt.Printf("[%s] %s: %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04"), rec.Role, rec.Content)
		}
	}
	return nil
}
