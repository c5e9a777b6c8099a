package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/harvestfund/granary/internal/analyzer"
	"github.com/harvestfund/granary/internal/cli"
	"github.com/harvestfund/granary/internal/config"
	"github.com/harvestfund/granary/internal/report"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Detect and extract fields from a business document",
		Long: `Analyze a document (tax form, bank statement, payroll register, W-9,
P&L, 1099 summary, veteran certification, or OFX/QFX download): detect its
type and extract typed fields with confidence and provenance.

Examples:
  # Analyze one document
  granary analyze q3-941.txt

  # Analyze every file in a directory
  granary analyze --dir ./documents

  # Group multiple runs under one session
  granary analyze stmt.ofx --session-id case-1142

  # Machine-readable output
  granary analyze q3-941.txt --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().String("dir", "", "analyze every regular file in a directory")
	cmd.Flags().String("session-id", "", "session to record traces under (generated when empty)")
	cmd.Flags().String("output", "json", "output format (json, markdown, html)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	_ = cmd.Context()

	dir, _ := cmd.Flags().GetString("dir")
	sessionID, _ := cmd.Flags().GetString("session-id")
	outputFormat, _ := cmd.Flags().GetString("output")

	if dir == "" && len(args) == 0 {
		return fmt.Errorf("provide a file argument or --dir")
	}
	if dir != "" && len(args) > 0 {
		return fmt.Errorf("--dir and a file argument are mutually exclusive")
	}

	cfg, err := config.FromViper()
	if err != nil {
		return err
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	opts := []analyzer.Option{analyzer.WithDayFirstDates(cfg.DateDayFirst)}
	if store := openSessionStore(cfg); store != nil {
		defer func() { _ = store.Close() }()
		opts = append(opts, analyzer.WithStore(store))
	}
	a := analyzer.New(cat, opts...)

	if dir != "" {
		return analyzeDirectory(cmd, a, dir, sessionID, outputFormat)
	}
	return analyzeFile(cmd, a, args[0], sessionID, outputFormat)
}

func analyzeFile(cmd *cobra.Command, a *analyzer.Analyzer, path, sessionID, outputFormat string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	resp, err := a.Analyze(cmd.Context(), analyzer.Request{
		Content:   content,
		Filename:  filepath.Base(path),
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("analysis failed for %s: %w", path, err)
	}

	return emit(outputFormat, resp, report.ExtractionMarkdown(resp.Result))
}

// analyzeDirectory runs every regular file through the analyzer under one
// shared session, with a progress bar and a per-file summary line.
func analyzeDirectory(cmd *cobra.Command, a *analyzer.Analyzer, dir, sessionID, outputFormat string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return fmt.Errorf("no files found in %s", dir)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Analyzing documents"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)

	responses := make([]*analyzer.Response, 0, len(files))
	for _, name := range files {
		content, readErr := os.ReadFile(filepath.Join(dir, name))
		if readErr != nil {
			fmt.Println(cli.FormatWarning(fmt.Sprintf("%s: %v", name, readErr)))
			_ = bar.Add(1)
			continue
		}

		resp, analyzeErr := a.Analyze(cmd.Context(), analyzer.Request{
			Content:   content,
			Filename:  name,
			SessionID: sessionID,
		})
		if analyzeErr != nil {
			fmt.Println(cli.FormatWarning(fmt.Sprintf("%s: %v", name, analyzeErr)))
			_ = bar.Add(1)
			continue
		}

		// Reuse the first generated session ID so one directory is one session.
		if sessionID == "" {
			sessionID = resp.SessionID
		}
		responses = append(responses, resp)
		_ = bar.Add(1)
	}

	if outputFormat == "json" {
		return emit("json", responses, "")
	}

	fmt.Println(cli.FormatTitle("Document Analysis"))
	for _, resp := range responses {
		line := fmt.Sprintf("%s %s → %s (%.2f, %d fields)",
			cli.DocIcon, resp.Trace.Filename, resp.Result.DocType,
			resp.Result.Confidence, len(resp.Result.FieldsClean))
		fmt.Println(line)
	}
	fmt.Println(cli.SubtleStyle.Render("session: " + sessionID))
	return nil
}
