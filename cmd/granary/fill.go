package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harvestfund/granary/internal/cli"
	"github.com/harvestfund/granary/internal/config"
	"github.com/harvestfund/granary/internal/formfill"
	"github.com/harvestfund/granary/internal/llm"
)

func fillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill <form-key>",
		Short: "Fill a grant application form template",
		Long: `Fill a form template from user answers, prior analyzer output, and an
optional attached document. Unfilled text fields can be drafted by the
configured LLM; without one they stay empty and are reported as missing
when required.

Examples:
  # Fill from explicit answers
  granary fill sba_microloan --data answers.json

  # Backfill gaps from a prior analysis
  granary fill form_8974 --data answers.json --analyzer extracted.json

  # Merge fields from an attached document
  granary fill sba_microloan --data answers.json --attach w9.txt

  # Carry drafting context across fills in one session
  granary fill sba_microloan --data answers.json --session-id case-1142`,
		Args: cobra.ExactArgs(1),
		RunE: runFill,
	}

	cmd.Flags().String("data", "", "JSON file of user answers")
	cmd.Flags().String("analyzer", "", "JSON file of analyzer fields to backfill from")
	cmd.Flags().String("attach", "", "supporting document to extract and merge")
	cmd.Flags().String("session-id", "", "session to record and replay drafting memory under")
	cmd.Flags().String("output", "json", "output format (json)")

	return cmd
}

func runFill(cmd *cobra.Command, args []string) error {
	formKey := args[0]
	dataPath, _ := cmd.Flags().GetString("data")
	analyzerPath, _ := cmd.Flags().GetString("analyzer")
	attachPath, _ := cmd.Flags().GetString("attach")
	sessionID, _ := cmd.Flags().GetString("session-id")
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := config.FromViper()
	if err != nil {
		return err
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	data := map[string]any{}
	if dataPath != "" {
		if data, err = readJSONFile(dataPath); err != nil {
			return err
		}
	}
	var analyzerFields map[string]any
	if analyzerPath != "" {
		if analyzerFields, err = readJSONFile(analyzerPath); err != nil {
			return err
		}
	}
	var fileBytes []byte
	if attachPath != "" {
		if fileBytes, err = os.ReadFile(attachPath); err != nil {
			return fmt.Errorf("failed to read attachment: %w", err)
		}
	}

	completer, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return err
	}
	if sessionID != "" {
		if store := openSessionStore(cfg); store != nil {
			defer func() { _ = store.Close() }()
			completer = llm.WithMemory(completer, store, sessionID)
		}
	}

	engine := formfill.New(cat,
		formfill.WithCompleter(completer),
		formfill.WithFixtureDir(cfg.FixtureDir),
		formfill.WithDayFirstDates(cfg.DateDayFirst),
	)

	filled, err := engine.Fill(cmd.Context(), formKey, data, analyzerFields, fileBytes)
	if err != nil {
		return err
	}

	if !filled.RequiredOK {
		fmt.Fprintln(os.Stderr, cli.FormatWarning(
			fmt.Sprintf("%d required fields are still missing", len(filled.MissingKeys))))
	}
	for _, mismatch := range filled.CalcMismatches {
		fmt.Fprintln(os.Stderr, cli.FormatWarning("calculation mismatch: "+mismatch))
	}

	return emit(outputFormat, filled, "")
}
