package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harvestfund/granary/internal/cli"
	"github.com/harvestfund/granary/internal/eligibility"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/report"
)

func eligibilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibility <profile.json>",
		Short: "Evaluate grant program eligibility for a business profile",
		Long: `Evaluate every grant program in the catalog against a business profile.
The profile is an arbitrary JSON object; field names are resolved through
the profile alias table, so analyzer output can be passed through directly.

Examples:
  # Styled terminal summary
  granary eligibility profile.json

  # Machine-readable results
  granary eligibility profile.json --output json

  # Markdown or HTML report
  granary eligibility profile.json --output markdown
  granary eligibility profile.json --output html`,
		Args: cobra.ExactArgs(1),
		RunE: runEligibility,
	}

	cmd.Flags().String("output", "table", "output format (table, json, markdown, html)")

	return cmd
}

func runEligibility(cmd *cobra.Command, args []string) error {
	outputFormat, _ := cmd.Flags().GetString("output")

	profile, err := readJSONFile(args[0])
	if err != nil {
		return err
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	result := eligibility.New(cat).Analyze(profile)

	if outputFormat == "table" {
		printEligibilityTable(&result)
		return nil
	}
	return emit(outputFormat, result, report.EligibilityMarkdown(&result))
}

func printEligibilityTable(rep *model.EligibilityReport) {
	fmt.Println(cli.FormatTitle("Grant Eligibility"))

	for _, result := range rep.Results {
		fmt.Printf("%s  %s  score %d  %s\n",
			cli.BoldStyle.Render(result.Name),
			cli.FormatStatus(result.Status),
			result.Score,
			cli.FormatAmount(result.EstimatedAmount))
		fmt.Println(cli.SubtleStyle.Render("  " + result.Rationale))
	}

	if len(rep.MissingFields) > 0 {
		fmt.Println(cli.FormatWarning("Missing information: "))
		for _, field := range rep.MissingFields {
			fmt.Println("  - " + field)
		}
	}
	if len(rep.RequiredForms) > 0 {
		fmt.Println(cli.FormatInfo("Required forms:"))
		for _, form := range rep.RequiredForms {
			fmt.Println("  - " + form)
		}
	}
}
