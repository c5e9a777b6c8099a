package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harvestfund/granary/internal/cli"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List catalog contents",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "documents",
			Short: "List supported document types",
			RunE:  runCatalogDocuments,
		},
		&cobra.Command{
			Use:   "grants",
			Short: "List grant programs",
			RunE:  runCatalogGrants,
		},
		&cobra.Command{
			Use:   "forms",
			Short: "List form templates",
			RunE:  runCatalogForms,
		},
	)

	return cmd
}

func runCatalogDocuments(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Document Types"))
	for _, doc := range cat.Documents() {
		fmt.Printf("%s  %s\n", cli.BoldStyle.Render(doc.Key), doc.DisplayName)
		fmt.Println(cli.SubtleStyle.Render(
			fmt.Sprintf("  family: %s, fields: %d", doc.Family, len(doc.SchemaFields))))
	}
	return nil
}

func runCatalogGrants(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Grant Programs"))
	for _, grant := range cat.Grants() {
		fmt.Printf("%s  %s\n", cli.BoldStyle.Render(grant.Key), grant.Name)
		if len(grant.RequiredFields) > 0 {
			fmt.Println(cli.SubtleStyle.Render(
				"  requires: " + strings.Join(grant.RequiredFields, ", ")))
		}
	}
	return nil
}

func runCatalogForms(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	keys := cat.FormKeys()
	sort.Strings(keys)

	fmt.Println(cli.FormatTitle("Form Templates"))
	for _, key := range keys {
		fmt.Println(cli.BoldStyle.Render(key))
	}
	return nil
}
