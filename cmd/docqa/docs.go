package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, args []string) error {
	docs := newClient().Documents(cmd.Context())

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents uploaded.")
		return nil
	}

	fmt.Fprintln(out, headerStyle.Render(english.Plural(len(docs), "document", "")))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("ID", "FILENAME")
	for _, d := range docs {
		t.Row(d.DocumentID, d.Filename)
	}
	fmt.Fprintln(out, t.String())
	return nil
}
