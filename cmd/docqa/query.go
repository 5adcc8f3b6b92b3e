package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/api"
)

var (
	queryExclude []string
	queryJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query QUESTION",
	Short: "Ask a question across all documents",
	Long: `Retrieves the most relevant paragraphs from every document and asks the
language model for the themes they share.

Use --exclude with ids from "docqa docs" to leave documents out.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVarP(&queryExclude, "exclude", "x", nil, "document id to exclude (repeatable)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the raw response as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	resp, err := newClient().Query(cmd.Context(), args[0], queryExclude)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printQuery(cmd, resp)
	return nil
}

func printQuery(cmd *cobra.Command, resp *api.QueryResponse) {
	out := cmd.OutOrStdout()
	if len(resp.Answers) == 0 {
		fmt.Fprintln(out, "No answers found.")
	} else {
		fmt.Fprintln(out, headerStyle.Render("Answers"))
		for _, a := range resp.Answers {
			fmt.Fprintf(out, "\n  %s %s\n", a.Filename, mutedStyle.Render("("+a.Citation+")"))
			fmt.Fprintf(out, "  %s\n", a.ExtractedAnswer)
		}
	}

	if resp.Themes != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, headerStyle.Render("Themes"))
		fmt.Fprintln(out, resp.Themes)
	}
}
