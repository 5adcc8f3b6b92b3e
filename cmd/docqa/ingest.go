package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Index files directly, without a running server",
	Long: `Runs the ingestion pipeline in-process against the configured index.

This command:
1. Loads the config file and environment
2. Opens the vector store (SQLite or Qdrant)
3. Extracts, segments and embeds every file
4. Stores the paragraphs in the index

Environment variables:
  OPENAI_API_KEY       OpenAI API key for embeddings and OCR (required)
  DOCQA_INDEX_BACKEND  sqlite or qdrant (default: sqlite)
  DOCQA_INDEX_DIR      SQLite index directory (default: ./index)
  QDRANT_HOST          Qdrant hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	start := time.Now()

	files := make([]ingest.File, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, ingest.File{Filename: filepath.Base(path), Data: data})
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "Indexing %d file(s) into %s...\n", len(files), cfg.Index.Backend)
	result := a.Ingest.Upload(ctx, files)
	printIngest(cmd, result)

	fmt.Fprintf(out, "\nTotal time: %s\n", time.Since(start).Round(time.Millisecond))
	if len(result.Files) == 0 {
		return fmt.Errorf("no files could be processed")
	}
	return nil
}

func printIngest(cmd *cobra.Command, result *ingest.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Ingest complete"))
	fmt.Fprintf(out, "  Documents:  %d/%d\n", len(result.Files), len(result.Files)+len(result.Failed))
	fmt.Fprintf(out, "  Paragraphs: %s\n", humanize.Comma(int64(result.TotalUnits)))
	fmt.Fprintf(out, "  Duration:   %s\n", result.Duration.Round(time.Millisecond))

	for _, f := range result.Files {
		fmt.Fprintf(out, "  %s %s %s\n", successStyle.Render("ok"), f.Filename, mutedStyle.Render(f.DocumentID))
	}
	if len(result.Failed) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Failed documents:")
		for _, f := range result.Failed {
			fmt.Fprintf(out, "  - %s: %s\n", f.Filename, f.Reason)
		}
	}
}
