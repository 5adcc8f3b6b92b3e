package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/api"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload files to the server",
	Long: `Uploads one or more files as a single batch. PDFs are split by page, PNG
and JPEG images go through OCR, anything else is read as UTF-8 text.

A file that cannot be processed is reported and does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	var total int64
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		total += info.Size()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Uploading %d file(s), %s...\n", len(args), humanize.Bytes(uint64(total)))

	resp, err := newClient().UploadPaths(cmd.Context(), args...)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	printUpload(cmd, resp)

	if len(resp.Files) == 0 && len(resp.Failed) > 0 {
		return errors.New("no files could be processed")
	}
	return nil
}

func printUpload(cmd *cobra.Command, resp *api.UploadResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Message)
	for _, f := range resp.Files {
		fmt.Fprintf(out, "  %s %s %s\n", successStyle.Render("ok"), f.Filename, mutedStyle.Render(f.DocumentID))
	}
	for _, f := range resp.Failed {
		fmt.Fprintf(out, "  %s %s: %s\n", errorStyle.Render("failed"), f.Filename, f.Reason)
	}
}
