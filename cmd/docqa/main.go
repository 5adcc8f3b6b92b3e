// Package main provides the docqa command-line client.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/client"
	"github.com/bull/docqa/internal/config"
)

var (
	serverURL  string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions across uploaded documents",
	Long: `Client for the docqa service.

Upload PDFs, images and text files, list what has been indexed, and ask a
question across every document. Answers cite the page and paragraph they
came from and are followed by the themes the documents share.

Environment variables:
  DOCQA_SERVER   Base URL of the docqa server (default: http://localhost:8000)
  DOCQA_CONFIG   Config file used by "ingest" (default: docqa.yaml)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", getEnv("DOCQA_SERVER", client.DefaultBaseURL), "docqa server base URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", getEnv("DOCQA_CONFIG", config.DefaultPath), "config file for in-process commands")
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverURL, nil, nil)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
