// Package main provides the entry point for the job description annotator.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jd_annotator",
	Short: "Job description annotation engine",
	Long: `jd_annotator marks up job descriptions with relevance, requirement, passion and identity
annotations, scores how well a candidate fits the posting, and serves the annotation backend.

Configuration can be loaded from a JSON or YAML file using --config. Command-line flags override config file values.`,
	SilenceUsage: true,
}

var (
	rootConfigPath string
	rootJobID      string
	rootBackendURL string
	rootLocalStore string
	rootVerbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().StringVar(&rootJobID, "job-id", "", "Job whose annotations are edited")
	rootCmd.PersistentFlags().StringVar(&rootBackendURL, "backend-url", "", "Annotation backend base URL (defaults to ANNOTATION_BACKEND_URL env var)")
	rootCmd.PersistentFlags().StringVar(&rootLocalStore, "local-store", "", "SQLite file used when no backend is configured")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
