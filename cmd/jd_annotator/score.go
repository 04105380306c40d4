package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-annotator/internal/config"
	"github.com/jonathan/jd-annotator/internal/observability"
	"github.com/jonathan/jd-annotator/internal/schemas"
	"github.com/jonathan/jd-annotator/internal/scoring"
	"github.com/jonathan/jd-annotator/internal/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute coverage and qualification boost for a job's annotations",
	Long: `Computes section coverage and the qualification boost for the job's saved annotations,
or for an annotation document file given with --file.`,
	RunE: runScore,
}

var (
	scoreFile string
	scoreJSON bool
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreFile, "file", "f", "", "Annotation document JSON file to score instead of the saved annotations")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	var doc *types.Document
	if scoreFile != "" {
		doc, err = readDocumentFile(scoreFile)
	} else {
		doc, err = loadSavedDocument(context.Background(), cfg)
	}
	if err != nil {
		return err
	}

	result := scoring.Compute(doc.Annotations, cfg.SectionTargets)
	if scoreJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	p := observability.NewPrinter(os.Stdout)
	p.PrintScores(result)
	if cfg.Verbose {
		p.PrintAnnotations(doc.Annotations)
	}
	return nil
}

// readDocumentFile validates a document file against the schema and decodes it.
func readDocumentFile(path string) (*types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := schemas.ValidateDocument(data); err != nil {
		return nil, err
	}
	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	doc.Normalize()
	return &doc, nil
}

// loadSavedDocument returns the job's saved document, or an empty one.
func loadSavedDocument(ctx context.Context, cfg config.Config) (*types.Document, error) {
	jobID := cfg.JobID
	if jobID == "" {
		return nil, fmt.Errorf("--job-id is required (or set job_id in config)")
	}
	persistence, closeStore, err := openPersistence(cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	doc, err := persistence.LoadAnnotations(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load annotations for job %s: %w", jobID, err)
	}
	if doc == nil {
		doc = types.NewDocument()
	}
	doc.Normalize()
	return doc, nil
}
