package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-annotator/internal/annotations"
	"github.com/jonathan/jd-annotator/internal/types"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <suggestions.json>",
	Short: "Add auto-generated suggestions to a job's annotations",
	Long: `Reads a JSON array of suggestions and stores them for review. Each suggestion is
snapshotted so later edits can be reported as feedback. Suggestions below the job's
confidence threshold are skipped.

Suggestion format:
  [{"target": {"text": "...", "section": "..."}, "relevance": "relevant", "confidence": 0.8, "match_method": "keyword"}]`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}

// Suggestion is one entry of a suggestions file.
type Suggestion struct {
	Target types.Target `json:"target"`
	types.Dimensions
	Confidence        float64  `json:"confidence"`
	MatchMethod       string   `json:"match_method,omitempty"`
	StarIDs           []string `json:"star_ids,omitempty"`
	ReframeNote       string   `json:"reframe_note,omitempty"`
	SuggestedKeywords []string `json:"suggested_keywords,omitempty"`
}

// Draft converts the suggestion into an auto-generated draft awaiting review.
func (s Suggestion) Draft() annotations.Draft {
	if s.Target.OriginalText == "" {
		s.Target.OriginalText = s.Target.Text
	}
	return annotations.Draft{
		Target:            s.Target,
		Dimensions:        s.Dimensions,
		StarIDs:           s.StarIDs,
		ReframeNote:       s.ReframeNote,
		SuggestedKeywords: s.SuggestedKeywords,
		Source:            types.SourceAutoGenerated,
		Status:            types.StatusNeedsReview,
		OriginalValues: &types.OriginalValues{
			Dimensions:  s.Dimensions,
			Confidence:  s.Confidence,
			MatchMethod: s.MatchMethod,
		},
	}
}

func readSuggestions(path string) ([]annotations.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var suggestions []Suggestion
	if err := json.Unmarshal(data, &suggestions); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions JSON: %w", err)
	}
	drafts := make([]annotations.Draft, 0, len(suggestions))
	for _, s := range suggestions {
		drafts = append(drafts, s.Draft())
	}
	return drafts, nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	drafts, err := readSuggestions(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	persistence, closeStore, err := openPersistence(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	eng, err := openEngine(ctx, cfg, persistence, nil)
	if err != nil {
		return err
	}
	created, skipped, err := eng.AddSuggestions(drafts)
	if err != nil {
		eng.Close()
		return err
	}
	if err := finish(ctx, eng); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Added %d suggestions (%d skipped)\n", len(created), skipped)
	return nil
}
