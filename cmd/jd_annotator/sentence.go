package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-annotator/internal/segment"
)

var sentenceCmd = &cobra.Command{
	Use:   "sentence",
	Short: "Print the sentence around a character offset",
	Long:  `Finds the sentence containing --offset in --text (or the contents of --file) and prints its bounds as JSON.`,
	RunE:  runSentence,
}

var (
	sentenceText   string
	sentenceFile   string
	sentenceOffset int
)

func init() {
	sentenceCmd.Flags().StringVar(&sentenceText, "text", "", "Text to search")
	sentenceCmd.Flags().StringVarP(&sentenceFile, "file", "f", "", "File whose contents are searched (mutually exclusive with --text)")
	sentenceCmd.Flags().IntVar(&sentenceOffset, "offset", 0, "Byte offset of the click position")
	rootCmd.AddCommand(sentenceCmd)
}

// SentenceResult is the JSON printed by the sentence command.
type SentenceResult struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Sentence string `json:"sentence"`
}

func runSentence(_ *cobra.Command, _ []string) error {
	text, err := sentenceInput(sentenceText, sentenceFile)
	if err != nil {
		return err
	}
	result, err := findSentence(text, sentenceOffset)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func sentenceInput(text, path string) (string, error) {
	switch {
	case text != "" && path != "":
		return "", fmt.Errorf("--text and --file are mutually exclusive")
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	case text != "":
		return text, nil
	default:
		return "", fmt.Errorf("one of --text or --file is required")
	}
}

func findSentence(text string, offset int) (SentenceResult, error) {
	bounds, ok := segment.FindSentenceBounds(text, offset)
	if !ok {
		return SentenceResult{}, fmt.Errorf("no sentence at offset %d", offset)
	}
	return SentenceResult{Start: bounds.Start, End: bounds.End, Sentence: bounds.Text(text)}, nil
}
