package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-annotator/internal/annotations"
	"github.com/jonathan/jd-annotator/internal/engine"
	"github.com/jonathan/jd-annotator/internal/fetch"
	"github.com/jonathan/jd-annotator/internal/observability"
	"github.com/jonathan/jd-annotator/internal/types"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Create or edit an annotation",
	Long: `Creates an annotation on --text, or on the sentence at --offset in --jd-file, and sets the
dimensions given by flags. With --id the stored annotation is edited instead.

Example:
  jd_annotator annotate --job-id acme-swe --text "Own the payments roadmap" --relevance core_strength --passion love_it`,
	RunE: runAnnotate,
}

var (
	annotateID       string
	annotateText     string
	annotateSection  string
	annotateJDFile   string
	annotateOffset   int
	annotateStrategy string
	annotateDims     = make(map[types.Dimension]*string, len(types.AllDimensions))
)

func init() {
	annotateCmd.Flags().StringVar(&annotateID, "id", "", "Stored annotation to edit")
	annotateCmd.Flags().StringVar(&annotateText, "text", "", "Text to annotate")
	annotateCmd.Flags().StringVar(&annotateSection, "section", "", "Section the text belongs to (detected from --jd-file when omitted)")
	annotateCmd.Flags().StringVar(&annotateJDFile, "jd-file", "", "Job description file to select a sentence from")
	annotateCmd.Flags().IntVar(&annotateOffset, "offset", 0, "Byte offset into the job description text, used with --jd-file")
	annotateCmd.Flags().StringVar(&annotateStrategy, "note", "", "Strategic note")
	for _, dim := range types.AllDimensions {
		annotateDims[dim] = annotateCmd.Flags().String(flagName(dim), "", fmt.Sprintf("%s value", dim))
	}
	rootCmd.AddCommand(annotateCmd)
}

func flagName(dim types.Dimension) string {
	if dim == types.DimensionRequirementType {
		return "requirement"
	}
	return string(dim)
}

// dimensionFlags returns the dimension values set on the command line.
func dimensionFlags() types.Dimensions {
	var d types.Dimensions
	for _, dim := range types.AllDimensions {
		if v := annotateDims[dim]; v != nil && *v != "" {
			d.Set(dim, *v)
		}
	}
	return d
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
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

	var saved *types.Annotation
	if annotateID != "" {
		saved, err = editAnnotation(eng, annotateID, dimensionFlags(), annotateStrategy)
	} else {
		saved, err = createAnnotation(eng, dimensionFlags())
	}
	if err != nil {
		eng.Close()
		return err
	}
	if err := finish(ctx, eng); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Saved annotation %s\n", saved.ID)
	if cfg.Verbose {
		p := observability.NewPrinter(os.Stdout)
		p.PrintAnnotations(eng.Annotations())
		p.PrintScores(eng.Scores())
	}
	return nil
}

func createAnnotation(eng *engine.Engine, dims types.Dimensions) (*types.Annotation, error) {
	var err error
	switch {
	case annotateJDFile != "":
		var jd *fetch.JobDescription
		jd, err = fetch.ReadJobDescription(annotateJDFile)
		if err != nil {
			return nil, err
		}
		var session *annotations.EditSession
		session, err = eng.SelectSentence(annotateSection, jd.Text, annotateOffset)
		if err == nil && annotateSection == "" {
			target := session.Target()
			target.Section = fetch.SectionFor(jd.Sections, target.Text)
			_, err = eng.BeginCreate(target)
		}
	case annotateText != "":
		_, err = eng.BeginCreate(textTarget(annotateText, annotateSection))
	default:
		return nil, fmt.Errorf("one of --text or --jd-file is required")
	}
	if err != nil {
		return nil, err
	}

	for _, dim := range types.AllDimensions {
		if v := dims.Get(dim); v != "" {
			if _, err := eng.ToggleDimension("", dim, v); err != nil {
				return nil, err
			}
		}
	}
	saved, err := eng.SaveSession()
	if err != nil {
		return nil, err
	}
	if annotateStrategy == "" {
		return saved, nil
	}
	return eng.Update(saved.ID, annotations.Patch{StrategicNote: &annotateStrategy})
}

// textTarget builds the target for text typed on the command line, which spans the whole input.
func textTarget(text, section string) types.Target {
	return types.Target{
		Text:         text,
		OriginalText: text,
		Section:      section,
		CharEnd:      len(text),
	}
}

// editAnnotation sets the given dimensions on a stored annotation. Unset flags keep their values.
func editAnnotation(eng *engine.Engine, id string, set types.Dimensions, note string) (*types.Annotation, error) {
	var current *types.Annotation
	for _, a := range eng.Annotations() {
		if a.ID == id {
			a := a
			current = &a
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("annotation %s not found", id)
	}

	dims := current.Dimensions
	for _, dim := range types.AllDimensions {
		if v := set.Get(dim); v != "" {
			if err := types.ValidateDimensionValue(dim, v); err != nil {
				return nil, err
			}
			dims.Set(dim, v)
		}
	}
	patch := annotations.Patch{Dimensions: &dims}
	if note != "" {
		patch.StrategicNote = &note
	}
	return eng.Update(id, patch)
}
