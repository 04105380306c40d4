package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-annotator/internal/engine"
	"github.com/jonathan/jd-annotator/internal/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review <approve|reject|delete|toggle> <annotation-id>...",
	Short: "Review stored annotations",
	Long: `Applies a review action to one or more stored annotations.

  approve  mark suggestions approved
  reject   mark suggestions rejected
  delete   remove annotations
  toggle   flip whether annotations count toward highlighting and scoring`,
	Args: cobra.MinimumNArgs(2),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	action, ids := args[0], args[1:]
	apply, err := reviewAction(action)
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
	for _, id := range ids {
		if err := apply(eng, id); err != nil {
			eng.Close()
			return fmt.Errorf("failed to %s %s: %w", action, id, err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "%s: %s\n", action, id)
	}
	return finish(ctx, eng)
}

func reviewAction(action string) (func(*engine.Engine, string) error, error) {
	switch action {
	case "approve":
		return func(e *engine.Engine, id string) error { return ignore(e.Approve(id)) }, nil
	case "reject":
		return func(e *engine.Engine, id string) error { return ignore(e.Reject(id)) }, nil
	case "toggle":
		return func(e *engine.Engine, id string) error { return ignore(e.ToggleActive(id)) }, nil
	case "delete":
		return func(e *engine.Engine, id string) error { return e.Delete(id) }, nil
	default:
		return nil, fmt.Errorf("unknown review action %q (want approve, reject, delete or toggle)", action)
	}
}

func ignore(_ *types.Annotation, err error) error {
	return err
}
