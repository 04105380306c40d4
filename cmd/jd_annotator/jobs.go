package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-annotator/internal/config"
	"github.com/jonathan/jd-annotator/internal/localstore"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs in the local store",
	RunE:  runJobs,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "List suggestion feedback recorded in the local store for a job",
	RunE:  runFeedback,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func openLocalStore(cfg config.Config) (*localstore.Store, error) {
	if cfg.BackendURL != "" {
		return nil, fmt.Errorf("a backend is configured; this command reads the local store (use --local-store)")
	}
	return localstore.Open(cfg.LocalStore)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openLocalStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	jobs, err := store.Jobs(context.Background())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "No jobs in %s\n", cfg.LocalStore)
		return nil
	}
	for _, id := range jobs {
		_, _ = fmt.Fprintln(os.Stdout, id)
	}
	return nil
}

func runFeedback(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JobID == "" {
		return fmt.Errorf("--job-id is required (or set job_id in config)")
	}
	store, err := openLocalStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	feedback, err := store.ListFeedback(context.Background(), cfg.JobID)
	if err != nil {
		return err
	}
	for _, fb := range feedback {
		_, _ = fmt.Fprintf(os.Stdout, "%-14s %-12s %s\n", fb.Action, fb.AnnotationID, fb.Target.Text)
	}
	_, _ = fmt.Fprintf(os.Stdout, "%d feedback records\n", len(feedback))
	return nil
}
