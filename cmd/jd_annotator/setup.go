package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-annotator/internal/client"
	"github.com/jonathan/jd-annotator/internal/config"
	"github.com/jonathan/jd-annotator/internal/engine"
	"github.com/jonathan/jd-annotator/internal/highlight"
	"github.com/jonathan/jd-annotator/internal/localstore"
)

// DefaultLocalStore is the SQLite file used when neither a backend nor a store path is configured.
const DefaultLocalStore = "jd_annotations.db"

// resolveConfig loads the config file, applies the root flags and fills defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if rootConfigPath != "" {
		loaded, err := config.LoadConfig(rootConfigPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("job-id") {
		cfg.JobID = rootJobID
	}
	if flags.Changed("backend-url") {
		cfg.BackendURL = rootBackendURL
		cfg.LocalStore = ""
	}
	if flags.Changed("local-store") {
		cfg.LocalStore = rootLocalStore
		cfg.BackendURL = ""
	}
	if flags.Changed("verbose") {
		cfg.Verbose = rootVerbose
	}

	if cfg.BackendURL == "" && cfg.LocalStore == "" {
		cfg.BackendURL = os.Getenv("ANNOTATION_BACKEND_URL")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	merged := cfg.MergeWithDefaults(config.Defaults())
	if merged.BackendURL == "" && merged.LocalStore == "" {
		merged.LocalStore = DefaultLocalStore
	}
	if err := merged.Validate(); err != nil {
		return config.Config{}, err
	}
	if rootConfigPath != "" && merged.Verbose {
		_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", rootConfigPath)
	}
	return merged, nil
}

// openPersistence returns the backend client or the local SQLite store.
// The returned close function is never nil.
func openPersistence(cfg config.Config) (engine.Persistence, func(), error) {
	if cfg.BackendURL != "" {
		return client.New(cfg.BackendURL), func() {}, nil
	}
	store, err := localstore.Open(cfg.LocalStore)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("[localstore] failed to close %s: %v", cfg.LocalStore, err)
		}
	}, nil
}

// openEngine builds an engine for cfg.JobID and loads its annotations.
func openEngine(ctx context.Context, cfg config.Config, p engine.Persistence, surface highlight.RenderSurface) (*engine.Engine, error) {
	if cfg.JobID == "" {
		return nil, fmt.Errorf("--job-id is required (or set job_id in config)")
	}
	eng, err := engine.New(cfg.Engine(), engine.Deps{Surface: surface, Persistence: p})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := eng.Load(ctx); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}

// finish writes pending edits and feedback, then stops the engine.
func finish(ctx context.Context, eng *engine.Engine) error {
	defer eng.Close()
	if err := eng.Drain(ctx); err != nil {
		return fmt.Errorf("failed to save annotations: %w", err)
	}
	return nil
}
