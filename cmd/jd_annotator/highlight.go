package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jd-annotator/internal/engine"
	"github.com/jonathan/jd-annotator/internal/fetch"
	"github.com/jonathan/jd-annotator/internal/highlight"
	"github.com/jonathan/jd-annotator/internal/observability"
	"github.com/jonathan/jd-annotator/internal/types"
)

var highlightCmd = &cobra.Command{
	Use:   "highlight",
	Short: "Render a job description with its annotations highlighted",
	Long: `Loads the job's annotations and its job description, wraps every active annotation in a
highlight marker and writes the resulting HTML.

The job description comes from --jd-file or --jd-url. When neither is given, the processed
description saved with the annotations is used. A newly fetched description is saved back
as processed_jd_html.`,
	RunE: runHighlight,
}

var (
	highlightJDFile     string
	highlightJDURL      string
	highlightOut        string
	highlightUseBrowser bool
)

func init() {
	highlightCmd.Flags().StringVar(&highlightJDFile, "jd-file", "", "Path to a saved job description (HTML or plain text)")
	highlightCmd.Flags().StringVar(&highlightJDURL, "jd-url", "", "URL to fetch the job description from")
	highlightCmd.Flags().StringVarP(&highlightOut, "out", "o", "", "Output HTML file (defaults to stdout)")
	highlightCmd.Flags().BoolVar(&highlightUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	rootCmd.AddCommand(highlightCmd)
}

func runHighlight(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("jd-file") {
		cfg.JobFile = highlightJDFile
		cfg.JobURL = ""
	}
	if cmd.Flags().Changed("jd-url") {
		cfg.JobURL = highlightJDURL
		cfg.JobFile = ""
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = highlightUseBrowser
	}
	if cfg.JobID == "" {
		return fmt.Errorf("--job-id is required (or set job_id in config)")
	}

	persistence, closeStore, err := openPersistence(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// The saved annotations and the job description are independent; load them concurrently.
	var doc *types.Document
	var jd *fetch.JobDescription
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := persistence.LoadAnnotations(gctx, cfg.JobID)
		if err != nil {
			return fmt.Errorf("failed to load annotations for job %s: %w", cfg.JobID, err)
		}
		doc = loaded
		return nil
	})
	g.Go(func() error {
		loaded, err := loadJobDescription(gctx, cfg.JobFile, cfg.JobURL, cfg.UseBrowser, cfg.Verbose)
		if err != nil {
			return err
		}
		jd = loaded
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if doc == nil {
		doc = types.NewDocument()
	}

	markup := ""
	switch {
	case jd != nil:
		markup = jd.HTML
	case doc.ProcessedJDHTML != nil:
		markup = *doc.ProcessedJDHTML
	default:
		return fmt.Errorf("no job description: pass --jd-file or --jd-url")
	}

	surface, err := highlight.NewHTMLSurface(markup, highlight.WithExcludeSelector(cfg.ExcludeSelector))
	if err != nil {
		return fmt.Errorf("failed to parse job description: %w", err)
	}

	eng, err := engine.New(cfg.Engine(), engine.Deps{Surface: surface, Persistence: persistence})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	if err := eng.LoadDocument(doc); err != nil {
		eng.Close()
		return err
	}
	if jd != nil {
		eng.SetProcessedHTML(jd.HTML)
	}

	output, err := surface.HTML()
	if err != nil {
		eng.Close()
		return fmt.Errorf("failed to render highlighted HTML: %w", err)
	}
	if err := finish(ctx, eng); err != nil {
		return err
	}

	if highlightOut != "" {
		if err := os.WriteFile(highlightOut, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
	} else {
		_, _ = fmt.Fprintln(os.Stdout, output)
	}

	_, _ = fmt.Fprintf(os.Stderr, "Highlighted %d of %d annotations\n", eng.Highlighted(), len(eng.Annotations()))
	if cfg.Verbose {
		p := observability.NewPrinter(os.Stderr)
		p.PrintScores(eng.Scores())
		p.PrintLegend()
		if jd != nil {
			p.PrintSections(jd.Sections)
		}
		p.PrintAnnotations(eng.Annotations())
		p.PrintSaveState(eng.SaveState(), eng.SaveError())
	}
	return nil
}

// loadJobDescription reads or fetches the description. It returns nil when neither source is set.
func loadJobDescription(ctx context.Context, path, url string, useBrowser, verbose bool) (*fetch.JobDescription, error) {
	switch {
	case path != "":
		return fetch.ReadJobDescription(path)
	case url != "":
		opts := fetch.DefaultOptions()
		opts.UseBrowser = useBrowser
		opts.Verbose = verbose
		jd, err := fetch.FetchJobDescription(ctx, url, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch job description: %w", err)
		}
		return jd, nil
	default:
		return nil, nil
	}
}
