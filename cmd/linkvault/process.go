package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"linkvault/internal/core"
	"linkvault/internal/loader"
	"linkvault/internal/sources"
	"linkvault/internal/types"
)

const shutdownTimeout = 30 * time.Second

var (
	linkFiles    []string
	feedURLs     []string
	opmlInputs   []string
	maxItems     int
	concurrency  int
	organization string
)

var processCmd = &cobra.Command{
	Use:   "process [urls...]",
	Short: "Process links into vault notes",
	Long: `Process every URL given as an argument, read from --file (one per line,
"-" for stdin), or taken from the items of --feed and --opml subscriptions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		inputs := make([]sources.Input, 0, len(linkFiles)+len(feedURLs)+len(opmlInputs))
		for _, f := range linkFiles {
			inputs = append(inputs, sources.Input{Kind: "file", Value: f})
		}
		for _, f := range feedURLs {
			inputs = append(inputs, sources.Input{Kind: "feed", Value: f})
		}
		for _, o := range opmlInputs {
			kind := "opml_file"
			if sources.ValidURL(o) {
				kind = "opml_url"
			}
			inputs = append(inputs, sources.Input{Kind: kind, Value: o})
		}

		urls, err := sources.Collect(ctx, args, inputs, maxItems)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return errors.New("no URLs to process")
		}

		app, _, err := loadApp(ctx, loader.Options{})
		if err != nil {
			return err
		}
		defer closeApp(app)

		batch := app.Config.Batch
		if concurrency > 0 {
			batch.Concurrency = concurrency
		}
		if organization != "" {
			batch.Organization = organization
		}
		app.Runner.SetBatchConfig(batch)

		return runBatch(ctx, app.Runner, func(ctx context.Context) (*types.ProcessingState, error) {
			return app.Runner.Run(ctx, urls)
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry the retryable failures of the last batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loadApp(cmd.Context(), loader.Options{})
		if err != nil {
			return err
		}
		defer closeApp(app)

		err = runBatch(cmd.Context(), app.Runner, app.Runner.RetryFailed)
		if errors.Is(err, core.ErrNothingToRetry) {
			fmt.Println("Nothing to retry.")
			return nil
		}
		return err
	},
}

func init() {
	processCmd.Flags().StringSliceVarP(&linkFiles, "file", "f", nil, "Read URLs from a file, one per line (\"-\" for stdin)")
	processCmd.Flags().StringSliceVar(&feedURLs, "feed", nil, "Take URLs from an RSS, Atom or JSON feed")
	processCmd.Flags().StringSliceVar(&opmlInputs, "opml", nil, "Take URLs from every feed of an OPML file or URL")
	processCmd.Flags().IntVar(&maxItems, "max-items", sources.DefaultMaxItems, "Maximum items taken from each feed")
	processCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Links processed at once (default from config)")
	processCmd.Flags().StringVar(&organization, "organization", "", "Tag organization mode: freeform or structured")
}

func runBatch(parent context.Context, runner *core.Runner, run func(context.Context) (*types.ProcessingState, error)) error {
	ctx, stop := interruptible(parent, runner)
	defer stop()

	display := newProgressDisplay(os.Stdout)
	runner.Observe(display)
	defer runner.Observe(nil)

	final, err := run(ctx)
	if final != nil {
		printSummary(os.Stdout, final)
	}
	if err != nil {
		return err
	}
	if final != nil && final.Counts()[types.StatusFailed] > 0 {
		return fmt.Errorf("%d links failed", final.Counts()[types.StatusFailed])
	}
	return nil
}
