package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"linkvault/internal/config"
	"linkvault/internal/core"
	"linkvault/internal/loader"
	"linkvault/internal/state"
)

var (
	configPath string
	logLevel   string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "linkvault",
	Short: "Turn links into summarized, categorized vault notes",
	Long: `linkvault fetches each URL, summarizes and categorizes it with an LLM,
and files the result as a note in your vault, linked from per-tag hub notes.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(processCmd, retryCmd, statusCmd, historyCmd, serveCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadApp builds the application from the config file. The log level flag
// wins over the configured one.
func loadApp(ctx context.Context, opts loader.Options) (*state.State, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(effectiveLogLevel(logLevel, cfg.App.LogLevel))
	slog.SetDefault(logger)

	app, err := loader.NewLoader(cfg, logger).Initialize(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}

func effectiveLogLevel(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}

// interruptible returns a context that survives the first SIGINT, which
// asks runner to stop between stages, and is cancelled by the second.
func interruptible(parent context.Context, runner *core.Runner) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		if runner.Cancel() {
			fmt.Fprintln(os.Stderr, color.YellowString("\nCancelling after the current steps finish. Press Ctrl+C again to abort."))
		} else {
			cancel()
			return
		}

		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, color.RedString("\nAborting."))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func closeApp(app *state.State) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = app.Close(ctx)
}
