package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linkvault/internal/config"
	"linkvault/internal/loader"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve batch state and history feeds over HTTP",
	Long: `Serve /feed.rss, /feed.atom, /feed.json, /state and /health. The config
file is watched; batch settings and the cached vault inventory are refreshed
when it changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, logger, err := loadApp(ctx, loader.Options{Serve: true})
		if err != nil {
			return err
		}
		defer closeApp(app)

		ctx, stop := interruptible(ctx, app.Runner)
		defer stop()

		fmt.Printf("Serving on port %s. Press Ctrl+C to stop.\n", app.Config.Server.Port)

		if err := config.Watch(ctx, configPath, app.Reload, logger); err != nil {
			logger.Warn("Config reload disabled", "error", err)
		}
		<-ctx.Done()
		return nil
	},
}
