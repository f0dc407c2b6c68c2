package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"linkvault/internal/loader"
	"linkvault/internal/storage"
)

var (
	statusJSON   bool
	historyLimit int
	historyJSON  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current or last batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loadApp(cmd.Context(), loader.Options{})
		if err != nil {
			return err
		}
		defer closeApp(app)

		state, err := app.Runner.State(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read batch state: %w", err)
		}
		if statusJSON {
			return writeJSON(state)
		}
		if state == nil {
			fmt.Println("No batch has run yet.")
			return nil
		}
		printState(os.Stdout, state)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently processed links, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loadApp(cmd.Context(), loader.Options{})
		if err != nil {
			return err
		}
		defer closeApp(app)

		entries, err := app.Runner.History(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		if historyJSON {
			return writeJSON(entries)
		}
		printHistory(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw state as JSON")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, fmt.Sprintf("Number of entries (max %d)", storage.MaxHistory))
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print entries as JSON")
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
