package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"

	"linkvault/internal/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func statusColor(s types.URLStatus) func(a ...any) string {
	switch s {
	case types.StatusDone:
		return green
	case types.StatusReview, types.StatusSkipped, types.StatusCancelled:
		return yellow
	case types.StatusFailed:
		return red
	}
	return gray
}

// progressDisplay prints one line per stage transition.
type progressDisplay struct {
	mu  sync.Mutex
	out io.Writer
}

func newProgressDisplay(out io.Writer) *progressDisplay {
	return &progressDisplay{out: out}
}

func (d *progressDisplay) Progress(url string, status types.URLStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "  %-11s %s\n", statusColor(status)(string(status)), url)
}

func printSummary(w io.Writer, state *types.ProcessingState) {
	fmt.Fprintf(w, "\n%s\n", cyan("=== Batch "+state.BatchID+" ==="))

	for _, res := range state.Results {
		switch res.Status {
		case types.ResultSuccess:
			fmt.Fprintf(w, "%s %s\n    -> %s\n", green("✓"), res.URL, res.NotePath)
		case types.ResultReview:
			fmt.Fprintf(w, "%s %s\n    -> %s %s\n", yellow("?"), res.URL, res.NotePath, gray("("+res.QualityReason+")"))
		case types.ResultSkipped:
			fmt.Fprintf(w, "%s %s %s\n", yellow("-"), res.URL, gray("("+res.SkipReason+")"))
		default:
			fmt.Fprintf(w, "%s %s\n    %s\n", red("✗"), res.URL, res.Error)
			if meta := res.ErrorMeta; meta != nil {
				hint := meta.Message
				if meta.IsRetryable {
					hint += " Run `linkvault retry` to try again."
				}
				fmt.Fprintf(w, "    %s\n", gray(hint))
			}
		}
	}

	printCounts(w, state)
	if state.Error != "" {
		fmt.Fprintf(w, "%s %s\n", red("Batch error:"), state.Error)
	}
}

func printCounts(w io.Writer, state *types.ProcessingState) {
	counts := state.Counts()
	order := []types.URLStatus{
		types.StatusDone, types.StatusReview, types.StatusSkipped, types.StatusFailed, types.StatusCancelled,
	}
	fmt.Fprintf(w, "\n%d links:", len(state.URLs))
	for _, s := range order {
		if n := counts[s]; n > 0 {
			fmt.Fprintf(w, " %s", statusColor(s)(fmt.Sprintf("%d %s", n, s)))
		}
	}
	fmt.Fprintln(w)
}

func printState(w io.Writer, state *types.ProcessingState) {
	label := "finished"
	switch {
	case state.Active:
		label = "running"
	case state.Cancelled:
		label = "cancelled"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", cyan("Batch"), state.BatchID, label)
	fmt.Fprintf(w, "  Started:  %s\n", state.StartedAt.Format("2006-01-02 15:04:05"))
	if state.FinishedAt != nil {
		fmt.Fprintf(w, "  Finished: %s (%s)\n", state.FinishedAt.Format("2006-01-02 15:04:05"),
			state.FinishedAt.Sub(state.StartedAt).Round(time.Second))
	}

	if state.Active {
		urls := append([]string(nil), state.URLs...)
		sort.SliceStable(urls, func(i, j int) bool {
			return !state.URLStatuses[urls[i]].Terminal() && state.URLStatuses[urls[j]].Terminal()
		})
		for _, u := range urls {
			s := state.URLStatuses[u]
			fmt.Fprintf(w, "  %-11s %s\n", statusColor(s)(string(s)), u)
		}
	}
	printCounts(w, state)
	if state.Error != "" {
		fmt.Fprintf(w, "%s %s\n", red("Batch error:"), state.Error)
	}
}

func printHistory(w io.Writer, entries []types.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history yet.")
		return
	}
	for _, e := range entries {
		res := e.Result
		detail := res.NotePath
		switch res.Status {
		case types.ResultSkipped:
			detail = res.SkipReason
		case types.ResultFailed:
			detail = string(res.ErrorCategory) + ": " + res.Error
		}
		fmt.Fprintf(w, "%s  %-8s %s\n    %s\n", gray(e.CompletedAt.Format("2006-01-02 15:04")),
			historyColor(res.Status)(string(res.Status)), res.URL, detail)
	}
}

func historyColor(s types.ResultStatus) func(a ...any) string {
	switch s {
	case types.ResultSuccess:
		return green
	case types.ResultFailed:
		return red
	}
	return yellow
}
