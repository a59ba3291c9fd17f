// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-16
// Last Modified: 2026-10-17

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/similigh/autoport/internal/port"
	"github.com/similigh/autoport/internal/webhook"
)

var (
	eventFile  string
	jsonOutput bool
)

var portCmd = &cobra.Command{
	Use:   "port",
	Short: "Handle a single pull_request event payload",
	Long: `Handle one pull_request event read from a webhook payload file, such as
$GITHUB_EVENT_PATH inside a workflow run. Without --event the path is taken
from GITHUB_EVENT_PATH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runPort(ctx)
	},
}

func init() {
	rootCmd.AddCommand(portCmd)
	portCmd.Flags().StringVar(&eventFile, "event", "", "Path to pull_request event JSON")
	portCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
}

func runPort(ctx context.Context) error {
	path := eventFile
	if path == "" {
		path = os.Getenv("GITHUB_EVENT_PATH")
	}
	if path == "" {
		return fmt.Errorf("--event is required")
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read event file: %w", err)
	}
	ev, err := webhook.ParsePullRequestEvent(payload)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := port.NewOrchestrator(deps, newLogger()).Handle(ctx, ev)
	if res != nil {
		printResult(res)
	}
	return err
}

func printResult(res *port.Result) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		}
		return
	}

	if res.Skipped {
		fmt.Printf("Skipped #%d: %s\n", res.Number, res.SkipReason)
		return
	}
	for _, label := range res.LabelsApplied {
		fmt.Printf("Labeled #%d with %s\n", res.Number, label)
	}
	for _, a := range res.Attempts {
		switch a.Outcome {
		case port.OutcomeSucceeded:
			fmt.Printf("%-20s %-15s %s\n", a.Target, a.Outcome, a.PullRequestURL)
		default:
			fmt.Printf("%-20s %-15s %v\n", a.Target, a.Outcome, a.Err)
		}
	}
}
