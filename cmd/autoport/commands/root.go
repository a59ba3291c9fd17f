// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-16
// Last Modified: 2026-10-17

// Package commands implements the autoport CLI.
package commands

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/similigh/autoport/internal/core/config"
	"github.com/similigh/autoport/internal/core/logging"
	"github.com/similigh/autoport/internal/integrations/git"
	"github.com/similigh/autoport/internal/integrations/github"
	"github.com/similigh/autoport/internal/port"
)

var (
	cfgFile   string
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "autoport",
	Short: "Port merged pull requests to other branches",
	Long: `autoport cherry-picks the merge commit of a pull request onto every branch
named by its port:<branch> labels and opens a pull request for each one.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "Log verbosity (1 shows git commands)")
}

// loadConfig finds, loads and validates the service configuration.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	path := config.FindConfigPath(cfgFile)
	switch {
	case path != "":
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case cfgFile != "":
		return nil, fmt.Errorf("config file %s not found", cfgFile)
	default:
		cfg = config.Default()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() logr.Logger {
	return logging.NewStdLogger(os.Stderr, verbosity)
}

// buildDependencies wires the GitHub clients and git runner. App credentials
// take precedence over a static token.
func buildDependencies(ctx context.Context, cfg *config.Config) (port.Dependencies, error) {
	opts := []github.Option{github.WithTimeout(cfg.GitHub.APITimeout)}
	if cfg.GitHub.APIURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.APIURL))
	}

	deps := port.Dependencies{
		Runner:         git.NewExecRunner(cfg.Git.CommandTimeout),
		Git:            cfg.Git,
		RepoConfigPath: cfg.RepoConfigPath,
	}

	if cfg.UsesApp() {
		key, err := cfg.LoadPrivateKey()
		if err != nil {
			return deps, err
		}
		app, err := github.NewAppClient(ctx, cfg.GitHub.AppID, key, opts...)
		if err != nil {
			return deps, fmt.Errorf("failed to create app client: %w", err)
		}
		log.Printf("[autoport] Authenticating as GitHub App %d", cfg.GitHub.AppID)
		deps.Tokens = app
		deps.Clients = func(ctx context.Context, installationID int64) (port.API, error) {
			return app.InstallationClient(ctx, installationID)
		}
		return deps, nil
	}

	client, err := github.NewClient(ctx, cfg.GitHub.Token, opts...)
	if err != nil {
		return deps, fmt.Errorf("failed to create client: %w", err)
	}
	log.Printf("[autoport] Authenticating with a static token")
	deps.Tokens = github.StaticTokenIssuer(cfg.GitHub.Token)
	deps.Clients = func(context.Context, int64) (port.API, error) {
		return client, nil
	}
	return deps, nil
}
