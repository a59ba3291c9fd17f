// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-16
// Last Modified: 2026-10-17

package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/similigh/autoport/internal/port"
	"github.com/similigh/autoport/internal/webhook"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long: `Run an HTTP server that receives GitHub pull_request webhooks on /webhook.
Merged pull requests are ported; newly opened ones are labeled from the
repository's trigger config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Server.Addr = addrFlag
	}

	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}

	logger := newLogger()
	orchestrator := port.NewOrchestrator(deps, logger)
	handler := webhook.NewHandler(cfg.GitHub.WebhookSecret, orchestrator, logger, cfg.Server.EventTimeout)
	if cfg.GitHub.WebhookSecret == "" {
		log.Printf("[autoport] Warning: no webhook secret configured, signatures are not verified")
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[autoport] Listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[autoport] Shutting down, waiting for in-flight events")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[autoport] Shutdown error: %v", err)
	}
	handler.Wait()
	return nil
}
