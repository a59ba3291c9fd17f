// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-16
// Last Modified: 2026-10-17

// Package webhook receives GitHub webhook deliveries and hands pull_request
// events to the port orchestrator.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-github/v60/github"
	"github.com/google/uuid"

	"github.com/similigh/autoport/internal/port"
)

// Dispatcher handles a decoded pull_request event.
type Dispatcher interface {
	Handle(ctx context.Context, ev port.PullRequestEvent) (*port.Result, error)
}

// ErrUnsupportedEvent is returned for payloads that are not pull_request events.
var ErrUnsupportedEvent = errors.New("unsupported event")

// Handler is the webhook endpoint. Accepted deliveries are processed in the
// background; the response only acknowledges receipt.
type Handler struct {
	secret     []byte
	dispatcher Dispatcher
	log        logr.Logger
	timeout    time.Duration

	wg sync.WaitGroup
}

// NewHandler creates a Handler. An empty secret disables signature checks.
func NewHandler(secret string, dispatcher Dispatcher, log logr.Logger, timeout time.Duration) *Handler {
	return &Handler{
		secret:     []byte(secret),
		dispatcher: dispatcher,
		log:        log.WithName("webhook"),
		timeout:    timeout,
	}
}

// Routes returns a mux serving the webhook and a health check.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/webhook", h)
	mux.HandleFunc("/healthz", handleHealth)
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.log.Info("Rejected delivery", "reason", err.Error())
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	delivery := github.DeliveryID(r)
	if delivery == "" {
		delivery = uuid.NewString()
	}
	eventType := github.WebHookType(r)
	log := h.log.WithValues("delivery", delivery, "event", eventType)

	switch eventType {
	case "ping":
		writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
		return
	case "pull_request":
	default:
		log.V(1).Info("Ignoring event")
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}

	ev, err := ParsePullRequestEvent(payload)
	if err != nil {
		log.Error(err, "Failed to parse payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.dispatch(log, ev)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "delivery": delivery})
}

// Wait blocks until every dispatched event has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) dispatch(log logr.Logger, ev port.PullRequestEvent) {
	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	log = log.WithValues("action", ev.Action, "number", ev.Number)
	start := time.Now()
	res, err := h.dispatcher.Handle(ctx, ev)
	if err != nil {
		log.Error(err, "Event failed", "elapsed", time.Since(start).String())
		return
	}
	if res != nil && res.Skipped {
		log.V(1).Info("Event skipped", "reason", res.SkipReason)
		return
	}
	log.Info("Event handled", "elapsed", time.Since(start).String())
}

// ParsePullRequestEvent decodes a pull_request webhook payload.
func ParsePullRequestEvent(payload []byte) (port.PullRequestEvent, error) {
	raw, err := github.ParseWebHook("pull_request", payload)
	if err != nil {
		return port.PullRequestEvent{}, fmt.Errorf("failed to parse pull_request payload: %w", err)
	}
	e, ok := raw.(*github.PullRequestEvent)
	if !ok || e.GetPullRequest() == nil || e.GetRepo() == nil {
		return port.PullRequestEvent{}, ErrUnsupportedEvent
	}

	pr := e.GetPullRequest()
	return port.PullRequestEvent{
		Action:         e.GetAction(),
		Owner:          e.GetRepo().GetOwner().GetLogin(),
		Repo:           e.GetRepo().GetName(),
		Number:         pr.GetNumber(),
		Merged:         pr.GetMerged(),
		BaseRef:        pr.GetBase().GetRef(),
		MergeCommitSHA: pr.GetMergeCommitSHA(),
		Sender:         e.GetSender().GetLogin(),
		SenderType:     e.GetSender().GetType(),
		InstallationID: e.GetInstallation().GetID(),
	}, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
