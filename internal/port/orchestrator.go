// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-13
// Last Modified: 2026-10-17

package port

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/similigh/autoport/internal/core/config"
	"github.com/similigh/autoport/internal/core/logging"
	"github.com/similigh/autoport/internal/core/messages"
	"github.com/similigh/autoport/internal/integrations/git"
	"github.com/similigh/autoport/internal/integrations/github"
)

// State is a step of the per-event state machine.
type State int

const (
	// StateIdle is the state before any work, and of skipped events.
	StateIdle State = iota
	// StateTargetsResolved means the port labels yielded at least one target.
	StateTargetsResolved
	// StateWorkspaceReady means the clone exists and the committer is set.
	StateWorkspaceReady
	// StateAttempting means targets are being ported one at a time.
	StateAttempting
	// StateCleanedUp means the workspace has been removed.
	StateCleanedUp
)

// String returns the state's log name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTargetsResolved:
		return "targets-resolved"
	case StateWorkspaceReady:
		return "workspace-ready"
	case StateAttempting:
		return "attempting"
	case StateCleanedUp:
		return "cleaned-up"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the terminal state of one target's attempt.
type Outcome int

const (
	// OutcomeSucceeded means a port pull request was opened.
	OutcomeSucceeded Outcome = iota
	// OutcomeConflicted means the cherry-pick conflicted; the branch was pushed for manual resolution.
	OutcomeConflicted
	// OutcomeMissingTarget means the target branch does not exist on the remote.
	OutcomeMissingTarget
	// OutcomeNoDiff means the target already contains the change.
	OutcomeNoDiff
	// OutcomeFailed covers every unclassified failure.
	OutcomeFailed
)

// String returns the outcome's log name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeConflicted:
		return "conflicted"
	case OutcomeMissingTarget:
		return "missing-target"
	case OutcomeNoDiff:
		return "no-diff"
	default:
		return "failed"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Attempt records how porting onto one target ended.
type Attempt struct {
	Target         string  `json:"target"`
	Outcome        Outcome `json:"outcome"`
	PortBranch     string  `json:"port_branch,omitempty"`
	PullRequestURL string  `json:"pull_request_url,omitempty"`
	Err            error   `json:"-"`
}

// Result summarizes the handling of one event.
type Result struct {
	Number        int       `json:"number"`
	Skipped       bool      `json:"skipped"`
	SkipReason    string    `json:"skip_reason,omitempty"`
	State         State     `json:"state"`
	Attempts      []Attempt `json:"attempts,omitempty"`
	LabelsApplied []string  `json:"labels_applied,omitempty"`
}

// PullRequestEvent is the subset of a pull_request webhook autoport reads.
type PullRequestEvent struct {
	Action         string
	Owner          string
	Repo           string
	Number         int
	Merged         bool
	BaseRef        string
	MergeCommitSHA string
	Sender         string
	SenderType     string
	InstallationID int64
}

// Request returns the port request described by the event.
func (ev PullRequestEvent) Request() Request {
	return Request{
		Owner:          ev.Owner,
		Repo:           ev.Repo,
		Number:         ev.Number,
		MergeCommitSHA: ev.MergeCommitSHA,
		Sender:         ev.Sender,
		InstallationID: ev.InstallationID,
	}
}

// ClientFactory returns an API client acting as the given installation.
type ClientFactory func(ctx context.Context, installationID int64) (API, error)

// Dependencies holds everything the orchestrator needs to build engines.
type Dependencies struct {
	Clients        ClientFactory
	Tokens         TokenIssuer
	Runner         git.Runner
	Git            config.GitConfig
	RepoConfigPath string
}

// Orchestrator handles pull_request events.
type Orchestrator struct {
	deps  Dependencies
	base  logr.Logger
	locks *RepoLocks
}

// NewOrchestrator creates an Orchestrator. base is the process logger; each
// event gets its own redacting logger on top of it.
func NewOrchestrator(deps Dependencies, base logr.Logger) *Orchestrator {
	if deps.RepoConfigPath == "" {
		deps.RepoConfigPath = config.DefaultRepoConfigPath
	}
	return &Orchestrator{
		deps:  deps,
		base:  base,
		locks: NewRepoLocks(),
	}
}

// Handle dispatches ev by action.
func (o *Orchestrator) Handle(ctx context.Context, ev PullRequestEvent) (*Result, error) {
	switch ev.Action {
	case "closed":
		return o.HandlePullRequestClosed(ctx, ev)
	case "opened", "reopened":
		return o.HandlePullRequestOpened(ctx, ev)
	default:
		return skipped(ev, fmt.Sprintf("action %q is not handled", ev.Action)), nil
	}
}

// HandlePullRequestClosed ports a merged pull request onto every target named
// by its labels. Per-target failures are reported as comments and do not stop
// the remaining targets; the returned error is non-nil only when the event
// as a whole could not be processed.
func (o *Orchestrator) HandlePullRequestClosed(ctx context.Context, ev PullRequestEvent) (_ *Result, err error) {
	log := logging.New(o.base, ev.InstallationID)
	// mark repo coordinates as sensitive
	log.AddSecret(ev.Owner, ev.Repo)
	defer func() { err = log.RedactError(err) }()

	if !ev.Merged {
		return skipped(ev, "pull request was closed without merging"), nil
	}

	api, err := o.deps.Clients(ctx, ev.InstallationID)
	if err != nil {
		log.Error(err, "Failed to create installation client")
		return nil, fmt.Errorf("failed to create installation client: %w", err)
	}

	r := &run{
		ev:     ev,
		log:    log,
		engine: NewEngine(ev.Request(), api, o.deps.Tokens, o.deps.Runner, log, o.deps.Git),
		result: &Result{Number: ev.Number, State: StateIdle},
	}

	targets, err := r.engine.ResolveTargetBranches(ctx)
	if err != nil {
		log.Error(err, "Failed to resolve target branches")
		r.comment(ctx, messages.Get(messages.CommentPortRequestFailed))
		return r.result, err
	}
	if len(targets) == 0 {
		return skipped(ev, "no port labels on pull request"), nil
	}
	log.AddSecret(targets...)
	r.transition(StateTargetsResolved)

	unlock, err := o.locks.Lock(ctx, r.engine.WorkspacePath())
	if err != nil {
		log.Error(err, "Gave up waiting for repository lock")
		r.comment(ctx, messages.Get(messages.CommentPortRequestFailed))
		return r.result, fmt.Errorf("failed to acquire repository lock: %w", err)
	}
	defer unlock()

	defer func() {
		log.Info("Cleaning up")
		r.engine.CleanupWorkspace(context.WithoutCancel(ctx))
		r.transition(StateCleanedUp)
	}()

	remaining, err := r.setup(ctx, targets)
	if err != nil {
		return r.result, err
	}

	if len(remaining) > 0 {
		r.transition(StateAttempting)
	}
	for _, target := range remaining {
		r.report(ctx, r.attempt(ctx, target))
	}
	return r.result, nil
}

// HandlePullRequestOpened labels a new pull request with the port targets
// configured for its base branch.
func (o *Orchestrator) HandlePullRequestOpened(ctx context.Context, ev PullRequestEvent) (_ *Result, err error) {
	log := logging.New(o.base, ev.InstallationID)
	log.AddSecret(ev.Owner, ev.Repo)
	defer func() { err = log.RedactError(err) }()

	if isBotAuthor(ev.Sender, ev.SenderType) {
		return skipped(ev, "pull request opened by a bot"), nil
	}

	api, err := o.deps.Clients(ctx, ev.InstallationID)
	if err != nil {
		log.Error(err, "Failed to create installation client")
		return nil, fmt.Errorf("failed to create installation client: %w", err)
	}

	data, err := api.GetFileContent(ctx, ev.Owner, ev.Repo, o.deps.RepoConfigPath, "")
	if err != nil && !errors.Is(err, github.ErrNotFound) {
		log.Error(err, "Failed to load repository config")
		return nil, err
	}
	repoCfg, err := config.ParseRepoConfig(data)
	if err != nil {
		log.Error(err, "Invalid repository config")
		return nil, err
	}

	targets := repoCfg.TargetsFor(ev.BaseRef)
	if len(targets) == 0 {
		return skipped(ev, "no port targets configured for base branch"), nil
	}

	labels := make([]string, 0, len(targets))
	for _, t := range targets {
		labels = append(labels, messages.Get(messages.PortLabel, t))
	}
	if err := api.AddLabels(ctx, ev.Owner, ev.Repo, ev.Number, labels); err != nil {
		log.Error(err, "Failed to apply port labels")
		return nil, err
	}
	log.Info("Applied port labels", "count", len(labels))

	return &Result{Number: ev.Number, State: StateIdle, LabelsApplied: labels}, nil
}

// run is the state of one closed-event being processed.
type run struct {
	ev     PullRequestEvent
	log    *logging.Logger
	engine *Engine
	result *Result
}

func (r *run) transition(next State) {
	r.log.V(1).Info("State transition", "from", r.result.State.String(), "to", next.String())
	r.result.State = next
}

// setup prepares the shared workspace and returns the targets still to be
// attempted. A missing first target is reported on its own and does not
// abort the others.
func (r *run) setup(ctx context.Context, targets []string) ([]string, error) {
	r.log.Info("Setting up the repository")

	token, err := r.engine.FetchAccessToken(ctx)
	if err == nil {
		err = r.engine.SetupWorkspace(ctx, targets, token)
	}

	var missing *MissingTargetError
	switch {
	case err == nil:
		r.transition(StateWorkspaceReady)
		return targets, nil
	case errors.As(err, &missing) && missing.Branch == targets[0]:
		r.transition(StateWorkspaceReady)
		r.report(ctx, Attempt{Target: targets[0], Outcome: OutcomeMissingTarget, Err: err})
		return targets[1:], nil
	}

	r.log.Error(err, "Failed to set up the repository")
	for _, t := range targets {
		r.result.Attempts = append(r.result.Attempts, Attempt{Target: t, Outcome: OutcomeFailed, Err: r.log.RedactError(err)})
	}
	r.comment(ctx, messages.Get(messages.CommentPortRequestFailed))
	return nil, err
}

// attempt ports onto one target and classifies the result.
func (r *run) attempt(ctx context.Context, target string) Attempt {
	r.log.Info("Creating the port branch from the base", "target", target)
	head, err := r.engine.CreatePortBranch(ctx, target)
	if err == nil {
		r.log.Info("Sending the port pull request", "head", head)
		var url string
		url, err = r.engine.CreatePortRequest(ctx, target, head)
		if err == nil {
			return Attempt{Target: target, Outcome: OutcomeSucceeded, PortBranch: head, PullRequestURL: url}
		}
	}
	return classify(target, err)
}

func classify(target string, err error) Attempt {
	var (
		conflict *ConflictError
		missing  *MissingTargetError
		noDiff   *NoDiffError
	)
	switch {
	case errors.As(err, &conflict):
		return Attempt{Target: target, Outcome: OutcomeConflicted, PortBranch: conflict.PortBranch, Err: err}
	case errors.As(err, &missing):
		return Attempt{Target: target, Outcome: OutcomeMissingTarget, Err: err}
	case errors.As(err, &noDiff):
		return Attempt{Target: target, Outcome: OutcomeNoDiff, Err: err}
	default:
		return Attempt{Target: target, Outcome: OutcomeFailed, Err: err}
	}
}

// report records the attempt and posts exactly one comment for it. The
// recorded error is redacted since it leaves the event's logger.
func (r *run) report(ctx context.Context, a Attempt) {
	recorded := a
	recorded.Err = r.log.RedactError(a.Err)
	r.result.Attempts = append(r.result.Attempts, recorded)

	var body string
	switch a.Outcome {
	case OutcomeSucceeded:
		body = messages.Get(messages.CommentPortRequest, r.ev.Sender, a.Target, a.PullRequestURL)
	case OutcomeConflicted:
		r.log.Warn(messages.Get(messages.LogCherryPickFailed), "target", a.Target)
		body = messages.Get(messages.CommentCherryPickFailed, r.ev.Sender, a.PortBranch, r.ev.MergeCommitSHA)
	case OutcomeMissingTarget:
		r.log.Warn(messages.Get(messages.LogMissingTargetBranch), "target", a.Target)
		body = messages.Get(messages.CommentMissingTargetBranch, a.Target)
	case OutcomeNoDiff:
		r.log.Warn(messages.Get(messages.LogNoDiff), "target", a.Target)
		body = messages.Get(messages.CommentNoDiff, a.Target)
	default:
		r.log.Error(a.Err, "Port failed", "target", a.Target)
		body = messages.Get(messages.CommentPortTargetFailed, a.Target)
	}
	r.comment(ctx, body)
}

func (r *run) comment(ctx context.Context, body string) {
	if err := r.engine.CommentOnPullRequest(ctx, r.ev.Number, body); err != nil {
		r.log.Error(err, "Failed to comment on pull request")
	}
}

func skipped(ev PullRequestEvent, reason string) *Result {
	return &Result{Number: ev.Number, Skipped: true, SkipReason: reason, State: StateIdle}
}

// isBotAuthor reports whether the sender is an App or bot account.
func isBotAuthor(login, senderType string) bool {
	return strings.EqualFold(senderType, "Bot") || strings.HasSuffix(login, "[bot]")
}
