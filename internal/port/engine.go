// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-17

// Package port cherry-picks merged pull requests onto other branches and
// opens follow-up pull requests for them.
package port

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/similigh/autoport/internal/core/config"
	"github.com/similigh/autoport/internal/core/logging"
	"github.com/similigh/autoport/internal/core/messages"
	"github.com/similigh/autoport/internal/integrations/git"
	"github.com/similigh/autoport/internal/integrations/github"
)

// LabelPrefix marks a label as naming a port target.
const LabelPrefix = "port:"

// API is the subset of the GitHub API autoport uses.
type API interface {
	ListLabels(ctx context.Context, org, repo string, number int) ([]string, error)
	AddLabels(ctx context.Context, org, repo string, number int, labels []string) error
	CreatePullRequest(ctx context.Context, org, repo string, pr github.NewPullRequest) (string, error)
	CreateComment(ctx context.Context, org, repo string, number int, body string) error
	GetCommitAuthor(ctx context.Context, org, repo, sha string) (string, string, error)
	GetFileContent(ctx context.Context, org, repo, path, ref string) ([]byte, error)
}

// TokenIssuer exchanges an installation ID for an access token, reporting
// the HTTP status of the exchange.
type TokenIssuer interface {
	CreateInstallationToken(ctx context.Context, installationID int64) (string, int, error)
}

// Request is the immutable view of the pull request being ported.
type Request struct {
	Owner          string
	Repo           string
	Number         int
	MergeCommitSHA string
	Sender         string
	InstallationID int64
}

// Engine performs the git and API work for porting one pull request.
// An Engine handles exactly one event and is not safe for concurrent use.
type Engine struct {
	req      Request
	api      API
	tokens   TokenIssuer
	runner   git.Runner
	log      *logging.Logger
	settings config.GitConfig

	// home is the directory commands run from outside the workspace; dir is
	// the current working context.
	home string
	dir  string

	targets  []string
	resolved bool
}

// NewEngine creates an Engine for req. A relative workspace root is resolved
// against the process working directory.
func NewEngine(req Request, api API, tokens TokenIssuer, runner git.Runner, log *logging.Logger, settings config.GitConfig) *Engine {
	if abs, err := filepath.Abs(settings.WorkspaceRoot); err == nil {
		settings.WorkspaceRoot = abs
	}
	return &Engine{
		req:      req,
		api:      api,
		tokens:   tokens,
		runner:   runner,
		log:      log,
		settings: settings,
		home:     settings.WorkspaceRoot,
		dir:      settings.WorkspaceRoot,
	}
}

// WorkspacePath is the clone location for the request's repository. Owner
// and repo are separate path elements so distinct repositories never share it.
func (e *Engine) WorkspacePath() string {
	return filepath.Join(e.settings.WorkspaceRoot, e.req.Owner, e.req.Repo)
}

// Dir returns the directory commands currently run in.
func (e *Engine) Dir() string {
	return e.dir
}

// FetchAccessToken obtains an installation token for git operations and
// registers it as a secret.
func (e *Engine) FetchAccessToken(ctx context.Context) (string, error) {
	token, status, err := e.tokens.CreateInstallationToken(ctx, e.req.InstallationID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenFetch, err)
	}
	if status != http.StatusCreated || token == "" {
		return "", fmt.Errorf("%w: unexpected status %d", ErrTokenFetch, status)
	}
	e.log.AddSecret(token)
	return token, nil
}

// SetupWorkspace clones the repository, adds the upstream remote, configures
// the committer and fetches the first target branch.
func (e *Engine) SetupWorkspace(ctx context.Context, targets []string, token string) error {
	url := e.cloneURL(token)
	e.log.AddSecret(url)

	if err := os.MkdirAll(e.home, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace root: %w", err)
	}

	path := e.WorkspacePath()
	if _, err := os.Stat(path); err == nil {
		e.log.Warn("Removing stale workspace")
		if _, err := e.run(ctx, "rm -rf "+quote(path)); err != nil {
			return fmt.Errorf("failed to remove stale workspace: %w", err)
		}
	}

	if _, err := e.run(ctx, "git clone "+quote(url)+" "+quote(path)); err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	e.dir = path

	if _, err := e.run(ctx, "git remote add upstream "+quote(url)); err != nil {
		return fmt.Errorf("failed to add upstream remote: %w", err)
	}
	if err := e.configureCommitter(ctx); err != nil {
		return err
	}

	if len(targets) == 0 {
		return nil
	}
	return e.fetch(ctx, targets[0])
}

// CreatePortBranch cherry-picks the merge commit onto a new branch cut from
// target and pushes it. It returns the new branch name.
func (e *Engine) CreatePortBranch(ctx context.Context, target string) (string, error) {
	head := PortBranchName(target, e.req.Number)

	if err := e.fetch(ctx, target); err != nil {
		return "", err
	}
	if _, err := e.run(ctx, "git checkout "+quote("upstream/"+target)); err != nil {
		return "", fmt.Errorf("failed to check out %s: %w", target, err)
	}
	if _, err := e.run(ctx, "git checkout -b "+quote(head)); err != nil {
		return "", fmt.Errorf("failed to create branch %s: %w", head, err)
	}

	if _, err := e.run(ctx, "git cherry-pick "+quote(e.req.MergeCommitSHA)); err != nil {
		switch git.KindOf(err) {
		case git.CherryPickConflict:
			// The branch is pushed at the target's tip so a human can pick it up.
			if _, pushErr := e.run(ctx, "git push upstream "+quote(head)); pushErr != nil {
				e.abortCherryPick(ctx)
				return "", fmt.Errorf("failed to push conflicted branch %s: %w", head, pushErr)
			}
			e.abortCherryPick(ctx)
			return "", &ConflictError{PortBranch: head, Err: err}
		case git.CherryPickEmpty:
			e.abortCherryPick(ctx)
			return "", &NoDiffError{Branch: target, Err: err}
		}
		e.abortCherryPick(ctx)
		return "", fmt.Errorf("failed to cherry-pick %s: %w", e.req.MergeCommitSHA, err)
	}

	if _, err := e.run(ctx, "git push upstream "+quote(head)); err != nil {
		return "", fmt.Errorf("failed to push %s: %w", head, err)
	}
	return head, nil
}

// CreatePortRequest opens a pull request from head into target and returns its URL.
func (e *Engine) CreatePortRequest(ctx context.Context, target, head string) (string, error) {
	return e.api.CreatePullRequest(ctx, e.req.Owner, e.req.Repo, github.NewPullRequest{
		Title: messages.Get(messages.PortRequestTitle, e.req.Number, target),
		Head:  head,
		Base:  target,
		Body:  messages.Get(messages.PortRequestBody, e.req.Number, target),
	})
}

// CommentOnPullRequest posts body on the given pull request.
func (e *Engine) CommentOnPullRequest(ctx context.Context, number int, body string) error {
	return e.api.CreateComment(ctx, e.req.Owner, e.req.Repo, number, body)
}

// CleanupWorkspace restores the working context and removes the workspace if
// it exists. It is idempotent and only logs failures.
func (e *Engine) CleanupWorkspace(ctx context.Context) {
	e.dir = e.home

	path := e.WorkspacePath()
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			e.log.Error(err, "Failed to inspect workspace")
		}
		return
	}
	if _, err := e.run(ctx, "rm -rf "+quote(path)); err != nil {
		e.log.Error(err, "Failed to remove workspace")
	}
}

// ResolveTargetBranches returns the targets named by the pull request's
// port labels. The result is memoized.
func (e *Engine) ResolveTargetBranches(ctx context.Context) ([]string, error) {
	if e.resolved {
		return e.targets, nil
	}

	labels, err := e.api.ListLabels(ctx, e.req.Owner, e.req.Repo, e.req.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target branches: %w", err)
	}

	e.targets = TargetsFromLabels(labels)
	e.resolved = true
	return e.targets, nil
}

// TargetsFromLabels extracts branch names from port:<branch> labels,
// preserving case and first-seen order and dropping duplicates.
func TargetsFromLabels(labels []string) []string {
	targets := []string{}
	seen := make(map[string]struct{})
	for _, label := range labels {
		branch, ok := strings.CutPrefix(label, LabelPrefix)
		if !ok || branch == "" {
			continue
		}
		if _, dup := seen[branch]; dup {
			continue
		}
		seen[branch] = struct{}{}
		targets = append(targets, branch)
	}
	return targets
}

// PortBranchName is the name of the branch carrying a port of PR number onto target.
func PortBranchName(target string, number int) string {
	return messages.Get(messages.PortBranchName, target, number)
}

func (e *Engine) fetch(ctx context.Context, target string) error {
	if _, err := e.run(ctx, "git fetch upstream "+quote(target)); err != nil {
		if git.KindOf(err) == git.MissingRemoteRef {
			return &MissingTargetError{Branch: target, Err: err}
		}
		return fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	return nil
}

func (e *Engine) configureCommitter(ctx context.Context) error {
	name, email := e.settings.BotName, e.settings.BotEmail
	if e.req.MergeCommitSHA != "" {
		authorName, authorEmail, err := e.api.GetCommitAuthor(ctx, e.req.Owner, e.req.Repo, e.req.MergeCommitSHA)
		switch {
		case err != nil:
			e.log.V(1).Info("Falling back to bot identity", "error", err)
		case authorName != "" && authorEmail != "":
			name, email = authorName, authorEmail
		}
	}

	if _, err := e.run(ctx, "git config user.name "+quote(name)); err != nil {
		return fmt.Errorf("failed to configure committer name: %w", err)
	}
	if _, err := e.run(ctx, "git config user.email "+quote(email)); err != nil {
		return fmt.Errorf("failed to configure committer email: %w", err)
	}
	return nil
}

func (e *Engine) abortCherryPick(ctx context.Context) {
	if _, err := e.run(ctx, "git cherry-pick --abort"); err != nil {
		e.log.V(1).Info("Cherry-pick abort failed", "error", err)
	}
}

func (e *Engine) cloneURL(token string) string {
	if tmpl := e.settings.CloneURLTemplate; tmpl != "" {
		return fmt.Sprintf(tmpl, token, e.req.Owner, e.req.Repo)
	}
	return messages.Get(messages.CloneURL, token, e.req.Owner, e.req.Repo)
}

func (e *Engine) run(ctx context.Context, cmdline string) (string, error) {
	e.log.V(1).Info("Running command", "command", cmdline, "dir", e.dir)
	out, err := e.runner.Run(ctx, e.dir, cmdline)
	if err != nil {
		var execErr *git.ExecError
		if errors.As(err, &execErr) {
			e.log.V(1).Info("Command failed", "stderr", execErr.StdErr)
		}
		return "", err
	}
	return out, nil
}

// quote makes s a single word for the runner's shell-style tokenizer.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\#|&;<>()$`*?[]{}~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
