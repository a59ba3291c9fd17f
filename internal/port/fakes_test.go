// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-14
// Last Modified: 2026-10-17

package port

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-logr/logr"

	"github.com/similigh/autoport/internal/core/config"
	"github.com/similigh/autoport/internal/core/logging"
	"github.com/similigh/autoport/internal/integrations/git"
	"github.com/similigh/autoport/internal/integrations/github"
)

const (
	stderrMissingRef = "fatal: couldn't find remote ref nope"
	stderrConflict   = "error: could not apply abc123... change\n" +
		"hint: after resolving the conflicts, mark the corrected paths"
	stderrEmpty = "The previous cherry-pick is now empty, possibly due to conflict resolution."
)

type call struct {
	Dir string
	Cmd string
}

// fakeRunner records command lines. A clone materializes its destination
// directory and rm -rf removes it, so cleanup sees a real filesystem.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []call
	failures map[string]string

	// branch is the last branch created with checkout -b.
	branch         string
	branchFailures map[string]map[string]string

	// before, if set, runs ahead of every command outside the lock.
	before func(cmdline string)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		failures:       make(map[string]string),
		branchFailures: make(map[string]map[string]string),
	}
}

// failOn makes every command starting with prefix fail with stderr.
func (f *fakeRunner) failOn(prefix, stderr string) {
	f.failures[prefix] = stderr
}

// failOnBranch is like failOn but only while branch is checked out.
func (f *fakeRunner) failOnBranch(branch, prefix, stderr string) {
	if f.branchFailures[branch] == nil {
		f.branchFailures[branch] = make(map[string]string)
	}
	f.branchFailures[branch][prefix] = stderr
}

func (f *fakeRunner) Run(_ context.Context, dir, cmdline string) (string, error) {
	if f.before != nil {
		f.before(cmdline)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Dir: dir, Cmd: cmdline})

	fields := strings.Fields(cmdline)
	for prefix, stderr := range f.failures {
		if strings.HasPrefix(cmdline, prefix) {
			return "", &git.ExecError{Args: fields, Err: errors.New("exit status 1"), StdErr: stderr}
		}
	}
	for prefix, stderr := range f.branchFailures[f.branch] {
		if strings.HasPrefix(cmdline, prefix) {
			return "", &git.ExecError{Args: fields, Err: errors.New("exit status 1"), StdErr: stderr}
		}
	}

	switch {
	case strings.HasPrefix(cmdline, "git checkout -b "):
		f.branch = fields[len(fields)-1]
	case strings.HasPrefix(cmdline, "git clone "):
		if err := os.MkdirAll(fields[len(fields)-1], 0o755); err != nil {
			return "", err
		}
	case strings.HasPrefix(cmdline, "rm -rf "):
		if err := os.RemoveAll(fields[len(fields)-1]); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Cmd)
	}
	return out
}

func (f *fakeRunner) count(prefix string) int {
	n := 0
	for _, cmd := range f.commands() {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

type comment struct {
	Number int
	Body   string
}

// fakeAPI is an in-memory API.
type fakeAPI struct {
	mu sync.Mutex

	labels       []string
	listErr      error
	files        map[string][]byte
	authorName   string
	authorEmail  string
	prErr        map[string]error
	commentErr   error
	addLabelsErr error

	comments     []comment
	pullRequests []github.NewPullRequest
	addedLabels  []string
}

func (f *fakeAPI) ListLabels(context.Context, string, string, int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.labels, nil
}

func (f *fakeAPI) AddLabels(_ context.Context, _, _ string, _ int, labels []string) error {
	if f.addLabelsErr != nil {
		return f.addLabelsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedLabels = append(f.addedLabels, labels...)
	return nil
}

func (f *fakeAPI) CreatePullRequest(_ context.Context, org, repo string, pr github.NewPullRequest) (string, error) {
	if err := f.prErr[pr.Base]; err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullRequests = append(f.pullRequests, pr)
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", org, repo, 100+len(f.pullRequests)), nil
}

func (f *fakeAPI) CreateComment(_ context.Context, _, _ string, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, comment{Number: number, Body: body})
	return f.commentErr
}

func (f *fakeAPI) GetCommitAuthor(context.Context, string, string, string) (string, string, error) {
	return f.authorName, f.authorEmail, nil
}

func (f *fakeAPI) GetFileContent(_ context.Context, _, _, path, _ string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, github.ErrNotFound)
	}
	return data, nil
}

// fakeTokens issues a fixed token with a fixed status.
type fakeTokens struct {
	token  string
	status int
	err    error
	calls  atomic.Int32
}

func (f *fakeTokens) CreateInstallationToken(context.Context, int64) (string, int, error) {
	f.calls.Add(1)
	return f.token, f.status, f.err
}

func testGitConfig(t *testing.T) config.GitConfig {
	t.Helper()
	return config.GitConfig{
		WorkspaceRoot: t.TempDir(),
		BotName:       "autoport[bot]",
		BotEmail:      "autoport[bot]@users.noreply.github.com",
	}
}

func testRequest() Request {
	return Request{
		Owner:          "acme",
		Repo:           "widgets",
		Number:         123,
		MergeCommitSHA: "abc123",
		Sender:         "octocat",
		InstallationID: 42,
	}
}

func newTestEngine(t *testing.T, api *fakeAPI, runner *fakeRunner) *Engine {
	t.Helper()
	log := logging.New(logr.Discard(), 42)
	return NewEngine(testRequest(), api, &fakeTokens{token: "ghs_test", status: 201}, runner, log, testGitConfig(t))
}
