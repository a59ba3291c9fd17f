// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-16

package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v60/github"
)

// ErrNotFound is returned when a requested file or ref does not exist.
var ErrNotFound = errors.New("not found")

// Client wraps the GitHub API client.
type Client struct {
	client *github.Client
	retry  RetryConfig
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title string
	Head  string
	Base  string
	Body  string
}

// ListLabels returns the names of all labels on an issue or pull request.
func (c *Client) ListLabels(ctx context.Context, org, repo string, number int) ([]string, error) {
	type page struct {
		labels []*github.Label
		next   int
	}

	var names []string
	opts := &github.ListOptions{PerPage: 100}
	for {
		p, err := withRetry(ctx, c.retry, "list labels", func() (page, error) {
			labels, resp, err := c.client.Issues.ListLabelsByIssue(ctx, org, repo, number, opts)
			if err != nil {
				return page{}, err
			}
			return page{labels: labels, next: resp.NextPage}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list labels: %w", err)
		}

		for _, l := range p.labels {
			names = append(names, l.GetName())
		}
		if p.next == 0 {
			break
		}
		opts.Page = p.next
	}

	return names, nil
}

// CreateComment posts a comment on an issue.
func (c *Client) CreateComment(ctx context.Context, org, repo string, number int, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("comment body cannot be empty")
	}

	comment := &github.IssueComment{
		Body: github.String(body),
	}
	_, _, err := c.client.Issues.CreateComment(ctx, org, repo, number, comment)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// AddLabels adds labels to an issue.
func (c *Client) AddLabels(ctx context.Context, org, repo string, number int, labels []string) error {
	if len(labels) == 0 {
		return fmt.Errorf("labels cannot be empty")
	}

	_, err := withRetry(ctx, c.retry, "add labels", func() ([]*github.Label, error) {
		applied, _, err := c.client.Issues.AddLabelsToIssue(ctx, org, repo, number, labels)
		return applied, err
	})
	if err != nil {
		return fmt.Errorf("failed to add labels: %w", err)
	}
	return nil
}

// CreatePullRequest opens a pull request and returns its HTML URL.
func (c *Client) CreatePullRequest(ctx context.Context, org, repo string, pr NewPullRequest) (string, error) {
	if pr.Head == "" || pr.Base == "" {
		return "", fmt.Errorf("pull request head and base cannot be empty")
	}

	created, _, err := c.client.PullRequests.Create(ctx, org, repo, &github.NewPullRequest{
		Title: github.String(pr.Title),
		Head:  github.String(pr.Head),
		Base:  github.String(pr.Base),
		Body:  github.String(pr.Body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create pull request: %w", err)
	}
	return created.GetHTMLURL(), nil
}

// GetCommitAuthor returns the git author name and email of a commit.
func (c *Client) GetCommitAuthor(ctx context.Context, org, repo, sha string) (string, string, error) {
	commit, err := withRetry(ctx, c.retry, "get commit", func() (*github.RepositoryCommit, error) {
		commit, _, err := c.client.Repositories.GetCommit(ctx, org, repo, sha, nil)
		return commit, err
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch commit: %w", err)
	}

	author := commit.GetCommit().GetAuthor()
	return author.GetName(), author.GetEmail(), nil
}

// GetFileContent fetches a file's decoded content at ref. A missing file
// yields an error wrapping ErrNotFound.
func (c *Client) GetFileContent(ctx context.Context, org, repo, path, ref string) ([]byte, error) {
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}

	file, err := withRetry(ctx, c.retry, "get contents", func() (*github.RepositoryContent, error) {
		file, _, _, err := c.client.Repositories.GetContents(ctx, org, repo, path, opts)
		return file, err
	})
	if err != nil {
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch file content: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}
	return []byte(content), nil
}
