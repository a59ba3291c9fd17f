// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-15

package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// Option configures a Client or AppClient.
type Option func(*options)

type options struct {
	baseURL string
	timeout time.Duration
	retry   RetryConfig
}

// WithBaseURL points the client at another API root. GitHub Enterprise
// roots must include the /api/v3/ suffix.
func WithBaseURL(base string) Option {
	return func(o *options) { o.baseURL = base }
}

// WithTimeout bounds every HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry overrides the retry policy for idempotent calls.
func WithRetry(cfg RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

func buildOptions(opts []Option) options {
	o := options{retry: DefaultRetryConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newGitHub builds a go-github client on top of tc.
func newGitHub(tc *http.Client, o options) (*github.Client, error) {
	if tc == nil {
		tc = &http.Client{}
	}
	if o.timeout > 0 {
		tc.Timeout = o.timeout
	}

	client := github.NewClient(tc)
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", o.baseURL, err)
		}
		client.BaseURL = u
	}
	return client, nil
}

// NewClient creates a new GitHub client using the provided token.
// If token is empty, it returns an unauthenticated client.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)

	var tc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(ctx, ts)
	}

	client, err := newGitHub(tc, o)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: client,
		retry:  o.retry,
	}, nil
}

// AppClient authenticates as a GitHub App and issues installation tokens.
type AppClient struct {
	client *github.Client
	opts   options
}

// NewAppClient creates an App-authenticated client from the App ID and its
// PEM-encoded RSA private key.
func NewAppClient(ctx context.Context, appID int64, privateKeyPEM []byte, opts ...Option) (*AppClient, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse app private key: %w", err)
	}

	o := buildOptions(opts)
	ts := oauth2.ReuseTokenSource(nil, &appTokenSource{appID: appID, key: key, now: time.Now})
	client, err := newGitHub(oauth2.NewClient(ctx, ts), o)
	if err != nil {
		return nil, err
	}

	return &AppClient{client: client, opts: o}, nil
}

// CreateInstallationToken exchanges the App identity for an installation
// token. The HTTP status is returned so callers can insist on 201 Created.
func (a *AppClient) CreateInstallationToken(ctx context.Context, installationID int64) (string, int, error) {
	tok, resp, err := a.client.Apps.CreateInstallationToken(ctx, installationID, nil)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if err != nil {
		return "", status, fmt.Errorf("failed to create installation token: %w", err)
	}
	return tok.GetToken(), status, nil
}

// InstallationClient returns a Client that authenticates as the given
// installation, minting and refreshing tokens as they expire.
func (a *AppClient) InstallationClient(ctx context.Context, installationID int64) (*Client, error) {
	ts := oauth2.ReuseTokenSource(nil, &installationTokenSource{app: a, installationID: installationID})
	client, err := newGitHub(oauth2.NewClient(ctx, ts), a.opts)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, retry: a.opts.retry}, nil
}

// StaticTokenIssuer hands out a fixed token, for runs authenticated with a
// personal or workflow token instead of an App.
type StaticTokenIssuer string

// CreateInstallationToken returns the static token with a 201 status.
func (s StaticTokenIssuer) CreateInstallationToken(context.Context, int64) (string, int, error) {
	if s == "" {
		return "", http.StatusUnauthorized, fmt.Errorf("no static token configured")
	}
	return string(s), http.StatusCreated, nil
}

// appTokenSource mints short-lived RS256 JWTs identifying the App.
type appTokenSource struct {
	appID int64
	key   *rsa.PrivateKey
	now   func() time.Time
}

func (s *appTokenSource) Token() (*oauth2.Token, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		// Backdated to tolerate clock drift with GitHub.
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
		Issuer:    strconv.FormatInt(s.appID, 10),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign app JWT: %w", err)
	}

	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      now.Add(8 * time.Minute),
	}, nil
}

type installationTokenSource struct {
	app            *AppClient
	installationID int64
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	ctx := context.Background()
	if s.app.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.app.opts.timeout)
		defer cancel()
	}

	tok, _, err := s.app.client.Apps.CreateInstallationToken(ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token: %w", err)
	}
	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		TokenType:   "Bearer",
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}
