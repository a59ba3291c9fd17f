// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-16

// Package config handles loading autoport's service configuration and the
// per-repository trigger configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	// GitHub configures App authentication and API access.
	GitHub GitHubConfig `yaml:"github"`

	// Git configures the local workspace and command execution.
	Git GitConfig `yaml:"git"`

	// Server configures the webhook listener.
	Server ServerConfig `yaml:"server"`

	// RepoConfigPath is the path, inside each repository, of the trigger config.
	RepoConfigPath string `yaml:"repo_config_path,omitempty"`
}

// GitHubConfig holds GitHub App and API settings.
type GitHubConfig struct {
	AppID          int64  `yaml:"app_id"`
	PrivateKey     string `yaml:"private_key,omitempty"`
	PrivateKeyPath string `yaml:"private_key_path,omitempty"`
	WebhookSecret  string `yaml:"webhook_secret"`

	// Token is a static token used instead of App authentication (CLI runs).
	Token string `yaml:"token,omitempty"`

	// APIURL overrides the API base URL (GitHub Enterprise).
	APIURL     string        `yaml:"api_url,omitempty"`
	APITimeout time.Duration `yaml:"api_timeout"`
}

// GitConfig holds workspace settings.
type GitConfig struct {
	WorkspaceRoot    string        `yaml:"workspace_root"`
	CommandTimeout   time.Duration `yaml:"command_timeout"`
	BotName          string        `yaml:"bot_name"`
	BotEmail         string        `yaml:"bot_email"`
	CloneURLTemplate string        `yaml:"clone_url_template,omitempty"`
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	EventTimeout time.Duration `yaml:"event_timeout"`
}

// Load reads a config file from the given path and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parseRaw(data)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Default returns a config with only defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func parseRaw(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// FindConfigPath searches for a config file in standard locations.
func FindConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	candidates := []string{
		".github/autoport.yaml",
		".github/autoport.yml",
		".autoport.yaml",
		".autoport.yml",
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			abs, _ := filepath.Abs(c)
			return abs
		}
	}

	return ""
}

// ApplyEnv overrides settings from well-known environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("GITHUB_APP_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GITHUB_APP_ID %q: %w", v, err)
		}
		c.GitHub.AppID = id
	}
	if v := os.Getenv("GITHUB_PRIVATE_KEY"); v != "" {
		c.GitHub.PrivateKey = v
	}
	if v := os.Getenv("GITHUB_WEBHOOK_SECRET"); v != "" {
		c.GitHub.WebhookSecret = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" && c.GitHub.Token == "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	return nil
}

// UsesApp reports whether GitHub App credentials are configured.
func (c *Config) UsesApp() bool {
	return c.GitHub.AppID != 0 && (c.GitHub.PrivateKey != "" || c.GitHub.PrivateKeyPath != "")
}

// Validate checks that enough credentials are present to talk to GitHub.
func (c *Config) Validate() error {
	if !c.UsesApp() && c.GitHub.Token == "" {
		return fmt.Errorf("either github.app_id with a private key or github.token must be set")
	}
	if c.Git.WorkspaceRoot == "" {
		return fmt.Errorf("git.workspace_root cannot be empty")
	}
	return nil
}

// LoadPrivateKey returns the App private key PEM, reading it from disk if needed.
func (c *Config) LoadPrivateKey() ([]byte, error) {
	if c.GitHub.PrivateKey != "" {
		return []byte(c.GitHub.PrivateKey), nil
	}
	if c.GitHub.PrivateKeyPath == "" {
		return nil, fmt.Errorf("no private key configured")
	}
	data, err := os.ReadFile(c.GitHub.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return data, nil
}

// applyDefaults sets default values for unset fields.
func (c *Config) applyDefaults() {
	if c.GitHub.APITimeout == 0 {
		c.GitHub.APITimeout = 30 * time.Second
	}
	if c.Git.WorkspaceRoot == "" {
		c.Git.WorkspaceRoot = filepath.Join(os.TempDir(), "autoport")
	}
	if abs, err := filepath.Abs(c.Git.WorkspaceRoot); err == nil {
		c.Git.WorkspaceRoot = abs
	}
	if c.Git.CommandTimeout == 0 {
		c.Git.CommandTimeout = 5 * time.Minute
	}
	if c.Git.BotName == "" {
		c.Git.BotName = "autoport[bot]"
	}
	if c.Git.BotEmail == "" {
		c.Git.BotEmail = "autoport[bot]@users.noreply.github.com"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.EventTimeout == 0 {
		c.Server.EventTimeout = 30 * time.Minute
	}
	if c.RepoConfigPath == "" {
		c.RepoConfigPath = DefaultRepoConfigPath
	}
}
