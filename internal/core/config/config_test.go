// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-16

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// TestConfigDefaults verifies that default values are applied correctly.
func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.GitHub.APITimeout != 30*time.Second {
		t.Errorf("Expected APITimeout to be 30s, got %s", cfg.GitHub.APITimeout)
	}
	if cfg.Git.CommandTimeout != 5*time.Minute {
		t.Errorf("Expected CommandTimeout to be 5m, got %s", cfg.Git.CommandTimeout)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Expected Server.Addr to be ':3000', got %s", cfg.Server.Addr)
	}
	if cfg.RepoConfigPath != DefaultRepoConfigPath {
		t.Errorf("Expected RepoConfigPath to be %q, got %q", DefaultRepoConfigPath, cfg.RepoConfigPath)
	}
	if cfg.Git.WorkspaceRoot == "" {
		t.Error("Expected a default WorkspaceRoot")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("AUTOPORT_TEST_SECRET", "s3cret")

	yamlContent := `
github:
  app_id: 42
  private_key_path: /keys/app.pem
  webhook_secret: ${AUTOPORT_TEST_SECRET}
  api_timeout: 10s
git:
  workspace_root: /var/autoport
  command_timeout: 2m
server:
  addr: ":8080"
`
	path := filepath.Join(t.TempDir(), "autoport.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GitHub.AppID != 42 {
		t.Errorf("Expected AppID 42, got %d", cfg.GitHub.AppID)
	}
	if cfg.GitHub.WebhookSecret != "s3cret" {
		t.Errorf("Expected env-expanded webhook secret, got %q", cfg.GitHub.WebhookSecret)
	}
	if cfg.GitHub.APITimeout != 10*time.Second {
		t.Errorf("Expected APITimeout 10s, got %s", cfg.GitHub.APITimeout)
	}
	if cfg.Git.CommandTimeout != 2*time.Minute {
		t.Errorf("Expected CommandTimeout 2m, got %s", cfg.Git.CommandTimeout)
	}
	if cfg.Git.BotName != "autoport[bot]" {
		t.Errorf("Expected default BotName, got %q", cfg.Git.BotName)
	}
	if !cfg.UsesApp() {
		t.Error("Expected UsesApp to be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestRelativeWorkspaceRootIsResolved(t *testing.T) {
	dir := t.TempDir()
	// Equivalent of t.Chdir (Go 1.24+) for older toolchains.
	if wd, err := os.Getwd(); err != nil {
		t.Fatal(err)
	} else {
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
	}

	cfg := &Config{Git: GitConfig{WorkspaceRoot: "./tmp"}}
	cfg.applyDefaults()

	want, err := filepath.Abs("tmp")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Git.WorkspaceRoot != want {
		t.Errorf("Expected WorkspaceRoot %q, got %q", want, cfg.Git.WorkspaceRoot)
	}
	if !filepath.IsAbs(cfg.Git.WorkspaceRoot) {
		t.Errorf("Expected an absolute WorkspaceRoot, got %q", cfg.Git.WorkspaceRoot)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GITHUB_APP_ID", "7")
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("PORT", "9000")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.GitHub.AppID != 7 {
		t.Errorf("Expected AppID 7, got %d", cfg.GitHub.AppID)
	}
	if cfg.GitHub.Token != "ghp_env" {
		t.Errorf("Expected token from env, got %q", cfg.GitHub.Token)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Expected addr :9000, got %q", cfg.Server.Addr)
	}

	t.Setenv("GITHUB_APP_ID", "not-a-number")
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("Expected error for invalid GITHUB_APP_ID")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error without credentials")
	}

	cfg.GitHub.Token = "ghp_x"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected token-only config to be valid, got %v", err)
	}
}

func TestLoadPrivateKey(t *testing.T) {
	cfg := Default()
	if _, err := cfg.LoadPrivateKey(); err == nil {
		t.Error("Expected error with no key configured")
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte("PEM"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.GitHub.PrivateKeyPath = path
	key, err := cfg.LoadPrivateKey()
	if err != nil || string(key) != "PEM" {
		t.Errorf("Expected key from file, got %q, %v", key, err)
	}

	cfg.GitHub.PrivateKey = "INLINE"
	key, _ = cfg.LoadPrivateKey()
	if string(key) != "INLINE" {
		t.Errorf("Expected inline key to win, got %q", key)
	}
}

func TestParseRepoConfig(t *testing.T) {
	cfg, err := ParseRepoConfig([]byte(`
triggers:
  main: [develop, release, develop, main, ""]
  develop: [feature-x]
`))
	if err != nil {
		t.Fatalf("Failed to parse repo config: %v", err)
	}

	if got, want := cfg.TargetsFor("main"), []string{"develop", "release"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TargetsFor(main) = %v, want %v", got, want)
	}
	if got := cfg.TargetsFor("unknown"); len(got) != 0 {
		t.Errorf("Expected no targets for unknown base, got %v", got)
	}
}

func TestParseRepoConfigEmpty(t *testing.T) {
	cfg, err := ParseRepoConfig(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Triggers == nil || len(cfg.Triggers) != 0 {
		t.Errorf("Expected empty triggers, got %v", cfg.Triggers)
	}

	if _, err := ParseRepoConfig([]byte("triggers: [unclosed")); err == nil {
		t.Error("Expected parse error")
	}
}
