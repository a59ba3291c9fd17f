// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-13
// Last Modified: 2026-10-13

package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRepoConfigPath is where a repository declares its port triggers.
const DefaultRepoConfigPath = ".github/autoport.yml"

// RepoConfig is the trigger configuration stored in a repository.
//
//	triggers:
//	  main: [develop, release-1.x]
type RepoConfig struct {
	// Triggers maps a base branch to the branches its merged PRs are ported to.
	Triggers map[string][]string `yaml:"triggers"`
}

// ParseRepoConfig parses a repository trigger config. Empty input yields an
// empty config.
func ParseRepoConfig(data []byte) (*RepoConfig, error) {
	cfg := &RepoConfig{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse repository config: %w", err)
		}
	}
	if cfg.Triggers == nil {
		cfg.Triggers = map[string][]string{}
	}
	return cfg, nil
}

// TargetsFor returns the configured targets for base, deduplicated and in
// declaration order. The base itself is never a target.
func (c *RepoConfig) TargetsFor(base string) []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var targets []string
	for _, t := range c.Triggers[base] {
		t = strings.TrimSpace(t)
		if t == "" || t == base {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		targets = append(targets, t)
	}
	return targets
}
