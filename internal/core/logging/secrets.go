// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-12

package logging

import (
	"sort"
	"strings"
	"sync"
)

// Mask replaces every registered secret in rendered log lines.
const Mask = "*"

// SecretSet is an append-only set of sensitive strings.
type SecretSet struct {
	mu       sync.RWMutex
	values   map[string]struct{}
	replacer *strings.Replacer
}

// NewSecretSet returns an empty SecretSet.
func NewSecretSet() *SecretSet {
	return &SecretSet{values: make(map[string]struct{})}
}

// Add registers values as secrets. Empty strings are ignored.
func (s *SecretSet) Add(values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := s.values[v]; ok {
			continue
		}
		s.values[v] = struct{}{}
		changed = true
	}
	if !changed {
		return
	}

	// Longest first so a secret containing another secret is masked whole.
	sorted := make([]string, 0, len(s.values))
	for v := range s.values {
		sorted = append(sorted, v)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})

	pairs := make([]string, 0, len(sorted)*2)
	for _, v := range sorted {
		pairs = append(pairs, v, Mask)
	}
	s.replacer = strings.NewReplacer(pairs...)
}

// Len returns the number of registered secrets.
func (s *SecretSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Redact returns msg with every registered secret replaced by Mask.
func (s *SecretSet) Redact(msg string) string {
	s.mu.RLock()
	r := s.replacer
	s.mu.RUnlock()

	if r == nil {
		return msg
	}
	return r.Replace(msg)
}
