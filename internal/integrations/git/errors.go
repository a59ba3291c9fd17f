// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-12

package git

import (
	"errors"
	"strings"
)

// FailureKind is the closed set of git failures autoport reacts to.
type FailureKind int

const (
	Unknown FailureKind = iota
	MissingRemoteRef
	CherryPickConflict
	CherryPickEmpty
)

func (k FailureKind) String() string {
	switch k {
	case MissingRemoteRef:
		return "missing-remote-ref"
	case CherryPickConflict:
		return "cherry-pick-conflict"
	case CherryPickEmpty:
		return "cherry-pick-empty"
	default:
		return "unknown"
	}
}

// Classify maps git's stderr text to a FailureKind. Matching is
// case-insensitive because git has changed capitalization across versions.
func Classify(stderr string) FailureKind {
	text := strings.ToLower(stderr)
	switch {
	case strings.Contains(text, "couldn't find remote ref"):
		return MissingRemoteRef
	case strings.Contains(text, "after resolving the conflicts"):
		return CherryPickConflict
	case strings.Contains(text, "previous cherry-pick is now empty"):
		return CherryPickEmpty
	}
	return Unknown
}

// KindOf classifies err if it wraps an *ExecError, and returns Unknown otherwise.
func KindOf(err error) FailureKind {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Kind()
	}
	return Unknown
}
