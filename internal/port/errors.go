// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-14

package port

import (
	"errors"
	"fmt"
)

// ErrTokenFetch indicates the installation token could not be obtained.
var ErrTokenFetch = errors.New("failed to fetch access token")

// MissingTargetError means the target branch does not exist on the remote.
type MissingTargetError struct {
	Branch string
	Err    error
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("target branch %s does not exist", e.Branch)
}

func (e *MissingTargetError) Unwrap() error { return e.Err }

// ConflictError means the cherry-pick conflicted. PortBranch has been pushed
// so the conflicts can be resolved by hand.
type ConflictError struct {
	PortBranch string
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cherry-pick onto %s has merge conflicts", e.PortBranch)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// NoDiffError means the target branch already contains the change.
type NoDiffError struct {
	Branch string
	Err    error
}

func (e *NoDiffError) Error() string {
	return fmt.Sprintf("changes are already present in %s", e.Branch)
}

func (e *NoDiffError) Unwrap() error { return e.Err }
