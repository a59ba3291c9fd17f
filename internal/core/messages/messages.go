// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-14

// Package messages holds every user-facing and log template used by autoport.
package messages

import (
	"fmt"
)

// Key identifies a message template.
type Key string

const (
	CloneURL                   Key = "CloneURL"
	CommentCherryPickFailed    Key = "CommentCherryPickFailed"
	CommentMissingTargetBranch Key = "CommentMissingTargetBranch"
	CommentNoDiff              Key = "CommentNoDiff"
	CommentPortRequest         Key = "CommentPortRequest"
	CommentPortRequestFailed   Key = "CommentPortRequestFailed"
	CommentPortTargetFailed    Key = "CommentPortTargetFailed"
	LogCherryPickFailed        Key = "LogCherryPickFailed"
	LogMissingTargetBranch     Key = "LogMissingTargetBranch"
	LogNoDiff                  Key = "LogNoDiff"
	PortBranchName             Key = "PortBranchName"
	PortLabel                  Key = "PortLabel"
	PortRequestBody            Key = "PortRequestBody"
	PortRequestTitle           Key = "PortRequestTitle"
)

var catalog = map[Key]string{
	CloneURL: "https://x-access-token:%s@github.com/%s/%s.git",
	CommentCherryPickFailed: "❗️Heads up @%s, merge conflicts prevented a clean cherry-pick. " +
		"The branch `%s` was pushed so you can resolve the conflicts yourself:\n" +
		"```\ngit fetch origin %[2]s\ngit checkout %[2]s\ngit cherry-pick %s\n```",
	CommentMissingTargetBranch: "❗️The branch `%s` does not exist on the repo. " +
		"Make sure the port labels are spelled correctly.",
	CommentNoDiff:            "⚠️ The changes in the cherry-pick are already present in the `%s` branch. No port necessary.",
	CommentPortRequest:       "✅ Thanks @%s, a port PR for the `%s` branch was created [here](%s).",
	CommentPortRequestFailed: "❗️Had some trouble making a port PR 😓.",
	CommentPortTargetFailed:  "❗️Had some trouble making a port PR for the `%s` branch 😓.",
	LogCherryPickFailed:      "Cherry pick failed due to merge conflicts",
	LogMissingTargetBranch:   "Target branch is missing from the repository",
	LogNoDiff:                "No differences with target branch and cherry-pick",
	PortBranchName:           "%s-port-%d",
	PortLabel:                "port:%s",
	PortRequestBody:          "Port changes made in #%d to the `%s` branch",
	PortRequestTitle:         "Port #%d to the %s branch",
}

// Lookup formats the template for key with args.
func Lookup(key Key, args ...any) (string, error) {
	tmpl, ok := catalog[key]
	if !ok {
		return "", fmt.Errorf("missing message for key %s", key)
	}
	if len(args) == 0 {
		return tmpl, nil
	}
	return fmt.Sprintf(tmpl, args...), nil
}

// Get is like Lookup but panics on an unknown key. Keys are compile-time
// constants, so a miss is a programming error.
func Get(key Key, args ...any) string {
	msg, err := Lookup(key, args...)
	if err != nil {
		panic(err)
	}
	return msg
}
