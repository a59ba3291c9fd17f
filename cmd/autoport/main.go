// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-16
// Last Modified: 2026-10-16

// Package main is the entry point for the autoport CLI.
package main

import (
	"github.com/similigh/autoport/cmd/autoport/commands"
)

func main() {
	commands.Execute()
}
