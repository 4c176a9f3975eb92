// Package tui provides the interactive terminal chat session for the
// ragnchat CLI.
package tui
