package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func (c *cli) stdout() io.Writer {
	return c.root.OutOrStdout()
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printField(label, value string) {
	fmt.Fprintln(c.stdout(), labelStyle.Render(label+":")+" "+valueStyle.Render(value))
}

// printError writes err to stderr, or as {"error": ...} on stdout with
// --json.
func (c *cli) printError(err error) {
	if c.jsonOut {
		body := v1.ErrorResponse{Error: err.Error()}
		var noFiles *repository.NoValidFilesError
		if errors.As(err, &noFiles) {
			body.GitHubContents = noFiles.Entries()
		}
		_ = c.printJSON(body)
		return
	}

	w := c.root.ErrOrStderr()
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintln(w, errorStyle.Render("Error:")+" "+err.Error())
}
