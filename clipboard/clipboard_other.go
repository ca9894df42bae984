//go:build !darwin

package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrNoTool is returned when no clipboard command is installed.
var ErrNoTool = errors.New("no clipboard tool found (install wl-clipboard, xclip or xsel)")

// tools are tried in order; the first one on PATH is used.
var tools = [][]string{
	{"wl-paste", "--no-newline"},
	{"xclip", "-selection", "clipboard", "-o"},
	{"xsel", "--clipboard", "--output"},
	{"powershell.exe", "-NoProfile", "-Command", "Get-Clipboard"},
}

func readText(ctx context.Context) (string, error) {
	for _, tool := range tools {
		path, err := exec.LookPath(tool[0])
		if err != nil {
			continue
		}
		out, err := exec.CommandContext(ctx, path, tool[1:]...).Output()
		if err != nil {
			return "", fmt.Errorf("read clipboard with %s: %w", tool[0], err)
		}
		return string(out), nil
	}
	return "", ErrNoTool
}
