//go:build !darwin

package screenshot

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
)

const fileExt = ".png"

// ErrNoTool is returned when neither grim nor ImageMagick is installed.
var ErrNoTool = errors.New("no screenshot tool found (install grim or imagemagick)")

// HasPermission reports whether a screenshot tool is available.
func HasPermission() bool {
	_, err := tool()
	return err == nil
}

// RequestPermission is a no-op outside macOS.
func RequestPermission() {}

func tool() (string, error) {
	for _, name := range []string{"grim", "import"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrNoTool
}

func command(ctx context.Context, path string, interactive bool) (*exec.Cmd, error) {
	bin, err := tool()
	if err != nil {
		return nil, err
	}
	if filepath.Base(bin) == "grim" {
		if interactive {
			// grim takes a region from slurp
			geom, err := exec.CommandContext(ctx, "slurp").Output()
			if err != nil {
				return nil, ErrCancelled
			}
			return exec.CommandContext(ctx, bin, "-g", string(bytes.TrimSpace(geom)), path), nil
		}
		return exec.CommandContext(ctx, bin, path), nil
	}
	if interactive {
		return exec.CommandContext(ctx, bin, path), nil
	}
	return exec.CommandContext(ctx, bin, "-window", "root", path), nil
}
