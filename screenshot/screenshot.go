// Package screenshot captures the screen through the platform's
// screenshot tool.
package screenshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCancelled is returned when no image was written, usually because the
// user dismissed an interactive selection.
var ErrCancelled = errors.New("screenshot cancelled")

// Capture grabs the whole screen and returns the encoded image.
func Capture(ctx context.Context) ([]byte, error) {
	return capture(ctx, false)
}

// CaptureInteractive lets the user select a region and returns the image.
func CaptureInteractive(ctx context.Context) ([]byte, error) {
	return capture(ctx, true)
}

func capture(ctx context.Context, interactive bool) ([]byte, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("clearsight_screenshot_%d%s", time.Now().UnixNano(), fileExt))
	defer os.Remove(path)

	cmd, err := command(ctx, path, interactive)
	if err != nil {
		return nil, err
	}
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w", cmd.Args[0], err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	return data, nil
}
