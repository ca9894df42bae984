package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.aimuz.me/clearsight/internal/types"
)

// FFmpegCamera grabs single frames from a webcam by running ffmpeg.
type FFmpegCamera struct {
	Binary      string // default "ffmpeg"
	InputFormat string // default v4l2 on Linux, avfoundation on macOS
	FrontDevice string // used for FacingUser
	BackDevice  string // used for FacingEnvironment; falls back to FrontDevice
	Size        string // e.g. "1280x720"; empty keeps the device default

	state openState
}

// Open selects the device for facing and checks the binary exists.
func (c *FFmpegCamera) Open(_ context.Context, facing types.Facing) error {
	if _, err := exec.LookPath(c.binary()); err != nil {
		return fmt.Errorf("find ffmpeg: %w", err)
	}
	c.state.set(true, facing)
	slog.Debug("camera opened", "facing", facing, "device", c.device(facing))
	return nil
}

func (c *FFmpegCamera) Close() error {
	c.state.set(false, "")
	return nil
}

// Frame captures one JPEG frame.
func (c *FFmpegCamera) Frame(ctx context.Context) (types.Frame, error) {
	open, facing := c.state.get()
	if !open {
		return types.Frame{}, ErrNotOpen
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary(), c.args(facing)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return types.Frame{}, fmt.Errorf("run ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return types.Frame{}, ErrNoFrame
	}
	return types.Frame{Image: stdout.Bytes(), CapturedAt: time.Now()}, nil
}

func (c *FFmpegCamera) args(facing types.Facing) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", c.inputFormat()}
	if c.Size != "" {
		args = append(args, "-video_size", c.Size)
	}
	return append(args,
		"-i", c.device(facing),
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
}

func (c *FFmpegCamera) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "ffmpeg"
}

func (c *FFmpegCamera) inputFormat() string {
	if c.InputFormat != "" {
		return c.InputFormat
	}
	if runtime.GOOS == "darwin" {
		return "avfoundation"
	}
	return "v4l2"
}

func (c *FFmpegCamera) device(facing types.Facing) string {
	front := c.FrontDevice
	if front == "" {
		front = defaultDevice()
	}
	if facing == types.FacingEnvironment && c.BackDevice != "" {
		return c.BackDevice
	}
	return front
}

func defaultDevice() string {
	if runtime.GOOS == "darwin" {
		return "0"
	}
	return "/dev/video0"
}
