package capture

import (
	"context"
	"fmt"
	"time"

	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/screenshot"
)

// ScreenCamera uses the screen as the frame source. The facing mode is
// ignored.
type ScreenCamera struct {
	Interactive bool // let the user pick a region for every frame

	state openState
	grab  func(context.Context) ([]byte, error)
}

func (c *ScreenCamera) Open(_ context.Context, facing types.Facing) error {
	if c.grab == nil {
		c.grab = screenshot.Capture
		if c.Interactive {
			c.grab = screenshot.CaptureInteractive
		}
	}
	c.state.set(true, facing)
	return nil
}

func (c *ScreenCamera) Close() error {
	c.state.set(false, "")
	return nil
}

func (c *ScreenCamera) Frame(ctx context.Context) (types.Frame, error) {
	if open, _ := c.state.get(); !open {
		return types.Frame{}, ErrNotOpen
	}
	data, err := c.grab(ctx)
	if err != nil {
		return types.Frame{}, fmt.Errorf("capture screen: %w", err)
	}
	img, err := ToJPEG(data)
	if err != nil {
		return types.Frame{}, err
	}
	return types.Frame{Image: img, CapturedAt: time.Now()}, nil
}
