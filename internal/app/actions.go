package app

import (
	"context"
	"fmt"

	"go.aimuz.me/clearsight/hotkey"
	"go.aimuz.me/clearsight/internal/types"
)

// HandleAction runs a hands-free action against the current mode.
// Actions that do not apply to the mode are ignored.
func (s *Service) HandleAction(ctx context.Context, a hotkey.Action) error {
	nav := s.nav
	switch a {
	case hotkey.ActionBack:
		nav.Back()
		return nil

	case hotkey.ActionCapture:
		switch nav.Mode() {
		case types.ModeImage:
			if img := nav.Image(); img != nil {
				return img.Capture(ctx)
			}
		case types.ModeText:
			if txt := nav.Text(); txt != nil {
				_, err := txt.Submit(ctx)
				return err
			}
		}
		return nil

	case hotkey.ActionTogglePolling:
		sign := nav.Sign()
		if sign == nil {
			return nil
		}
		if sign.Snapshot().Polling {
			sign.StopPolling()
			return nil
		}
		return sign.StartPolling(context.WithoutCancel(ctx))

	case hotkey.ActionToggleListening:
		tr := nav.Transcript()
		if tr == nil {
			return nil
		}
		if tr.Snapshot().Listening {
			return tr.Stop()
		}
		return tr.Start(context.WithoutCancel(ctx))
	}
	return fmt.Errorf("unknown action: %q", a)
}
