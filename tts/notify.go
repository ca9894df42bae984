package tts

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

// maxNotifyLen caps the notification body.
const maxNotifyLen = 800

// NotifySpeaker shows the text as a desktop notification, for users who
// read rather than listen.
type NotifySpeaker struct {
	Title string

	notify func(title, message string) error
}

func (n *NotifySpeaker) Speak(_ context.Context, text string, _ float64) (*Utterance, error) {
	title := n.Title
	if title == "" {
		title = "ClearSight"
	}
	message := text
	if len(message) > maxNotifyLen {
		message = message[:maxNotifyLen] + "..."
	}

	send := n.notify
	if send == nil {
		send = func(title, message string) error { return beeep.Notify(title, message, "") }
	}

	u := NewUtterance(text)
	if err := send(title, message); err != nil {
		return nil, fmt.Errorf("send notification: %w", err)
	}
	u.MarkStarted()
	u.Finish(nil)
	return u, nil
}

func (n *NotifySpeaker) CancelAll() {}
