package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"go.aimuz.me/clearsight/gateway"
	"go.aimuz.me/clearsight/internal/types"
)

// Chat texts.
const (
	ChatGreeting = "Hello! I am your AI assistant. How can I help you today?"
	ChatApology  = "Sorry, I encountered an error."
)

var errStreamEnded = errors.New("chat stream ended without a reply")

// ChatSnapshot is the render state of a chat session.
type ChatSnapshot struct {
	Status    types.Status
	Streaming bool
	Entries   []types.ChatEntry
}

// ChatSession is a streaming conversation. At most one entry streams at a
// time and it is always the last.
type ChatSession struct {
	env  Env
	life life
	chat gateway.Chat
	// openErr is why chat is nil
	openErr error

	mu        sync.Mutex
	status    types.Status
	streaming bool
	entries   []types.ChatEntry
}

// NewChatSession opens the conversation for the mode's lifetime. When it
// cannot be opened the session still works and every Send ends in the
// apology.
func NewChatSession(ctx context.Context, env Env) *ChatSession {
	s := &ChatSession{
		env:    env,
		life:   life{ticket: env.Ticket},
		status: types.StatusIdle,
		entries: []types.ChatEntry{{
			ID:   uuid.NewString(),
			Role: types.RoleModel,
			Text: ChatGreeting,
		}},
	}
	s.chat, s.openErr = env.Gateway.NewChat(ctx)
	if s.openErr != nil {
		slog.Warn("open chat", "error", s.openErr)
	}
	return s
}

// Send posts text and streams the reply into a placeholder entry. It
// returns when the stream ends. A failure replaces the placeholder with
// the apology and is returned.
func (s *ChatSession) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	if s.life.stale() {
		return ErrClosed
	}
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return ErrBusy
	}
	s.entries = append(s.entries,
		types.ChatEntry{ID: uuid.NewString(), Role: types.RoleUser, Text: text},
		types.ChatEntry{ID: uuid.NewString(), Role: types.RoleModel, IsStreaming: true},
	)
	s.streaming = true
	s.status = types.StatusAwaitingResult
	s.mu.Unlock()
	s.env.changed()

	if s.chat == nil {
		return s.fail(fmt.Errorf("open chat: %w", s.openErr))
	}
	stream, err := s.chat.Send(ctx, text)
	if err != nil {
		return s.fail(err)
	}

	var reply strings.Builder
	for d := range stream {
		if d.Err != nil {
			return s.fail(d.Err)
		}
		if d.Text != "" {
			reply.WriteString(d.Text)
			if !s.update(reply.String(), false) {
				go drain(stream)
				return ErrClosed
			}
		}
		if d.Done {
			if !s.update(reply.String(), true) {
				return ErrClosed
			}
			return nil
		}
	}
	return s.fail(errStreamEnded)
}

func drain[T any](ch <-chan T) {
	for range ch {
	}
}

// update replaces the streaming entry's text; done clears the flag.
func (s *ChatSession) update(text string, done bool) bool {
	s.mu.Lock()
	if s.life.stale() {
		s.mu.Unlock()
		return false
	}
	last := &s.entries[len(s.entries)-1]
	last.Text = text
	if done {
		last.IsStreaming = false
		s.streaming = false
		s.status = types.StatusIdle
	} else {
		s.status = types.StatusRendering
	}
	s.mu.Unlock()
	s.env.changed()
	return true
}

func (s *ChatSession) fail(err error) error {
	s.mu.Lock()
	if s.life.stale() {
		s.mu.Unlock()
		return ErrClosed
	}
	last := &s.entries[len(s.entries)-1]
	last.Text = ChatApology
	last.IsStreaming = false
	s.streaming = false
	s.status = types.StatusError
	s.mu.Unlock()
	slog.Warn("stream chat reply", "error", err)
	s.env.changed()
	return fmt.Errorf("send message: %w", err)
}

// Snapshot returns a copy of the render state.
func (s *ChatSession) Snapshot() ChatSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChatSnapshot{
		Status:    s.status,
		Streaming: s.streaming,
		Entries:   append([]types.ChatEntry(nil), s.entries...),
	}
}

// Close marks the session closed. A stream in progress is left to finish
// and its output is discarded.
func (s *ChatSession) Close() {
	s.life.closed.Store(true)
}
