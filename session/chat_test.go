package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"go.aimuz.me/clearsight/internal/fake"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/llm"
)

var ignoreID = cmpopts.IgnoreFields(types.ChatEntry{}, "ID")

func newChat(t *testing.T, chat *fake.Chat) *ChatSession {
	t.Helper()
	env, _, _ := newEnv(&fake.Gateway{Chat: chat})
	s := NewChatSession(context.Background(), env)
	t.Cleanup(s.Close)
	return s
}

func TestChatGreeting(t *testing.T) {
	s := newChat(t, &fake.Chat{})
	want := []types.ChatEntry{{Role: types.RoleModel, Text: ChatGreeting}}
	if diff := cmp.Diff(want, s.Snapshot().Entries, ignoreID); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestChatStreamsReply(t *testing.T) {
	chat := &fake.Chat{Scripts: [][]llm.StreamDelta{{
		{Text: "Hi"},
		{Text: " there"},
		{Done: true},
	}}}
	s := newChat(t, chat)

	if err := s.Send(context.Background(), "  Hello  "); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := []types.ChatEntry{
		{Role: types.RoleModel, Text: ChatGreeting},
		{Role: types.RoleUser, Text: "Hello"},
		{Role: types.RoleModel, Text: "Hi there"},
	}
	snap := s.Snapshot()
	if diff := cmp.Diff(want, snap.Entries, ignoreID); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if snap.Streaming || snap.Status != types.StatusIdle {
		t.Errorf("snapshot = %+v, want idle", snap)
	}
	if diff := cmp.Diff([]string{"Hello"}, chat.Sent()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}

	ids := make(map[string]bool)
	for _, e := range snap.Entries {
		if e.ID == "" || ids[e.ID] {
			t.Errorf("entry id %q is empty or repeated", e.ID)
		}
		ids[e.ID] = true
	}
}

func TestChatFailuresApologize(t *testing.T) {
	tests := []struct {
		name string
		env  func() Env
	}{
		{
			name: "open fails",
			env: func() Env {
				env, _, _ := newEnv(&fake.Gateway{ChatErr: errors.New("no key")})
				return env
			},
		},
		{
			name: "send fails",
			env: func() Env {
				env, _, _ := newEnv(&fake.Gateway{Chat: &fake.Chat{Err: errors.New("quota")}})
				return env
			},
		},
		{
			name: "stream error",
			env: func() Env {
				env, _, _ := newEnv(&fake.Gateway{Chat: &fake.Chat{Scripts: [][]llm.StreamDelta{{
					{Text: "partial"},
					{Err: errors.New("reset by peer")},
				}}}})
				return env
			},
		},
		{
			name: "stream closes early",
			env: func() Env {
				env, _, _ := newEnv(&fake.Gateway{Chat: &fake.Chat{Scripts: [][]llm.StreamDelta{{
					{Text: "partial"},
				}}}})
				return env
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewChatSession(context.Background(), tt.env())
			defer s.Close()

			if err := s.Send(context.Background(), "Hello"); err == nil {
				t.Fatal("Send() should report the failure")
			}
			snap := s.Snapshot()
			if len(snap.Entries) != 3 {
				t.Fatalf("entries = %d, want 3", len(snap.Entries))
			}
			last := snap.Entries[2]
			want := types.ChatEntry{Role: types.RoleModel, Text: ChatApology}
			if diff := cmp.Diff(want, last, ignoreID); diff != "" {
				t.Errorf("last entry mismatch (-want +got):\n%s", diff)
			}
			if snap.Streaming || snap.Status != types.StatusError {
				t.Errorf("snapshot = %+v, want error", snap)
			}
		})
	}
}

func TestChatRecoversAfterFailure(t *testing.T) {
	chat := &fake.Chat{Scripts: [][]llm.StreamDelta{
		{{Err: errors.New("boom")}},
		{{Text: "Fine"}, {Done: true}},
	}}
	s := newChat(t, chat)
	if err := s.Send(context.Background(), "one"); err == nil {
		t.Fatal("first Send() should fail")
	}
	if err := s.Send(context.Background(), "two"); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}
	entries := s.Snapshot().Entries
	if got := entries[len(entries)-1].Text; got != "Fine" {
		t.Errorf("last reply = %q, want Fine", got)
	}
}

func TestChatSendGuards(t *testing.T) {
	s := newChat(t, &fake.Chat{})
	if err := s.Send(context.Background(), " \n "); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Send(blank) error = %v, want ErrEmptyInput", err)
	}
	if got := len(s.Snapshot().Entries); got != 1 {
		t.Errorf("entries = %d, want only the greeting", got)
	}
}

// blockingChat streams from a channel the test controls.
type blockingChat struct {
	ch chan llm.StreamDelta
}

func (c *blockingChat) Send(context.Context, string) (<-chan llm.StreamDelta, error) {
	return c.ch, nil
}

func TestChatBusyWhileStreaming(t *testing.T) {
	chat := &blockingChat{ch: make(chan llm.StreamDelta)}
	env, _, _ := newEnv(&fake.Gateway{Chat: chat})
	s := NewChatSession(context.Background(), env)
	defer s.Close()

	errc := make(chan error, 1)
	go func() { errc <- s.Send(context.Background(), "first") }()
	chat.ch <- llm.StreamDelta{Text: "Wor"}
	waitFor(t, "partial reply", func() bool {
		e := s.Snapshot().Entries
		return e[len(e)-1].Text == "Wor"
	})

	snap := s.Snapshot()
	last := snap.Entries[len(snap.Entries)-1]
	if !last.IsStreaming || !snap.Streaming {
		t.Errorf("partial entry = %+v, want streaming", last)
	}
	if err := s.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("Send() while streaming error = %v, want ErrBusy", err)
	}

	chat.ch <- llm.StreamDelta{Text: "king"}
	chat.ch <- llm.StreamDelta{Done: true}
	if err := <-errc; err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	entries := s.Snapshot().Entries
	if got := entries[len(entries)-1]; got.Text != "Working" || got.IsStreaming {
		t.Errorf("final entry = %+v", got)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3", len(entries))
	}
}

func TestChatStaleStreamDiscarded(t *testing.T) {
	var e Epoch
	chat := &blockingChat{ch: make(chan llm.StreamDelta)}
	env, _, _ := newEnv(&fake.Gateway{Chat: chat})
	env.Ticket = e.Advance()
	s := NewChatSession(context.Background(), env)

	errc := make(chan error, 1)
	go func() { errc <- s.Send(context.Background(), "hi") }()
	chat.ch <- llm.StreamDelta{Text: "a"}
	waitFor(t, "partial reply", func() bool {
		en := s.Snapshot().Entries
		return en[len(en)-1].Text == "a"
	})

	s.Close()
	e.Advance()
	chat.ch <- llm.StreamDelta{Text: "b"}
	if err := <-errc; !errors.Is(err, ErrClosed) {
		t.Errorf("Send() error = %v, want ErrClosed", err)
	}
	// the rest of the stream is drained
	chat.ch <- llm.StreamDelta{Done: true}
	close(chat.ch)

	entries := s.Snapshot().Entries
	if got := entries[len(entries)-1].Text; got != "a" {
		t.Errorf("stale delta applied: last text = %q", got)
	}
	if err := s.Send(context.Background(), "again"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after close error = %v, want ErrClosed", err)
	}
}
