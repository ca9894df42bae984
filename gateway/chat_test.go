package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.aimuz.me/clearsight/llm"
)

// mockStreamer replays scripted deltas.
type mockStreamer struct {
	deltas  []llm.StreamDelta
	openErr error
	seen    [][]llm.Message
}

func (m *mockStreamer) StreamComplete(_ context.Context, msgs []llm.Message) (<-chan llm.StreamDelta, error) {
	m.seen = append(m.seen, msgs)
	if m.openErr != nil {
		return nil, m.openErr
	}
	ch := make(chan llm.StreamDelta, len(m.deltas))
	for _, d := range m.deltas {
		ch <- d
	}
	close(ch)
	return ch, nil
}

func drain(ch <-chan llm.StreamDelta) (string, llm.StreamDelta) {
	var b strings.Builder
	var last llm.StreamDelta
	for d := range ch {
		b.WriteString(d.Text)
		last = d
	}
	return b.String(), last
}

func TestConversationCommitsCompletedTurns(t *testing.T) {
	backend := &mockStreamer{deltas: []llm.StreamDelta{{Text: "Hi"}, {Text: "!"}, {Done: true}}}
	s := New(Config{Chat: backend})

	chat, err := s.NewChat(context.Background())
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}

	ch, err := chat.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	text, last := drain(ch)
	if text != "Hi!" || !last.Done {
		t.Fatalf("stream = %q, last = %+v", text, last)
	}

	ch, _ = chat.Send(context.Background(), "again")
	drain(ch)

	second := backend.seen[1]
	if len(second) != 3 {
		t.Fatalf("second request has %d messages, want 3", len(second))
	}
	if second[1].Role != llm.RoleAssistant || second[1].Content != "Hi!" {
		t.Errorf("history reply = %+v", second[1])
	}
	if got := chat.(*conversation).turns(); got != 2 {
		t.Errorf("turns = %d, want 2", got)
	}
}

func TestConversationDropsFailedTurns(t *testing.T) {
	backend := &mockStreamer{deltas: []llm.StreamDelta{{Text: "par"}, {Err: errors.New("reset")}}}
	s := New(Config{Chat: backend})
	chat, _ := s.NewChat(context.Background())

	ch, err := chat.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if _, last := drain(ch); last.Err == nil {
		t.Fatal("expected a terminal error delta")
	}
	if got := chat.(*conversation).turns(); got != 0 {
		t.Errorf("turns = %d, want 0", got)
	}
}

func TestConversationStreamEndingEarlyIsAnError(t *testing.T) {
	backend := &mockStreamer{deltas: []llm.StreamDelta{{Text: "cut"}}}
	s := New(Config{Chat: backend})
	chat, _ := s.NewChat(context.Background())

	ch, _ := chat.Send(context.Background(), "hello")
	if _, last := drain(ch); last.Err == nil {
		t.Error("stream closing without Done should end with an error")
	}
}

func TestConversationOpenError(t *testing.T) {
	backend := &mockStreamer{openErr: errors.New("401")}
	s := New(Config{Chat: backend})
	chat, _ := s.NewChat(context.Background())

	if _, err := chat.Send(context.Background(), "hello"); err == nil {
		t.Error("Send() should fail when the stream cannot open")
	}
}
