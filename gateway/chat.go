package gateway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.aimuz.me/clearsight/llm"
)

// conversation keeps the turns exchanged so far. A turn joins the history
// only once its reply has streamed to completion.
type conversation struct {
	backend llm.StreamCompleter
	metrics *metricsProvider

	mu      sync.Mutex
	history []llm.Message
}

func newConversation(backend llm.StreamCompleter, metrics *metricsProvider) *conversation {
	return &conversation{backend: backend, metrics: metrics}
}

func (c *conversation) Send(ctx context.Context, text string) (<-chan llm.StreamDelta, error) {
	if c.backend == nil {
		return nil, errors.New("chat backend not configured")
	}
	start := time.Now()

	c.mu.Lock()
	msgs := append(slices.Clone(c.history), llm.Message{Role: llm.RoleUser, Content: text})
	c.mu.Unlock()

	in, err := c.backend.StreamComplete(ctx, msgs)
	if err != nil {
		c.metrics.observe(OpChat, outcomeError, start)
		return nil, fmt.Errorf("open chat stream: %w", err)
	}

	out := make(chan llm.StreamDelta, 16)
	go func() {
		defer close(out)

		var reply strings.Builder
		for d := range in {
			reply.WriteString(d.Text)
			if d.Done {
				c.commit(text, reply.String())
				c.metrics.observe(OpChat, outcomeOK, start)
			}
			if d.Err != nil {
				c.metrics.observe(OpChat, outcomeError, start)
			}
			if !sendDelta(ctx, out, d) {
				return
			}
			if d.Done || d.Err != nil {
				return
			}
		}
		// backend closed without a terminal delta
		c.metrics.observe(OpChat, outcomeError, start)
		sendDelta(ctx, out, llm.StreamDelta{Err: errors.New("chat stream ended early")})
	}()
	return out, nil
}

func (c *conversation) commit(user, reply string) {
	c.mu.Lock()
	c.history = append(c.history,
		llm.Message{Role: llm.RoleUser, Content: user},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	c.mu.Unlock()
}

func (c *conversation) turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history) / 2
}

func sendDelta(ctx context.Context, ch chan<- llm.StreamDelta, d llm.StreamDelta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
