// Package fake provides hand-written test doubles for the gateway and the
// capture and speech devices.
package fake

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.aimuz.me/clearsight/gateway"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/llm"
	"go.aimuz.me/clearsight/stt"
	"go.aimuz.me/clearsight/tts"
)

// Gateway answers with the configured functions and counts calls per
// operation. Nil functions return "".
type Gateway struct {
	Simplify func(text string, level types.ReadingLevel, language string) string
	Describe func(image []byte, language string) string
	Sign     func(image []byte) string

	Chat    gateway.Chat
	ChatErr error

	mu    sync.Mutex
	calls map[string]int
}

func (g *Gateway) count(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[op]++
}

// Calls returns how often op was requested.
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *Gateway) SimplifyText(_ context.Context, text string, level types.ReadingLevel, language string) string {
	g.count(gateway.OpSimplify)
	if g.Simplify == nil {
		return ""
	}
	return g.Simplify(text, level, language)
}

func (g *Gateway) DescribeImage(_ context.Context, image []byte, language string) string {
	g.count(gateway.OpDescribe)
	if g.Describe == nil {
		return ""
	}
	return g.Describe(image, language)
}

func (g *Gateway) InterpretSign(_ context.Context, image []byte) string {
	g.count(gateway.OpSign)
	if g.Sign == nil {
		return ""
	}
	return g.Sign(image)
}

func (g *Gateway) NewChat(context.Context) (gateway.Chat, error) {
	g.count(gateway.OpChat)
	if g.ChatErr != nil {
		return nil, g.ChatErr
	}
	if g.Chat == nil {
		return nil, errors.New("no chat configured")
	}
	return g.Chat, nil
}

// Sequence returns a Sign function answering with replies in order and ""
// once they run out.
func Sequence(replies ...string) func([]byte) string {
	var mu sync.Mutex
	return func([]byte) string {
		mu.Lock()
		defer mu.Unlock()
		if len(replies) == 0 {
			return ""
		}
		r := replies[0]
		replies = replies[1:]
		return r
	}
}

// Chat replays scripted streams. Each Send consumes the next script; with
// no script left it streams nothing and closes.
type Chat struct {
	Scripts [][]llm.StreamDelta
	Err     error // returned by Send

	mu   sync.Mutex
	sent []string
}

func (c *Chat) Send(_ context.Context, text string) (<-chan llm.StreamDelta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	if c.Err != nil {
		return nil, c.Err
	}
	var script []llm.StreamDelta
	if len(c.Scripts) > 0 {
		script, c.Scripts = c.Scripts[0], c.Scripts[1:]
	}
	ch := make(chan llm.StreamDelta, len(script))
	for _, d := range script {
		ch <- d
	}
	close(ch)
	return ch, nil
}

// Sent returns the messages passed to Send.
func (c *Chat) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// Camera returns frames in order, repeating the last one.
type Camera struct {
	Frames  []types.Frame
	OpenErr error
	Err     error // returned by Frame when set

	mu     sync.Mutex
	open   bool
	facing types.Facing
	served int
}

func (c *Camera) Open(_ context.Context, facing types.Facing) error {
	if c.OpenErr != nil {
		return c.OpenErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open, c.facing = true, facing
	return nil
}

func (c *Camera) Frame(context.Context) (types.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return types.Frame{}, c.Err
	}
	if len(c.Frames) == 0 {
		c.served++
		return types.Frame{Image: []byte{0xff, 0xd8, byte(c.served)}, CapturedAt: time.Now()}, nil
	}
	f := c.Frames[min(c.served, len(c.Frames)-1)]
	c.served++
	return f, nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// IsOpen reports the open state and facing.
func (c *Camera) IsOpen() (bool, types.Facing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open, c.facing
}

// Recognizer hands its callbacks to the test.
type Recognizer struct {
	Unavailable bool
	StartErr    error

	mu       sync.Mutex
	deliver  stt.DeliverFunc
	fail     stt.FailFunc
	language string
	starts   int
	stops    int
}

func (r *Recognizer) Name() string    { return "fake" }
func (r *Recognizer) Available() bool { return !r.Unavailable }

func (r *Recognizer) Start(_ context.Context, language string, deliver stt.DeliverFunc, fail stt.FailFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	if r.StartErr != nil {
		return r.StartErr
	}
	r.deliver, r.fail, r.language = deliver, fail, language
	return nil
}

func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

// Deliver calls the deliver callback of the latest Start, if any.
func (r *Recognizer) Deliver(d types.Delivery) {
	r.mu.Lock()
	fn := r.deliver
	r.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}

// Fail calls the fail callback of the latest Start, if any.
func (r *Recognizer) Fail(err error) {
	r.mu.Lock()
	fn := r.fail
	r.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Counts returns the number of Start and Stop calls.
func (r *Recognizer) Counts() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}

// Language returns the language of the latest Start.
func (r *Recognizer) Language() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.language
}

// Speaker records what it is asked to say. Utterances start at once and
// finish immediately unless Hold is set, in which case they last until
// CancelAll.
type Speaker struct {
	Hold bool

	mu      sync.Mutex
	spoken  []Spoken
	active  []*tts.Utterance
	cancels int
}

// Spoken is one Speak call.
type Spoken struct {
	Text string
	Rate float64
}

func (s *Speaker) Speak(_ context.Context, text string, rate float64) (*tts.Utterance, error) {
	u := tts.NewUtterance(text)
	u.MarkStarted()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, Spoken{Text: text, Rate: rate})
	if s.Hold {
		s.active = append(s.active, u)
	} else {
		u.Finish(nil)
	}
	return u, nil
}

func (s *Speaker) CancelAll() {
	s.mu.Lock()
	active := s.active
	s.active = nil
	s.cancels++
	s.mu.Unlock()
	for _, u := range active {
		u.Finish(nil)
	}
}

// Spoken returns every Speak call so far.
func (s *Speaker) Spoken() []Spoken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Spoken(nil), s.spoken...)
}

// Texts returns the spoken texts in order.
func (s *Speaker) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.spoken))
	for _, sp := range s.spoken {
		out = append(out, sp.Text)
	}
	return out
}

// Cancels returns the number of CancelAll calls.
func (s *Speaker) Cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

// Ticker is a manually fired ticker.
type Ticker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

// NewTicker creates a manual ticker.
func NewTicker() *Ticker { return &Ticker{ch: make(chan time.Time)} }

func (t *Ticker) C() <-chan time.Time { return t.ch }

func (t *Ticker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Stopped reports whether Stop was called.
func (t *Ticker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Fire delivers one tick and waits until the poller has received it. It
// returns false when nobody received the tick within a second.
func (t *Ticker) Fire() bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-time.After(time.Second):
		return false
	}
}
