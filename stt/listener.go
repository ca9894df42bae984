package stt

import (
	"context"
	"sync"

	"go.aimuz.me/clearsight/audiocapture"
)

// MicFunc opens a microphone for one listening run.
type MicFunc func() (audiocapture.Capturer, error)

// DefaultMic opens the system microphone with malgo at 16 kHz mono.
func DefaultMic() (audiocapture.Capturer, error) {
	return audiocapture.New(audiocapture.Config{})
}

// run is one Start..Stop cycle of a microphone-driven recognizer.
type run struct {
	ctx     context.Context
	cancel  context.CancelFunc
	mic     audiocapture.Capturer
	samples chan []float32
	wg      sync.WaitGroup

	release  func() // frees the listener slot and the microphone
	failOnce sync.Once
}

// next returns the next block of mono samples, or false once the run ends.
func (r *run) next() ([]float32, bool) {
	select {
	case <-r.ctx.Done():
		return nil, false
	case s := <-r.samples:
		return audiocapture.Downmix(s, r.mic.Channels()), true
	}
}

// listener starts and stops runs. It keeps at most one active; a run that
// ends through its context releases the slot on its own.
type listener struct {
	mu  sync.Mutex
	cur *run
}

// begin opens the microphone and starts streaming samples into the run.
func (l *listener) begin(ctx context.Context, open MicFunc) (*run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur != nil {
		return nil, ErrRunning
	}

	mic, err := open()
	if err != nil {
		return nil, err
	}
	rctx, cancel := context.WithCancel(ctx)
	r := &run{
		ctx:     rctx,
		cancel:  cancel,
		mic:     mic,
		samples: make(chan []float32, 64),
	}
	err = mic.Start(func(samples []float32) {
		buf := make([]float32, len(samples))
		copy(buf, samples)
		select {
		case r.samples <- buf:
		default: // consumer is behind; drop the block
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}
	l.cur = r
	r.release = sync.OnceFunc(func() {
		l.mu.Lock()
		if l.cur == r {
			l.cur = nil
		}
		l.mu.Unlock()
		_ = mic.Stop()
	})
	context.AfterFunc(rctx, r.release)
	return r, nil
}

// abort ends the run from inside one of its goroutines and reports err once.
func (r *run) abort(err error, fail FailFunc) {
	if r.ctx.Err() != nil {
		// stopped by the caller
		return
	}
	r.cancel()
	r.release()
	r.failOnce.Do(func() {
		if fail != nil {
			fail(err)
		}
	})
}

// stop ends the active run and waits for its goroutines.
func (l *listener) stop() error {
	l.mu.Lock()
	r := l.cur
	l.cur = nil
	l.mu.Unlock()
	if r == nil {
		return nil
	}
	r.cancel()
	err := r.mic.Stop()
	r.wg.Wait()
	return err
}
