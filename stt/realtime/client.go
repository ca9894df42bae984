// Package realtime streams microphone audio to the OpenAI Realtime API over
// WebRTC and turns its transcription events into transcript deliveries.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	opuscodec "github.com/jj11hh/opus"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Opus runs at 48 kHz stereo on the WebRTC track.
const (
	SampleRate = 48000
	Channels   = 2
)

// Sentinel errors.
var (
	ErrNotReady = errors.New("client not ready")
	ErrClosed   = errors.New("client closed")
)

// Client is one WebRTC call to the Realtime API.
type Client struct {
	apiKey   string
	session  SessionConfig
	endpoint string

	mu      sync.Mutex
	closed  bool
	pc      *webrtc.PeerConnection
	track   *webrtc.TrackLocalStaticSample
	encoder *opuscodec.Encoder
	packet  []byte

	events chan Event
	errs   chan error
}

// Config holds configuration for the client.
type Config struct {
	APIKey   string
	Session  SessionConfig
	Endpoint string // SDP exchange endpoint, defaults to CallsEndpoint
}

// NewClient creates a client. Call Connect before sending audio.
func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = CallsEndpoint
	}
	return &Client{
		apiKey:   cfg.APIKey,
		session:  cfg.Session,
		endpoint: endpoint,
		events:   make(chan Event, 100),
		errs:     make(chan error, 1),
		// Max Opus packet size is 1275 bytes
		packet: make([]byte, 1275),
	}
}

// Connect creates the transcription session and negotiates the call.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	token, err := CreateSession(ctx, c.apiKey, c.session)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	slog.Info("create realtime session", "expires", time.Unix(token.ExpiresAt, 0))

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return fmt.Errorf("register codecs: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}

	if err := c.setup(pc); err != nil {
		_ = pc.Close()
		return err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return fmt.Errorf("set local description: %w", err)
	}
	<-webrtc.GatheringCompletePromise(pc)

	answer, err := ExchangeSDP(ctx, c.endpoint, pc.LocalDescription().SDP, token.Value)
	if err != nil {
		_ = pc.Close()
		return fmt.Errorf("exchange SDP: %w", err)
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		_ = pc.Close()
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

// setup adds the microphone track and the events data channel to pc.
func (c *Client) setup(pc *webrtc.PeerConnection) error {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: SampleRate, Channels: Channels},
		"audio",
		"clearsight-mic",
	)
	if err != nil {
		return fmt.Errorf("create audio track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		return fmt.Errorf("add audio track: %w", err)
	}
	enc, err := opuscodec.NewEncoder(SampleRate, Channels, opuscodec.AppRestrictedLowdelay)
	if err != nil {
		return fmt.Errorf("create opus encoder: %w", err)
	}
	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}

	dc.OnMessage(c.handleMessage)
	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		// transcription sessions send no audio back, drain anyway
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := remote.Read(buf); err != nil {
					return
				}
			}
		}()
	})
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		if state == webrtc.ICEConnectionStateFailed || state == webrtc.ICEConnectionStateDisconnected {
			select {
			case c.errs <- fmt.Errorf("ICE connection %s", state):
			default:
			}
		}
	})

	c.mu.Lock()
	c.pc, c.track, c.encoder = pc, track, enc
	c.mu.Unlock()
	return nil
}

func (c *Client) handleMessage(msg webrtc.DataChannelMessage) {
	event, err := ParseEvent(msg.Data)
	if err != nil {
		slog.Warn("parse realtime event", "error", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		slog.Warn("drop realtime event", "type", event.eventType())
	}
}

// SendAudio encodes one Opus frame of interleaved stereo samples at 48 kHz
// and writes it to the track.
func (c *Client) SendAudio(frame []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.track == nil || c.encoder == nil {
		return ErrNotReady
	}
	n, err := c.encoder.EncodeFloat32(frame, c.packet)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}
	return c.track.WriteSample(media.Sample{
		Data:     c.packet[:n],
		Duration: time.Duration(len(frame)/Channels) * time.Second / SampleRate,
	})
}

// Events returns parsed server events. It is closed by Close.
func (c *Client) Events() <-chan Event { return c.events }

// Errors returns connection failures.
func (c *Client) Errors() <-chan error { return c.errs }

// Close hangs up the call.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.events)
	if c.pc != nil {
		return c.pc.Close()
	}
	return nil
}
