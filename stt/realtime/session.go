package realtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	oairt "github.com/openai/openai-go/v3/realtime"
)

// CallsEndpoint is the endpoint for WebRTC SDP exchange.
const CallsEndpoint = "https://api.openai.com/v1/realtime/calls"

// SessionToken holds the ephemeral key from CreateSession.
type SessionToken struct {
	Value     string
	ExpiresAt int64
}

// SessionConfig holds configuration for a transcription session.
type SessionConfig struct {
	Model    string // transcription model, defaults to gpt-4o-transcribe
	Language string // ISO 639-1 code; empty lets the model detect it
	Prompt   string // optional transcription prompt
}

// CreateSession creates an ephemeral token for a transcription session
// with semantic server VAD.
func CreateSession(ctx context.Context, apiKey string, cfg SessionConfig, opts ...option.RequestOption) (*SessionToken, error) {
	model := cfg.Model
	if model == "" {
		model = string(oairt.AudioTranscriptionModelGPT4oTranscribe)
	}

	transcription := oairt.AudioTranscriptionParam{
		Model: oairt.AudioTranscriptionModel(model),
	}
	if cfg.Language != "" {
		transcription.Language = openai.String(cfg.Language)
	}
	if cfg.Prompt != "" {
		transcription.Prompt = openai.String(cfg.Prompt)
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	params := oairt.ClientSecretNewParams{
		Session: oairt.ClientSecretNewParamsSessionUnion{
			OfTranscription: &oairt.RealtimeTranscriptionSessionCreateRequestParam{
				Audio: oairt.RealtimeTranscriptionSessionAudioParam{
					Input: oairt.RealtimeTranscriptionSessionAudioInputParam{
						TurnDetection: oairt.RealtimeTranscriptionSessionAudioInputTurnDetectionUnionParam{
							OfSemanticVad: &oairt.RealtimeTranscriptionSessionAudioInputTurnDetectionSemanticVadParam{
								Type:      "semantic_vad",
								Eagerness: "high",
							},
						},
						Transcription: transcription,
					},
				},
			},
		},
	}
	resp, err := client.Realtime.ClientSecrets.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create client secret: %w", err)
	}
	return &SessionToken{Value: resp.Value, ExpiresAt: resp.ExpiresAt}, nil
}

var sdpClient = &http.Client{Timeout: 30 * time.Second}

// ExchangeSDP posts the local SDP offer to endpoint and returns the answer.
func ExchangeSDP(ctx context.Context, endpoint, offer, ephemeralKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(offer))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ephemeralKey)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := sdpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		slog.Error("exchange sdp", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}
	return string(body), nil
}
