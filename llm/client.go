// Package llm provides clients for the generative-AI backends.
package llm

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"go.aimuz.me/clearsight/internal/types"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Image is an inline image attached to a message.
type Image struct {
	MIMEType string
	Data     []byte
}

// JPEG wraps raw JPEG bytes.
func JPEG(data []byte) Image { return Image{MIMEType: "image/jpeg", Data: data} }

func (i Image) base64() string { return base64.StdEncoding.EncodeToString(i.Data) }

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
	Images  []Image
}

// Options configures LLM completion behavior.
type Options struct {
	MaxTokens       int
	Temperature     float64
	ThinkingBudget  int  // Gemini/Claude thinking, OpenAI reasoning effort; 0 leaves the backend default
	DisableThinking bool // For Gemini: set thinkingBudget to 0
}

// StreamDelta is one fragment of a streamed completion. The last value on
// the channel has Done set, or Err when the stream broke.
type StreamDelta struct {
	Text  string
	Done  bool
	Usage types.Usage
	Err   error
}

// Completer performs chat completions.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, types.Usage, error)
}

// StreamCompleter performs streaming chat completions.
type StreamCompleter interface {
	StreamComplete(ctx context.Context, messages []Message) (<-chan StreamDelta, error)
}

// Client is a backend supporting both call styles.
type Client interface {
	Completer
	StreamCompleter
}

// completerConfig holds all parameters needed by completers.
type completerConfig struct {
	http            *http.Client
	apiKey          string
	baseURL         string
	model           string
	maxTokens       int
	temperature     float64
	thinkingBudget  int
	disableThinking bool
}

// NewClient creates a Client for the given provider type.
func NewClient(apiType, apiKey, baseURL, model string, opts Options) Client {
	cfg := completerConfig{
		http:            &http.Client{Timeout: 2 * time.Minute},
		apiKey:          apiKey,
		baseURL:         baseURL,
		model:           model,
		maxTokens:       opts.MaxTokens,
		temperature:     opts.Temperature,
		thinkingBudget:  opts.ThinkingBudget,
		disableThinking: opts.DisableThinking,
	}

	switch apiType {
	case "gemini":
		return &geminiCompleter{cfg: cfg}
	case "claude":
		return &claudeCompleter{cfg: cfg}
	case "openai", "openai-compatible":
		return newOpenAICompleter(cfg, apiType == "openai-compatible")
	default:
		// Default to OpenAI format
		return newOpenAICompleter(cfg, false)
	}
}

// sendDelta delivers d unless ctx is done first.
func sendDelta(ctx context.Context, ch chan<- StreamDelta, d StreamDelta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
