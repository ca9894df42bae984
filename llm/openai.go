package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.aimuz.me/clearsight/internal/types"
)

// openaiCompleter implements Client for OpenAI and compatible APIs.
type openaiCompleter struct {
	cfg    completerConfig
	client openai.Client
}

func newOpenAICompleter(cfg completerConfig, isCompatible bool) *openaiCompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.apiKey),
		option.WithHTTPClient(cfg.http),
		option.WithMaxRetries(0), // retries belong to the caller
	}
	if isCompatible && cfg.baseURL != "" {
		// Accept both a root URL and a full chat/completions URL.
		base := strings.TrimSuffix(strings.TrimSuffix(cfg.baseURL, "/"), "/chat/completions")
		opts = append(opts, option.WithBaseURL(base+"/"))
	}
	return &openaiCompleter{cfg: cfg, client: openai.NewClient(opts...)}
}

func (c *openaiCompleter) params(messages []Message) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			if len(m.Images) == 0 {
				msgs = append(msgs, openai.UserMessage(m.Content))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Images)+1)
			for _, img := range m.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:" + img.MIMEType + ";base64," + img.base64(),
				}))
			}
			if m.Content != "" {
				parts = append(parts, openai.TextContentPart(m.Content))
			}
			msgs = append(msgs, openai.UserMessage(parts))
		}
	}

	p := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.cfg.model),
		Messages: msgs,
	}
	if c.cfg.maxTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(c.cfg.maxTokens))
	}
	if !isReasoningModel(c.cfg.model) {
		if c.cfg.temperature > 0 {
			p.Temperature = openai.Float(c.cfg.temperature)
		}
		return p
	}
	// Reasoning models reject temperature.
	if c.cfg.thinkingBudget > 0 && !c.cfg.disableThinking {
		p.ReasoningEffort = reasoningEffort(c.cfg.thinkingBudget)
	}
	return p
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func reasoningEffort(budget int) shared.ReasoningEffort {
	switch {
	case budget >= 16384:
		return shared.ReasoningEffortHigh
	case budget >= 4096:
		return shared.ReasoningEffortMedium
	default:
		return shared.ReasoningEffortLow
	}
}

func (c *openaiCompleter) Complete(ctx context.Context, messages []Message) (string, types.Usage, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return "", types.Usage{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", types.Usage{}, errors.New("no choices")
	}

	return resp.Choices[0].Message.Content, openaiToUsage(resp.Usage), nil
}

// StreamComplete implements StreamCompleter for streaming responses.
func (c *openaiCompleter) StreamComplete(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	params := c.params(messages)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("open stream: %w", err)
	}

	ch := make(chan StreamDelta, 16)

	go func() {
		defer stream.Close()
		defer close(ch)

		var usage types.Usage
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				usage = openaiToUsage(chunk.Usage)
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !sendDelta(ctx, ch, StreamDelta{Text: chunk.Choices[0].Delta.Content}) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			sendDelta(ctx, ch, StreamDelta{Err: fmt.Errorf("read stream: %w", err)})
			return
		}
		sendDelta(ctx, ch, StreamDelta{Done: true, Usage: usage})
	}()

	return ch, nil
}

func openaiToUsage(u openai.CompletionUsage) types.Usage {
	return types.Usage{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
		TotalTokens:      int(u.TotalTokens),
	}
}
