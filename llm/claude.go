package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.aimuz.me/clearsight/internal/types"
)

const defaultClaudeBaseURL = "https://api.anthropic.com/v1/messages"

// claudeCompleter implements Client for the Claude API.
type claudeCompleter struct {
	cfg completerConfig
}

type claudeRequest struct {
	Model     string          `json:"model"`
	Messages  []claudeMessage `json:"messages"`
	System    string          `json:"system,omitempty"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream,omitempty"`
	Thinking  *claudeThinking `json:"thinking,omitempty"`
}

type claudeThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   *claudeUsage    `json:"usage,omitempty"`
	Error   *claudeError    `json:"error,omitempty"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// claudeEvent is the union of the SSE payloads we read.
type claudeEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Usage claudeUsage `json:"usage"`
	} `json:"message,omitempty"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Usage *claudeUsage `json:"usage,omitempty"`
	Error *claudeError `json:"error,omitempty"`
}

func (c *claudeCompleter) buildRequest(messages []Message, stream bool) claudeRequest {
	var claudeMsgs []claudeMessage
	var systemPrompt string

	for _, msg := range messages {
		if msg.Role == RoleSystem {
			systemPrompt += msg.Content
			continue
		}
		blocks := make([]claudeBlock, 0, len(msg.Images)+1)
		for _, img := range msg.Images {
			blocks = append(blocks, claudeBlock{
				Type:   "image",
				Source: &claudeSource{Type: "base64", MediaType: img.MIMEType, Data: img.base64()},
			})
		}
		if msg.Content != "" {
			blocks = append(blocks, claudeBlock{Type: "text", Text: msg.Content})
		}
		claudeMsgs = append(claudeMsgs, claudeMessage{Role: msg.Role, Content: blocks})
	}

	maxTokens := c.cfg.maxTokens
	if maxTokens == 0 {
		maxTokens = types.DefaultMaxTokens // Claude requires max_tokens
	}

	req := claudeRequest{
		Model:     c.cfg.model,
		Messages:  claudeMsgs,
		System:    systemPrompt,
		MaxTokens: maxTokens,
		Stream:    stream,
	}
	if c.cfg.thinkingBudget >= 1024 && !c.cfg.disableThinking {
		req.Thinking = &claudeThinking{Type: "enabled", BudgetTokens: c.cfg.thinkingBudget}
		// budget_tokens must stay below max_tokens
		if req.MaxTokens <= c.cfg.thinkingBudget {
			req.MaxTokens = c.cfg.thinkingBudget + types.DefaultMaxTokens
		}
	}
	return req
}

func (c *claudeCompleter) post(ctx context.Context, body claudeRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	baseURL := defaultClaudeBaseURL
	if c.cfg.baseURL != "" {
		baseURL = c.cfg.baseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("x-api-key", c.cfg.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := c.cfg.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func (c *claudeCompleter) Complete(ctx context.Context, messages []Message) (string, types.Usage, error) {
	resp, err := c.post(ctx, c.buildRequest(messages, false))
	if err != nil {
		return "", types.Usage{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.Usage{}, fmt.Errorf("read response: %w", err)
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return "", types.Usage{}, &APIError{Status: resp.StatusCode, Message: string(body)}
	}

	if claudeResp.Error != nil {
		return "", types.Usage{}, &APIError{Status: resp.StatusCode, Message: claudeResp.Error.Type + ": " + claudeResp.Error.Message}
	}

	var text strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 && len(claudeResp.Content) == 0 {
		return "", types.Usage{}, errors.New("no content returned")
	}

	return text.String(), claudeToUsage(claudeResp.Usage), nil
}

// StreamComplete implements StreamCompleter for streaming responses.
func (c *claudeCompleter) StreamComplete(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	resp, err := c.post(ctx, c.buildRequest(messages, true))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode, Message: string(body)}
	}

	ch := make(chan StreamDelta, 16)

	go func() {
		defer resp.Body.Close()
		defer close(ch)

		var usage claudeUsage
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}

			var ev claudeEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}

			switch ev.Type {
			case "message_start":
				if ev.Message != nil {
					usage.InputTokens = ev.Message.Usage.InputTokens
				}
			case "content_block_delta":
				if ev.Delta != nil && ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
					if !sendDelta(ctx, ch, StreamDelta{Text: ev.Delta.Text}) {
						return
					}
				}
			case "message_delta":
				if ev.Usage != nil {
					usage.OutputTokens = ev.Usage.OutputTokens
				}
			case "message_stop":
				sendDelta(ctx, ch, StreamDelta{Done: true, Usage: claudeToUsage(&usage)})
				return
			case "error":
				msg := "stream error"
				if ev.Error != nil {
					msg = ev.Error.Type + ": " + ev.Error.Message
				}
				sendDelta(ctx, ch, StreamDelta{Err: &APIError{Status: http.StatusInternalServerError, Message: msg}})
				return
			}
		}

		if err := scanner.Err(); err != nil {
			sendDelta(ctx, ch, StreamDelta{Err: fmt.Errorf("read stream: %w", err)})
			return
		}
		sendDelta(ctx, ch, StreamDelta{Err: io.ErrUnexpectedEOF})
	}()

	return ch, nil
}

func claudeToUsage(u *claudeUsage) types.Usage {
	if u == nil {
		return types.Usage{}
	}
	return types.Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.InputTokens + u.OutputTokens,
	}
}
