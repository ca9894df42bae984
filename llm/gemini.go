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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// geminiCompleter implements Client for the Gemini API.
type geminiCompleter struct {
	cfg completerConfig
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	GenerationConfig  geminiConfig      `json:"generationConfig,omitempty"`
	SystemInstruction *geminiSystemInst `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
}

type geminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiConfig struct {
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	Temperature     float64         `json:"temperature,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiSystemInst struct {
	Parts []geminiPart `json:"parts"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
	Error         *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// buildRequest constructs the Gemini API request body from messages.
func (c *geminiCompleter) buildRequest(messages []Message) geminiRequest {
	var contents []geminiContent
	var systemPrompt string

	for _, msg := range messages {
		if msg.Role == RoleSystem {
			systemPrompt += msg.Content + "\n"
			continue
		}

		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}

		parts := make([]geminiPart, 0, len(msg.Images)+1)
		for _, img := range msg.Images {
			parts = append(parts, geminiPart{InlineData: &geminiBlob{MIMEType: img.MIMEType, Data: img.base64()}})
		}
		if msg.Content != "" {
			parts = append(parts, geminiPart{Text: msg.Content})
		}

		contents = append(contents, geminiContent{Role: role, Parts: parts})
	}

	req := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiConfig{
			MaxOutputTokens: c.cfg.maxTokens,
			Temperature:     c.cfg.temperature,
		},
	}

	switch {
	case c.cfg.disableThinking:
		req.GenerationConfig.ThinkingConfig = &thinkingConfig{ThinkingBudget: 0}
	case c.cfg.thinkingBudget > 0:
		req.GenerationConfig.ThinkingConfig = &thinkingConfig{ThinkingBudget: c.cfg.thinkingBudget}
	}

	if systemPrompt != "" {
		req.SystemInstruction = &geminiSystemInst{
			Parts: []geminiPart{{Text: systemPrompt}},
		}
	}

	return req
}

// baseURL returns the configured or default base URL.
func (c *geminiCompleter) baseURL() string {
	if c.cfg.baseURL != "" {
		return strings.TrimSuffix(c.cfg.baseURL, "/")
	}
	return defaultGeminiBaseURL
}

func (c *geminiCompleter) post(ctx context.Context, method string, messages []Message) (*http.Response, error) {
	jsonBody, err := json.Marshal(c.buildRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:%s", c.baseURL(), c.cfg.model, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.apiKey)

	resp, err := c.cfg.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func (c *geminiCompleter) Complete(ctx context.Context, messages []Message) (string, types.Usage, error) {
	resp, err := c.post(ctx, "generateContent", messages)
	if err != nil {
		return "", types.Usage{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.Usage{}, fmt.Errorf("read response: %w", err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", types.Usage{}, &APIError{Status: resp.StatusCode, Message: string(body)}
	}

	if geminiResp.Error != nil {
		return "", types.Usage{}, &APIError{Status: geminiResp.Error.Code, Message: geminiResp.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return "", types.Usage{}, &APIError{Status: resp.StatusCode, Message: string(body)}
	}

	if len(geminiResp.Candidates) == 0 {
		return "", types.Usage{}, errors.New("no candidates returned")
	}

	return geminiText(geminiResp.Candidates[0]), geminiToUsage(geminiResp.UsageMetadata), nil
}

// StreamComplete implements StreamCompleter for streaming responses.
func (c *geminiCompleter) StreamComplete(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	resp, err := c.post(ctx, "streamGenerateContent?alt=sse", messages)
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

		var usage types.Usage
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}

			var chunk geminiResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				sendDelta(ctx, ch, StreamDelta{Err: &APIError{Status: chunk.Error.Code, Message: chunk.Error.Message}})
				return
			}

			if len(chunk.Candidates) > 0 {
				if text := geminiText(chunk.Candidates[0]); text != "" {
					if !sendDelta(ctx, ch, StreamDelta{Text: text}) {
						return
					}
				}
			}

			if chunk.UsageMetadata != nil {
				usage = geminiToUsage(chunk.UsageMetadata)
			}
		}

		if err := scanner.Err(); err != nil {
			sendDelta(ctx, ch, StreamDelta{Err: fmt.Errorf("read stream: %w", err)})
			return
		}
		sendDelta(ctx, ch, StreamDelta{Done: true, Usage: usage})
	}()

	return ch, nil
}

// geminiText joins the answer parts, skipping thought summaries.
func geminiText(c geminiCandidate) string {
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func geminiToUsage(u *geminiUsage) types.Usage {
	if u == nil {
		return types.Usage{}
	}
	return types.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}
