// Package gateway implements the AI operations behind each mode: text
// simplification, image description, sign interpretation and chat.
//
// Every operation except chat returns plain text and never an error;
// failures are mapped to fixed user-facing messages.
package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.aimuz.me/clearsight/cache"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/langdetect"
	"go.aimuz.me/clearsight/llm"
)

// Operation names, used for metrics and logs.
const (
	OpSimplify = "simplify"
	OpDescribe = "describe"
	OpSign     = "sign"
	OpChat     = "chat"
)

// Chat is an open multi-turn conversation.
type Chat interface {
	// Send streams the reply to text. The channel ends with a Done or Err
	// delta.
	Send(ctx context.Context, text string) (<-chan llm.StreamDelta, error)
}

// Config wires a Service.
type Config struct {
	Text   llm.Completer // simplify
	Vision llm.Completer // describe and sign
	Chat   llm.StreamCompleter

	Cache    *cache.Cache // optional
	CacheTTL time.Duration

	Registry prometheus.Registerer // optional

	MaxTries        uint          // for simplify and describe; 0 means 3
	InitialInterval time.Duration // first retry delay; 0 means 500ms
}

// Service is the AI gateway.
type Service struct {
	text   llm.Completer
	vision llm.Completer
	chat   llm.StreamCompleter

	cache    *cache.Cache
	cacheTTL time.Duration
	metrics  *metricsProvider

	maxTries        uint
	initialInterval time.Duration
}

// New creates a Service.
func New(cfg Config) *Service {
	s := &Service{
		text:            cfg.Text,
		vision:          cfg.Vision,
		chat:            cfg.Chat,
		cache:           cfg.Cache,
		cacheTTL:        cfg.CacheTTL,
		metrics:         newMetricsProvider(cfg.Registry),
		maxTries:        cfg.MaxTries,
		initialInterval: cfg.InitialInterval,
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = cache.DefaultTTL
	}
	if s.maxTries == 0 {
		s.maxTries = 3
	}
	if s.initialInterval <= 0 {
		s.initialInterval = 500 * time.Millisecond
	}
	return s
}

// SimplifyText rewrites text for the reading level and target language.
func (s *Service) SimplifyText(ctx context.Context, text string, level types.ReadingLevel, language string) string {
	start := time.Now()
	lang := s.resolveLanguage(language, text)

	key := cache.GenerateKey(OpSimplify, text, string(level), lang)
	if out, ok := s.fromCache(key); ok {
		s.metrics.observe(OpSimplify, outcomeCached, start)
		return out
	}

	out, err := s.completeWithRetry(ctx, OpSimplify, s.text, []llm.Message{
		{Role: llm.RoleUser, Content: simplifyPrompt(text, level, lang)},
	})
	switch {
	case err != nil:
		slog.Warn("simplify text", "error", err)
		s.metrics.observe(OpSimplify, outcomeError, start)
		return SimplifyFailed
	case strings.TrimSpace(out) == "":
		s.metrics.observe(OpSimplify, outcomeEmpty, start)
		return SimplifyEmpty
	}

	s.metrics.observe(OpSimplify, outcomeOK, start)
	s.toCache(key, out)
	return out
}

// DescribeImage describes a JPEG frame for a visually impaired user.
func (s *Service) DescribeImage(ctx context.Context, image []byte, language string) string {
	start := time.Now()
	lang := langdetect.DisplayName(language)
	if lang == "" || lang == langdetect.Auto {
		lang = "English"
	}

	key := cache.GenerateKey(OpDescribe, digest(image), lang)
	if out, ok := s.fromCache(key); ok {
		s.metrics.observe(OpDescribe, outcomeCached, start)
		return out
	}

	out, err := s.completeWithRetry(ctx, OpDescribe, s.vision, []llm.Message{
		{Role: llm.RoleUser, Content: describePrompt(lang), Images: []llm.Image{llm.JPEG(image)}},
	})
	switch {
	case err != nil:
		slog.Warn("describe image", "error", err)
		s.metrics.observe(OpDescribe, outcomeError, start)
		return DescribeFailed
	case strings.TrimSpace(out) == "":
		s.metrics.observe(OpDescribe, outcomeEmpty, start)
		return DescribeEmpty
	}

	s.metrics.observe(OpDescribe, outcomeOK, start)
	s.toCache(key, out)
	return out
}

// InterpretSign translates the hand gesture in a frame. It returns "" on
// failure and is never retried: the next poll is the retry.
func (s *Service) InterpretSign(ctx context.Context, image []byte) string {
	start := time.Now()
	out, _, err := s.vision.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: signPrompt, Images: []llm.Image{llm.JPEG(image)}},
	})
	if err != nil {
		slog.Debug("interpret sign", "error", err)
		s.metrics.observe(OpSign, outcomeError, start)
		return ""
	}
	out = strings.TrimSpace(out)
	if out == "" {
		s.metrics.observe(OpSign, outcomeEmpty, start)
		return ""
	}
	s.metrics.observe(OpSign, outcomeOK, start)
	return out
}

// NewChat opens a conversation on the chat backend.
func (s *Service) NewChat(ctx context.Context) (Chat, error) {
	return newConversation(s.chat, s.metrics), nil
}

func (s *Service) completeWithRetry(ctx context.Context, op string, c llm.Completer, msgs []llm.Message) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialInterval

	attempt := 0
	return backoff.Retry(ctx, func() (string, error) {
		if attempt > 0 {
			s.metrics.retried(op)
		}
		attempt++
		out, _, err := c.Complete(ctx, msgs)
		if err != nil && !llm.Retryable(err) {
			return "", backoff.Permanent(err)
		}
		return out, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.maxTries))
}

func (s *Service) resolveLanguage(language, text string) string {
	if strings.EqualFold(strings.TrimSpace(language), langdetect.Auto) {
		if _, name, ok := langdetect.Detect(text); ok {
			return name
		}
		return sameLanguage
	}
	if lang := langdetect.DisplayName(language); lang != "" {
		return lang
	}
	return "English"
}

func (s *Service) fromCache(key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	e, ok := s.cache.Get(key)
	if !ok {
		return "", false
	}
	return e.Text, true
}

func (s *Service) toCache(key, text string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(key, &cache.Entry{Text: text, CreatedAt: time.Now()}, s.cacheTTL); err != nil {
		slog.Warn("write cache", "error", err)
	}
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
