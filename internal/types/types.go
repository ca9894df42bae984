// Package types provides shared type definitions for the application.
package types

import "time"

// Mode identifies one of the application's interaction modes.
type Mode string

const (
	ModeDashboard Mode = "dashboard"
	ModeSign      Mode = "sign"
	ModeSpeech    Mode = "speech"
	ModeText      Mode = "text"
	ModeImage     Mode = "image"
	ModeChat      Mode = "chat"
	ModeSettings  Mode = "settings"
)

// Modes lists the selectable modes in dashboard order.
var Modes = []Mode{ModeSign, ModeSpeech, ModeText, ModeImage, ModeChat, ModeSettings}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeDashboard, ModeSign, ModeSpeech, ModeText, ModeImage, ModeChat, ModeSettings:
		return true
	}
	return false
}

// Status is the lifecycle state of a capture-submit-render cycle.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusCapturing      Status = "capturing"
	StatusSubmitting     Status = "submitting"
	StatusAwaitingResult Status = "awaiting_result"
	StatusRendering      Status = "rendering"
	StatusError          Status = "error"
)

// Busy reports whether a request is in flight.
func (s Status) Busy() bool {
	return s == StatusCapturing || s == StatusSubmitting || s == StatusAwaitingResult
}

// ReadingLevel controls how aggressively text is simplified.
type ReadingLevel string

const (
	ReadingSimple   ReadingLevel = "simple"
	ReadingModerate ReadingLevel = "moderate"
	ReadingAdvanced ReadingLevel = "advanced"
)

// ReadingLevels lists the levels in increasing complexity.
var ReadingLevels = []ReadingLevel{ReadingSimple, ReadingModerate, ReadingAdvanced}

// ColorBlindMode is a colour-vision filter preference.
type ColorBlindMode string

const (
	ColorBlindNone         ColorBlindMode = "none"
	ColorBlindProtanopia   ColorBlindMode = "protanopia"
	ColorBlindDeuteranopia ColorBlindMode = "deuteranopia"
	ColorBlindTritanopia   ColorBlindMode = "tritanopia"
)

// ColorBlindModes lists every supported filter.
var ColorBlindModes = []ColorBlindMode{ColorBlindNone, ColorBlindProtanopia, ColorBlindDeuteranopia, ColorBlindTritanopia}

// Voice speed bounds.
const (
	MinVoiceSpeed  = 0.5
	MaxVoiceSpeed  = 2.0
	VoiceSpeedStep = 0.1
)

// Settings holds the user's accessibility preferences.
type Settings struct {
	HighContrast   bool           `json:"highContrast" yaml:"high_contrast"`
	LargeText      bool           `json:"largeText" yaml:"large_text"`
	ReadingLevel   ReadingLevel   `json:"readingLevel" yaml:"reading_level"`
	Language       string         `json:"language" yaml:"language"`
	VoiceSpeed     float64        `json:"voiceSpeed" yaml:"voice_speed"`
	ColorBlindMode ColorBlindMode `json:"colorBlindMode" yaml:"color_blind_mode"`
}

// DefaultSettings returns the initial preferences.
func DefaultSettings() Settings {
	return Settings{
		ReadingLevel:   ReadingSimple,
		Language:       "English",
		VoiceSpeed:     1.0,
		ColorBlindMode: ColorBlindNone,
	}
}

// Facing selects which camera a mode opens.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Frame is a single still image captured from a camera.
type Frame struct {
	Image      []byte    `json:"-"` // JPEG
	CapturedAt time.Time `json:"capturedAt"`
}

// Empty reports whether the frame carries no image data.
func (f Frame) Empty() bool { return len(f.Image) == 0 }

// Result is a rendered answer from the AI gateway.
type Result struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Role identifies the author of a chat entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatEntry is one message in a chat history.
type ChatEntry struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Text        string `json:"text"`
	IsStreaming bool   `json:"isStreaming"`
}

// Delivery is one batch of recognizer output. Interim is empty when the
// batch carries no in-progress hypothesis.
type Delivery struct {
	Finals  []string `json:"finals"`
	Interim string   `json:"interim"`
}

// Usage represents token usage statistics from LLM API calls.
type Usage struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	CacheHit         bool `json:"cacheHit"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Provider Types
// ─────────────────────────────────────────────────────────────────────────────

// APICredential is an API key for one backend.
type APICredential struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // "gemini", "openai", "openai-compatible", "claude"
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// ModelProfile selects the models used by the AI gateway.
type ModelProfile struct {
	CredentialID   string  `yaml:"credential_id"`
	TextModel      string  `yaml:"text_model"`
	VisionModel    string  `yaml:"vision_model"`
	ChatModel      string  `yaml:"chat_model"`
	MaxTokens      int     `yaml:"max_tokens,omitempty"`
	Temperature    float64 `yaml:"temperature,omitempty"`
	ThinkingBudget int     `yaml:"thinking_budget,omitempty"` // simplify and chat
}

// DefaultMaxTokens is the default max tokens if not specified.
const DefaultMaxTokens = 1024

// DefaultThinkingBudget is the simplify and chat reasoning budget if not specified.
const DefaultThinkingBudget = 32768
