// Package config handles application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"go.aimuz.me/clearsight/internal/types"
)

const (
	appName        = "clearsight"
	configFileName = "config.yaml"
)

// Provider types.
const (
	ProviderGemini           = "gemini"
	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai-compatible"
	ProviderClaude           = "claude"
)

// envKeys maps provider types to the environment variable consulted when
// no credential of that type is configured.
var envKeys = []struct{ provider, env string }{
	{ProviderGemini, "GEMINI_API_KEY"},
	{ProviderOpenAI, "OPENAI_API_KEY"},
	{ProviderClaude, "ANTHROPIC_API_KEY"},
}

// Recognizer names.
const (
	RecognizerAuto     = "auto"
	RecognizerVosk     = "vosk"
	RecognizerWhisper  = "whisper"
	RecognizerRealtime = "realtime"
	RecognizerNone     = "none"
)

// Speech outputs.
const (
	OutputVoice  = "voice"
	OutputNotify = "notify"
	OutputBoth   = "both"
	OutputNone   = "none"
)

// Camera sources.
const (
	CameraFFmpeg = "ffmpeg"
	CameraDir    = "dir"
	CameraScreen = "screen"
)

// Config represents the application configuration.
type Config struct {
	Credentials []types.APICredential `yaml:"credentials,omitempty"`
	Profile     types.ModelProfile    `yaml:"profile"`
	Camera      CameraConfig          `yaml:"camera"`
	Speech      SpeechConfig          `yaml:"speech"`
	Cache       CacheConfig           `yaml:"cache"`
	Session     SessionConfig         `yaml:"session"`

	// Hotkeys maps actions (capture, toggle_polling, toggle_listening,
	// back) to key combos such as "ctrl+shift+c".
	Hotkeys map[string]string `yaml:"hotkeys,omitempty"`

	// Settings seeds the settings store at startup.
	Settings types.Settings `yaml:"settings"`

	// credentials taken from the environment; never saved
	env []types.APICredential
}

// CameraConfig selects the frame source.
type CameraConfig struct {
	Source      string `yaml:"source"` // ffmpeg, dir or screen
	Binary      string `yaml:"binary,omitempty"`
	InputFormat string `yaml:"input_format,omitempty"`
	FrontDevice string `yaml:"front_device,omitempty"`
	BackDevice  string `yaml:"back_device,omitempty"`
	Size        string `yaml:"size,omitempty"`
	Dir         string `yaml:"dir,omitempty"`
}

// SpeechConfig selects speech recognition and output.
type SpeechConfig struct {
	Recognizer    string `yaml:"recognizer"`
	CredentialID  string `yaml:"credential_id,omitempty"` // OpenAI credential for whisper and realtime
	VoskModel     string `yaml:"vosk_model,omitempty"`
	WhisperModel  string `yaml:"whisper_model,omitempty"`
	RealtimeModel string `yaml:"realtime_model,omitempty"`

	Output string `yaml:"output"`
	Engine string `yaml:"engine,omitempty"` // say, espeak-ng, ...; empty picks the first found
	Voice  string `yaml:"voice,omitempty"`
}

// CacheConfig controls the AI answer cache.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Path    string   `yaml:"path,omitempty"` // empty keeps the cache in memory
	TTL     Duration `yaml:"ttl"`
}

// SessionConfig tunes the mode sessions.
type SessionConfig struct {
	SignInterval Duration `yaml:"sign_interval"`
	SignHistory  int      `yaml:"sign_history"`
	LatencyFloor Duration `yaml:"latency_floor"`
}

// Duration is a time.Duration written as a string such as "2s".
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load loads configuration from the default path.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path, falling back to the defaults
// when the file doesn't exist. Missing fields keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// Save persists the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path. Credentials taken from the
// environment are not written.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// may hold API keys
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Dir returns the application's config directory.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

func defaultConfig() *Config {
	return &Config{
		Profile: types.ModelProfile{
			MaxTokens:      types.DefaultMaxTokens,
			ThinkingBudget: types.DefaultThinkingBudget,
		},
		Camera: CameraConfig{Source: CameraFFmpeg},
		Speech: SpeechConfig{
			Recognizer: RecognizerAuto,
			Output:     OutputVoice,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration(7 * 24 * time.Hour),
		},
		Session: SessionConfig{
			SignInterval: Duration(2 * time.Second),
			SignHistory:  5,
			LatencyFloor: Duration(500 * time.Millisecond),
		},
		Settings: types.DefaultSettings(),
	}
}

// applyEnv adds a credential for every provider that has an API key in
// the environment and none in the file.
func (c *Config) applyEnv(getenv func(string) string) {
	c.env = nil
	for _, k := range envKeys {
		key := getenv(k.env)
		if key == "" || c.hasProvider(k.provider) {
			continue
		}
		c.env = append(c.env, types.APICredential{
			ID:     "env-" + k.provider,
			Name:   k.env,
			Type:   k.provider,
			APIKey: key,
		})
	}
}

func (c *Config) hasProvider(provider string) bool {
	return slices.ContainsFunc(c.Credentials, func(x types.APICredential) bool {
		return x.Type == provider && x.APIKey != ""
	})
}

// AllCredentials returns the configured credentials followed by those
// taken from the environment.
func (c *Config) AllCredentials() []types.APICredential {
	return slices.Concat(c.Credentials, c.env)
}

// Credential returns a credential by ID.
func (c *Config) Credential(id string) *types.APICredential {
	all := c.AllCredentials()
	if i := slices.IndexFunc(all, func(x types.APICredential) bool { return x.ID == id }); i >= 0 {
		return &all[i]
	}
	return nil
}

// CredentialFor returns the credential with the given ID, or the first
// one of provider type when id is empty.
func (c *Config) CredentialFor(id, provider string) *types.APICredential {
	if id != "" {
		return c.Credential(id)
	}
	all := c.AllCredentials()
	if i := slices.IndexFunc(all, func(x types.APICredential) bool { return x.Type == provider }); i >= 0 {
		return &all[i]
	}
	return nil
}

// AddCredential validates and appends a credential, assigning an ID when
// it has none. It does not save.
func (c *Config) AddCredential(cred types.APICredential) (types.APICredential, error) {
	if err := validateCredential(cred); err != nil {
		return cred, err
	}
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	if c.Credential(cred.ID) != nil {
		return cred, fmt.Errorf("credential already exists: %s", cred.ID)
	}
	c.Credentials = append(c.Credentials, cred)
	// a file credential hides the environment one of the same type
	c.env = slices.DeleteFunc(c.env, func(x types.APICredential) bool { return x.Type == cred.Type })
	return cred, nil
}

// ModelCredential resolves the credential of the model profile: the one
// it names, or the first available.
func (c *Config) ModelCredential() (*types.APICredential, error) {
	if id := c.Profile.CredentialID; id != "" {
		cred := c.Credential(id)
		if cred == nil {
			return nil, fmt.Errorf("credential not found: %s", id)
		}
		return cred, nil
	}
	all := c.AllCredentials()
	if len(all) == 0 {
		return nil, errors.New("no API credential configured")
	}
	return &all[0], nil
}

// Models returns the text, vision and chat models of the profile, filled
// with the defaults for provider.
func (c *Config) Models(provider string) (text, vision, chat string) {
	d := defaultModels[provider]
	if d == [3]string{} {
		d = defaultModels[ProviderOpenAI]
	}
	text, vision, chat = c.Profile.TextModel, c.Profile.VisionModel, c.Profile.ChatModel
	if text == "" {
		text = d[0]
	}
	if vision == "" {
		vision = d[1]
	}
	if chat == "" {
		chat = d[2]
	}
	return text, vision, chat
}

// defaultModels holds text, vision and chat models per provider.
var defaultModels = map[string][3]string{
	ProviderGemini: {"gemini-3-pro-preview", "gemini-3-pro-preview", "gemini-3-pro-preview"},
	ProviderOpenAI: {"gpt-4.1-mini", "gpt-4.1", "gpt-4.1"},
	ProviderClaude: {"claude-haiku-4-5", "claude-sonnet-4-5", "claude-sonnet-4-5"},
}

// Validate reports configuration that cannot produce a working gateway.
func (c *Config) Validate() error {
	var errs []error
	for _, cred := range c.Credentials {
		if err := validateCredential(cred); err != nil {
			errs = append(errs, fmt.Errorf("credential %q: %w", cred.Name, err))
		}
	}
	cred, err := c.ModelCredential()
	if err != nil {
		errs = append(errs, err)
	} else if cred.Type == ProviderOpenAICompatible {
		if c.Profile.TextModel == "" || c.Profile.VisionModel == "" || c.Profile.ChatModel == "" {
			errs = append(errs, errors.New("openai-compatible profile needs text, vision and chat models"))
		}
	}

	if !slices.Contains([]string{CameraFFmpeg, CameraDir, CameraScreen}, c.Camera.Source) {
		errs = append(errs, fmt.Errorf("unknown camera source: %q", c.Camera.Source))
	}
	if c.Camera.Source == CameraDir && c.Camera.Dir == "" {
		errs = append(errs, errors.New("camera source dir needs camera.dir"))
	}
	if !slices.Contains([]string{RecognizerAuto, RecognizerVosk, RecognizerWhisper, RecognizerRealtime, RecognizerNone}, c.Speech.Recognizer) {
		errs = append(errs, fmt.Errorf("unknown recognizer: %q", c.Speech.Recognizer))
	}
	if !slices.Contains([]string{OutputVoice, OutputNotify, OutputBoth, OutputNone}, c.Speech.Output) {
		errs = append(errs, fmt.Errorf("unknown speech output: %q", c.Speech.Output))
	}
	if c.Session.SignInterval.Std() <= 0 {
		errs = append(errs, errors.New("session.sign_interval must be positive"))
	}
	if c.Session.SignHistory <= 0 {
		errs = append(errs, errors.New("session.sign_history must be positive"))
	}
	return errors.Join(errs...)
}

func validateCredential(cred types.APICredential) error {
	if cred.Name == "" {
		return errors.New("credential name required")
	}
	if cred.APIKey == "" {
		return errors.New("api key required")
	}
	switch cred.Type {
	case ProviderGemini, ProviderOpenAI, ProviderClaude:
	case ProviderOpenAICompatible:
		if cred.BaseURL == "" {
			return errors.New("base url required for openai-compatible")
		}
	default:
		return fmt.Errorf("unknown provider type: %q", cred.Type)
	}
	return nil
}
