// Package app wires configuration, the AI gateway, the devices and the
// mode navigator into one application service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"go.aimuz.me/clearsight/cache"
	"go.aimuz.me/clearsight/config"
	"go.aimuz.me/clearsight/gateway"
	"go.aimuz.me/clearsight/hotkey"
	"go.aimuz.me/clearsight/llm"
	"go.aimuz.me/clearsight/session"
	"go.aimuz.me/clearsight/settings"
	"go.aimuz.me/clearsight/shell"
)

// Options tune New.
type Options struct {
	Registry prometheus.Registerer // gateway metrics; nil disables them
	OnChange func()                // called on every state change; must not block
	Hotkeys  bool                  // register global shortcuts
	Devices  *shell.Devices        // overrides the configured devices
}

// Service is the running application.
type Service struct {
	cfg      *config.Config
	cache    *cache.Cache
	gateway  *gateway.Service
	settings *settings.Store
	nav      *shell.Navigator
	devices  shell.Devices
	hotkey   *hotkey.Manager

	// Version info (set by caller)
	version string
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *config.Config, version string, opts Options) (*Service, error) {
	s := &Service{cfg: cfg, version: version}

	s.setupCache()
	gw, err := NewGateway(cfg, s.cache, opts.Registry)
	if err != nil {
		s.closeCache()
		return nil, err
	}
	s.gateway = gw
	s.settings = settings.NewStore(cfg.Settings)

	if opts.Devices != nil {
		s.devices = *opts.Devices
	} else {
		s.devices = Devices(cfg)
	}

	s.nav = shell.New(shell.Config{
		Gateway:  gw,
		Settings: s.settings,
		Devices:  s.devices,
		Sign: session.SignConfig{
			Interval:    cfg.Session.SignInterval.Std(),
			HistorySize: cfg.Session.SignHistory,
		},
		Text:     session.TextConfig{LatencyFloor: cfg.Session.LatencyFloor.Std()},
		OnChange: opts.OnChange,
	})

	if opts.Hotkeys {
		if err := s.setupHotkey(ctx); err != nil {
			slog.Error("start hotkey", "error", err)
		}
	}
	return s, nil
}

// Version returns the application version.
func (s *Service) Version() string { return s.version }

// Navigator returns the mode navigator.
func (s *Service) Navigator() *shell.Navigator { return s.nav }

// Settings returns the settings store.
func (s *Service) Settings() *settings.Store { return s.settings }

// Gateway returns the AI gateway.
func (s *Service) Gateway() *gateway.Service { return s.gateway }

// Shutdown cleans up resources.
func (s *Service) Shutdown() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	s.nav.Close()
	if c, ok := s.devices.Recognizer.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			slog.Error("close recognizer", "error", err)
		}
	}
	s.closeCache()
}

func (s *Service) setupCache() {
	if !s.cfg.Cache.Enabled {
		return
	}
	path := s.cfg.Cache.Path
	if path != "" && !filepath.IsAbs(path) {
		if dir, err := config.Dir(); err == nil {
			path = filepath.Join(dir, path)
		}
	}
	c, err := cache.New(path)
	if err != nil {
		slog.Error("init cache", "error", err)
		return
	}
	s.cache = c
	slog.Info("cache initialized", "path", path, "in_memory", path == "")
}

func (s *Service) closeCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Close(); err != nil {
		slog.Error("close cache", "error", err)
	}
	s.cache = nil
}

func (s *Service) setupHotkey(ctx context.Context) error {
	bindings, err := hotkey.Bindings(s.cfg.Hotkeys)
	if err != nil {
		return err
	}
	s.hotkey = hotkey.NewManager(bindings, func(a hotkey.Action) {
		// the hook goroutine must not block
		go func() {
			if err := s.HandleAction(ctx, a); err != nil && !errors.Is(err, session.ErrBusy) {
				slog.Warn("handle hotkey", "action", a, "error", err)
			}
		}()
	})
	return s.hotkey.Start()
}

// NewGateway builds the AI gateway from the model profile. c may be nil.
func NewGateway(cfg *config.Config, c *cache.Cache, registry prometheus.Registerer) (*gateway.Service, error) {
	cred, err := cfg.ModelCredential()
	if err != nil {
		return nil, fmt.Errorf("resolve credential: %w", err)
	}
	textModel, visionModel, chatModel := cfg.Models(cred.Type)
	p := cfg.Profile
	// Simplify and chat reason deeply; vision answers quickly.
	opts := llm.Options{MaxTokens: p.MaxTokens, Temperature: p.Temperature}
	deepOpts := opts
	deepOpts.ThinkingBudget = p.ThinkingBudget

	slog.Info("gateway configured", "provider", cred.Type, "text", textModel, "vision", visionModel, "chat", chatModel)
	return gateway.New(gateway.Config{
		Text:     llm.NewClient(cred.Type, cred.APIKey, cred.BaseURL, textModel, deepOpts),
		Vision:   llm.NewClient(cred.Type, cred.APIKey, cred.BaseURL, visionModel, opts),
		Chat:     llm.NewClient(cred.Type, cred.APIKey, cred.BaseURL, chatModel, deepOpts),
		Cache:    c,
		CacheTTL: cfg.Cache.TTL.Std(),
		Registry: registry,
	}), nil
}
