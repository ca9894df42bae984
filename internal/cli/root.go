// Package cli implements the clearsight command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.aimuz.me/clearsight/config"
)

// Build information, set by main.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

type globalOptions struct {
	LogLevel    LogLevel
	ConfigPath  string
	MetricsAddr string
	Hotkeys     bool
}

// annotation keys
const (
	// annotTerminal marks commands that own stdout, so logs go to the file only.
	annotTerminal = "terminal"
)

func NewRootCmd() *cobra.Command {
	options := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "clearsight",
		Short: "ClearSight: see, hear and read with an AI assistant.",
		Long: `ClearSight turns the camera, the microphone and hard text into words you
can read or hear: sign language, live captions, plain-language rewrites,
scene descriptions and a conversational assistant.`,
		Annotations:   map[string]string{annotTerminal: "true"},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			options.LogLevel = resolveLogLevel(cmd, options)
			_, toTerminal := cmd.Annotations[annotTerminal]
			slog.SetDefault(slog.New(slog.NewJSONHandler(setupLogSink(cmd.ErrOrStderr(), toTerminal), &slog.HandlerOptions{
				Level: options.LogLevel.SlogLevel(),
			})))
			cmd.SetContext(setGlobalOptions(cmd.Context(), options))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
	}

	cmd.PersistentFlags().Var(&options.LogLevel, "log-level", "set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&options.ConfigPath, "config", "", "config file (default is the user config dir)")
	cmd.PersistentFlags().StringVar(&options.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	cmd.PersistentFlags().BoolVar(&options.Hotkeys, "hotkeys", false, "register global keyboard shortcuts")

	cmd.AddCommand(NewTUICmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewSimplifyCmd())
	cmd.AddCommand(NewDescribeCmd())
	cmd.AddCommand(NewSignCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

// Execute runs the command line and exits on failure.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		cancel()
		os.Exit(1)
	}
}

type contextKey int

const contextKeyGlobalOptions contextKey = iota

func setGlobalOptions(ctx context.Context, o *globalOptions) context.Context {
	return context.WithValue(ctx, contextKeyGlobalOptions, o)
}

func getGlobalOptions(ctx context.Context) *globalOptions {
	if o, ok := ctx.Value(contextKeyGlobalOptions).(*globalOptions); ok {
		return o
	}
	return &globalOptions{}
}

// loadConfig loads the config named by --config, or the default one.
func loadConfig(ctx context.Context) (*config.Config, error) {
	if path := getGlobalOptions(ctx).ConfigPath; path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
