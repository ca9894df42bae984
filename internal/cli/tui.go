package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go.aimuz.me/clearsight/internal/app"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/tui"
)

func NewTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:         "tui",
		Short:       "Open the interactive terminal app (default)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotTerminal: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
	}
}

func runTUI(ctx context.Context) error {
	notifier := tui.NewNotifier()
	svc, stop, err := startService(ctx, app.Options{OnChange: notifier.Notify})
	if err != nil {
		return err
	}
	defer stop()

	unsubscribe := svc.Settings().Subscribe(func(types.Settings) { notifier.Notify() })
	defer unsubscribe()

	p := tea.NewProgram(tui.New(ctx, svc.Navigator(), notifier), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
