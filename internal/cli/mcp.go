package cli

import (
	"github.com/spf13/cobra"

	"go.aimuz.me/clearsight/internal/app"
	"go.aimuz.me/clearsight/mcpserver"
)

func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the AI tools to MCP clients over stdio",
		Long: `Run an MCP server on stdin and stdout with the tools simplify_text,
describe_image and interpret_sign.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotTerminal: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, stop, err := startService(cmd.Context(), app.Options{Devices: noDevices()})
			if err != nil {
				return err
			}
			defer stop()

			server := mcpserver.New(svc.Gateway(), mcpserver.Config{
				Name:     "clearsight",
				Version:  Version,
				Settings: svc.Settings(),
			})
			return server.RunStdio(cmd.Context())
		},
	}
}
