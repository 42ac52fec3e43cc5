package commands

import (
	"github.com/spf13/cobra"

	"voice-butler/internal/application"
	"voice-butler/internal/infra/mcpserver"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "mcp",
		Short:       "Serve the control tools over MCP stdio",
		Annotations: map[string]string{"logs": "stderr"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			registry, err := newRegistry(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer registry.Close()

			classifier, err := newAdminClassifier(cfg, logger)
			if err != nil {
				return err
			}
			controller := application.NewController(classifier, registry, nil, logger)

			return mcpserver.NewServer(controller, version, logger).Run(ctx)
		},
	}
}
