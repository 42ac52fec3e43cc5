package commands

import (
	"github.com/spf13/cobra"

	"voice-butler/internal/infra/httpapi"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run only the admin API, without audio capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			registry, err := newRegistry(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer registry.Close()

			hub := httpapi.NewHub(logger)
			stop, err := startAdmin(registry, hub, nil)
			if err != nil {
				return err
			}

			<-ctx.Done()
			stopAndReset(stop, registry)
			return nil
		},
	}
}
