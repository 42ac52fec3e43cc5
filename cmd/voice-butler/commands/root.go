package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"voice-butler/config"
)

var version = "dev"

var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "voice-butler",
		Short:         "Offline voice control for lights, fans and climate",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if !cmd.Flags().Changed("config") {
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					path = ""
				}
			}

			loaded, err := config.Load(path, envFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.Log.Level = logLevel
			}
			if logFormat != "" {
				loaded.Log.Format = logFormat
			}
			cfg = loaded

			// mcp and classify keep stdout for their own output.
			var out io.Writer = os.Stdout
			if cmd.Annotations["logs"] == "stderr" {
				out = os.Stderr
			}
			logger = newLogger(out, cfg.Log)
			slog.SetDefault(logger)
			return nil
		},
	}

	addGlobalFlags(root.PersistentFlags())

	root.AddCommand(runCmd(), serveCmd(), classifyCmd(), mcpCmd(), devicesCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	fs.StringVar(&envFile, "env", ".env", "env file loaded before ${VAR} expansion")
	fs.StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	fs.StringVar(&logFormat, "log-format", "", "override log.format (text, json, tint)")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
			logger.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
