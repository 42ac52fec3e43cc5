package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"voice-butler/internal/application"
	"voice-butler/internal/infra/grpchealth"
	"voice-butler/internal/infra/httpapi"
	"voice-butler/internal/infra/vosk"
)

const shutdownTimeout = 5 * time.Second

func runCmd() *cobra.Command {
	var noAdmin bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for voice commands and drive the devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runPipeline(ctx, !noAdmin)
		},
	}

	cmd.Flags().BoolVar(&noAdmin, "no-admin", false, "do not start the admin HTTP and gRPC servers")
	return cmd
}

func runPipeline(ctx context.Context, admin bool) error {
	registry, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warn("closing actuators", "error", err)
		}
	}()

	if registry.Simulated() {
		logger.Warn("no actuator hardware found, running in simulation mode")
	}

	if cfg.GPIO.SelfTest {
		if err := registry.SelfTest(ctx, cfg.GPIO.SelfTestLine, 2, 300*time.Millisecond); err != nil {
			logger.Warn("self test failed", "device", cfg.GPIO.SelfTestLine, "error", err)
		}
	}

	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		return err
	}

	source, err := newAudioSource(cfg.Audio, logger)
	if err != nil {
		return err
	}

	recognizer, err := vosk.NewRecognizer(cfg.Recognizer.ModelPath, cfg.Audio.SampleRate)
	if err != nil {
		return fmt.Errorf("loading speech model: %w", err)
	}
	defer recognizer.Close()

	hub := httpapi.NewHub(logger)
	feedback := application.NewFeedback(logger, newSpeakers(cfg, logger)...)

	loop := application.NewDispatchLoop(source, recognizer, classifier, registry, feedback, hub, application.DispatchConfig{
		Keywords:          cfg.Recognizer.RelevanceKeywords,
		QueueSize:         cfg.Audio.QueueSize,
		MuteWhileSpeaking: *cfg.Audio.MuteWhileSpeaking,
		MuteTail:          cfg.Audio.MuteTailDuration(),
		StartupPhrase:     cfg.TTS.StartupPhrase,
	}, logger)

	stopAdmin := hub.Close
	if admin {
		stopAdmin, err = startAdmin(registry, hub, loop)
		if err != nil {
			return err
		}
	}

	logger.Info("starting voice butler",
		"audio_source", cfg.Audio.Source,
		"llm_provider", cfg.LLM.Provider,
		"devices", len(cfg.Devices),
	)

	err = loop.Run(ctx)
	// The loop has reset the lines, but the admin API was still serving.
	stopAndReset(stopAdmin, registry)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startAdmin starts the HTTP API and, when configured, the gRPC health
// server. The returned func stops both.
func startAdmin(registry *application.ActuatorRegistry, hub *httpapi.Hub, pipeline httpapi.PipelineStatus) (func(), error) {
	adminClassifier, err := newAdminClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	controller := application.NewController(adminClassifier, registry, hub, logger)

	server := httpapi.NewServer(cfg.Admin.Addr, controller, hub, cfg.Admin.RateLimit, logger)
	if pipeline != nil {
		server.SetPipeline(pipeline)
	}
	if err := server.Start(); err != nil {
		return nil, err
	}

	var health *grpchealth.Server
	if cfg.Admin.GRPCAddr != "" {
		health, err = grpchealth.NewServer(cfg.Admin.GRPCAddr, logger)
		if err != nil {
			shutdownServer(server)
			return nil, err
		}
		health.Start()
		health.SetServing(registry.Simulated())
	}

	return func() {
		if health != nil {
			health.Stop()
		}
		shutdownServer(server)
	}, nil
}

// stopAndReset stops the admin surfaces first so no request can switch a
// line back on after the final reset.
func stopAndReset(stop func(), registry *application.ActuatorRegistry) {
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := registry.ResetAll(ctx); err != nil {
		logger.Warn("resetting actuators", "error", err)
	}
}

func shutdownServer(server *httpapi.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("stopping admin server", "error", err)
	}
}
