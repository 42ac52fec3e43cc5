package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voice-butler/config"
	"voice-butler/internal/application"
	"voice-butler/internal/infra/anthropic"
	"voice-butler/internal/infra/audio"
	"voice-butler/internal/infra/chime"
	"voice-butler/internal/infra/gemini"
	"voice-butler/internal/infra/gpio"
	"voice-butler/internal/infra/homeassistant"
	"voice-butler/internal/infra/ollama"
	"voice-butler/internal/infra/openai"
	"voice-butler/internal/infra/proxy"
	"voice-butler/internal/infra/pushover"
	"voice-butler/internal/infra/tts"
	"voice-butler/internal/infra/tuya"
)

const registryOpenTimeout = 15 * time.Second

func newChatService(llm config.LLMConfig, model string) (application.ChatService, error) {
	// The classifier bounds each call itself; the client timeout only
	// catches a stuck connection.
	httpClient, err := proxy.NewSocksClient(llm.Proxy, llm.TimeoutDuration()+5*time.Second)
	if err != nil {
		return nil, err
	}

	switch llm.Provider {
	case "ollama":
		return ollama.NewClient(llm.BaseURL, model, httpClient), nil
	case "openai":
		return openai.NewChatClient(llm.APIKey, model, llm.BaseURL, httpClient), nil
	case "anthropic":
		if llm.BaseURL != "" {
			return anthropic.NewClaudeClientWithURL(llm.APIKey, model, llm.BaseURL, httpClient), nil
		}
		return anthropic.NewClaudeClient(llm.APIKey, model, httpClient), nil
	case "gemini":
		if llm.BaseURL != "" {
			return gemini.NewClientWithURL(llm.APIKey, model, llm.BaseURL, httpClient), nil
		}
		return gemini.NewClient(llm.APIKey, model, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llm.Provider)
	}
}

// newClassifier builds the voice-path classifier.
func newClassifier(c *config.Config, log *slog.Logger) (*application.IntentClassifier, error) {
	return buildClassifier(c, c.LLM.Model, c.LLM.SystemPrompt, log)
}

// newAdminClassifier applies the admin model and prompt overrides.
func newAdminClassifier(c *config.Config, log *slog.Logger) (*application.IntentClassifier, error) {
	model, prompt := c.LLM.Model, c.LLM.SystemPrompt
	if c.Admin.Model != "" {
		model = c.Admin.Model
	}
	if c.Admin.SystemPrompt != "" {
		prompt = c.Admin.SystemPrompt
	}
	return buildClassifier(c, model, prompt, log)
}

func buildClassifier(c *config.Config, model, prompt string, log *slog.Logger) (*application.IntentClassifier, error) {
	chat, err := newChatService(c.LLM, model)
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	return application.NewIntentClassifier(chat, application.ClassifierConfig{
		SystemPrompt:            prompt,
		Timeout:                 c.LLM.TimeoutDuration(),
		UnavailableReply:        c.Classifier.UnavailableReply,
		FallbackWhenUnreachable: *c.Classifier.FallbackWhenUnreachable,
		Rules:                   c.Classifier.Rules,
	}, log), nil
}

func newDrivers(c *config.Config) map[string]application.LineDriver {
	return map[string]application.LineDriver{
		"gpio":          gpio.NewDriver(c.GPIO.Chip),
		"homeassistant": homeassistant.NewClient(c.HomeAssistant.URL, c.HomeAssistant.Token),
		"tuya":          tuya.NewClient(c.Tuya.ClientID, c.Tuya.Secret, c.Tuya.Region, c.Tuya.SwitchCode),
	}
}

func newRegistry(ctx context.Context, c *config.Config, log *slog.Logger) (*application.ActuatorRegistry, error) {
	openCtx, cancel := context.WithTimeout(ctx, registryOpenTimeout)
	defer cancel()

	registry, err := application.NewRegistry(openCtx, c.DeviceSpecs(), newDrivers(c), log)
	if err != nil {
		return nil, fmt.Errorf("opening actuators: %w", err)
	}
	return registry, nil
}

func newAudioSource(a config.AudioConfig, log *slog.Logger) (application.FrameSource, error) {
	switch a.Source {
	case "portaudio":
		return audio.NewMicrophoneSource(a.SampleRate, a.FrameSamples, log), nil
	case "malgo":
		return audio.NewMalgoSource(a.SampleRate, a.FrameBytes(), log), nil
	case "replay":
		return audio.NewReplaySource(a.ReplayPath, a.FrameBytes(), a.ReplayRealtime, log), nil
	default:
		return nil, fmt.Errorf("unknown audio source %q", a.Source)
	}
}

// newSpeakers returns the feedback outputs in the order they run. Outputs
// that cannot start are logged and left out.
func newSpeakers(c *config.Config, log *slog.Logger) []application.Speaker {
	var speakers []application.Speaker

	if c.TTS.Chime {
		player, err := chime.NewPlayer(c.TTS.ChimeFile)
		if err != nil {
			log.Warn("chime disabled", "error", err)
		} else {
			speakers = append(speakers, player)
		}
	}

	if c.TTS.Engine == "espeak" {
		espeak := tts.NewEspeak(c.TTS.Binary, c.TTS.Voice, c.TTS.Rate)
		if espeak.Available() {
			speakers = append(speakers, espeak)
		} else {
			log.Warn("speech synthesis disabled, binary not found", "binary", c.TTS.Binary)
		}
	}

	if c.Pushover.Enabled {
		speakers = append(speakers, pushover.NewClient(c.Pushover.Token, c.Pushover.UserKey))
	}

	return speakers
}
