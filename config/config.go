package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voice-butler/internal/domain"
)

type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Recognizer    RecognizerConfig    `yaml:"recognizer"`
	LLM           LLMConfig           `yaml:"llm"`
	Classifier    ClassifierConfig    `yaml:"classifier"`
	Devices       []DeviceConfig      `yaml:"devices"`
	GPIO          GPIOConfig          `yaml:"gpio"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Tuya          TuyaConfig          `yaml:"tuya"`
	TTS           TTSConfig           `yaml:"tts"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	Admin         AdminConfig         `yaml:"admin"`
	Log           LogConfig           `yaml:"log"`
}

type AudioConfig struct {
	// Source is one of portaudio, malgo or replay.
	Source            string `yaml:"source"`
	ReplayPath        string `yaml:"replay_path"`
	ReplayRealtime    bool   `yaml:"replay_realtime"`
	SampleRate        int    `yaml:"sample_rate"`
	FrameSamples      int    `yaml:"frame_samples"`
	QueueSize         int    `yaml:"queue_size"`
	MuteWhileSpeaking *bool  `yaml:"mute_while_speaking"`
	MuteTail          string `yaml:"mute_tail"`
}

type RecognizerConfig struct {
	ModelPath         string   `yaml:"model_path"`
	RelevanceKeywords []string `yaml:"relevance_keywords"`
}

type LLMConfig struct {
	// Provider is one of ollama, openai, anthropic or gemini.
	Provider     string `yaml:"provider"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	Timeout      string `yaml:"timeout"`
	Proxy        string `yaml:"proxy"`
	SystemPrompt string `yaml:"system_prompt"`
}

type ClassifierConfig struct {
	FallbackWhenUnreachable *bool                       `yaml:"fallback_when_unreachable"`
	UnavailableReply        string                      `yaml:"unavailable_reply"`
	Rules                   []domain.ClassificationRule `yaml:"rules"`
}

type DeviceConfig struct {
	Name string `yaml:"name"`
	// Kind is binary or climate.
	Kind string `yaml:"kind"`
	// Driver is gpio, homeassistant, tuya or none.
	Driver string `yaml:"driver"`
	// Address is the GPIO offset, Home Assistant entity id or Tuya device id.
	Address string `yaml:"address"`
}

type GPIOConfig struct {
	Chip         string `yaml:"chip"`
	SelfTest     bool   `yaml:"self_test"`
	SelfTestLine string `yaml:"self_test_device"`
}

type HomeAssistantConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type TuyaConfig struct {
	ClientID   string `yaml:"client_id"`
	Secret     string `yaml:"secret"`
	Region     string `yaml:"region"`
	SwitchCode string `yaml:"switch_code"`
}

type TTSConfig struct {
	// Engine is espeak or none.
	Engine        string `yaml:"engine"`
	Binary        string `yaml:"binary"`
	Voice         string `yaml:"voice"`
	Rate          int    `yaml:"rate"`
	Chime         bool   `yaml:"chime"`
	ChimeFile     string `yaml:"chime_file"`
	StartupPhrase string `yaml:"startup_phrase"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type AdminConfig struct {
	Addr string `yaml:"addr"`
	// Model and SystemPrompt override the llm section for the HTTP and MCP paths.
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	RateLimit    int    `yaml:"rate_limit"`
	GRPCAddr     string `yaml:"grpc_addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Format is text, json or tint.
	Format string `yaml:"format"`
}

// Load reads a YAML config file. Variables from envFile (if it exists) are
// loaded into the environment before ${VAR} references are expanded. An
// empty path yields the defaults.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "portaudio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FrameSamples == 0 {
		c.Audio.FrameSamples = 4000
	}
	if c.Audio.QueueSize == 0 {
		c.Audio.QueueSize = 8
	}
	if c.Audio.MuteWhileSpeaking == nil {
		c.Audio.MuteWhileSpeaking = boolPtr(true)
	}
	if c.Audio.MuteTail == "" {
		c.Audio.MuteTail = "500ms"
	}
	if c.Recognizer.ModelPath == "" {
		c.Recognizer.ModelPath = "model"
	}
	if c.Recognizer.RelevanceKeywords == nil {
		c.Recognizer.RelevanceKeywords = DefaultKeywords()
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == "ollama" {
		c.LLM.BaseURL = "http://127.0.0.1:11434"
	}
	if c.LLM.Model == "" && c.LLM.Provider == "ollama" {
		c.LLM.Model = "qwen2.5:1.5b"
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = "10s"
	}
	if c.LLM.SystemPrompt == "" {
		c.LLM.SystemPrompt = DefaultSystemPrompt
	}
	if c.Classifier.FallbackWhenUnreachable == nil {
		c.Classifier.FallbackWhenUnreachable = boolPtr(true)
	}
	if c.Classifier.UnavailableReply == "" {
		c.Classifier.UnavailableReply = "Ollama 服务未启动"
	}
	if c.Classifier.Rules == nil {
		c.Classifier.Rules = DefaultRules()
	}
	if c.Devices == nil {
		c.Devices = []DeviceConfig{
			{Name: domain.DeviceLight, Kind: string(domain.KindBinary), Driver: "gpio", Address: "17"},
			{Name: domain.DeviceFan, Kind: string(domain.KindBinary), Driver: "gpio", Address: "27"},
		}
	}
	for i := range c.Devices {
		if c.Devices[i].Kind == "" {
			c.Devices[i].Kind = string(domain.KindBinary)
		}
		if c.Devices[i].Driver == "" {
			c.Devices[i].Driver = "none"
		}
	}
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = "gpiochip0"
	}
	if c.GPIO.SelfTestLine == "" {
		c.GPIO.SelfTestLine = domain.DeviceLight
	}
	if c.Tuya.Region == "" {
		c.Tuya.Region = "us"
	}
	if c.Tuya.SwitchCode == "" {
		c.Tuya.SwitchCode = "switch_1"
	}
	if c.TTS.Engine == "" {
		c.TTS.Engine = "espeak"
	}
	if c.TTS.Binary == "" {
		c.TTS.Binary = "espeak-ng"
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = "zh"
	}
	if c.TTS.Rate == 0 {
		c.TTS.Rate = 165
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = ":8000"
	}
	if c.Admin.RateLimit == 0 {
		c.Admin.RateLimit = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects configurations that cannot start.
func (c *Config) Validate() error {
	var errs []error

	switch c.Audio.Source {
	case "portaudio", "malgo", "replay":
	default:
		errs = append(errs, fmt.Errorf("audio.source: unknown source %q", c.Audio.Source))
	}
	if c.Audio.Source == "replay" && c.Audio.ReplayPath == "" {
		errs = append(errs, errors.New("audio.replay_path is required for the replay source"))
	}

	switch c.LLM.Provider {
	case "ollama", "openai", "anthropic", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}

	seen := make(map[string]bool, len(c.Devices))
	for _, d := range c.Devices {
		name := strings.ToLower(strings.TrimSpace(d.Name))
		if name == "" {
			errs = append(errs, errors.New("devices: entry without name"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("devices: duplicate name %q", name))
		}
		seen[name] = true

		switch domain.DeviceKind(d.Kind) {
		case domain.KindBinary, domain.KindClimate:
		default:
			errs = append(errs, fmt.Errorf("devices.%s: unknown kind %q", name, d.Kind))
		}
		switch d.Driver {
		case "gpio", "homeassistant", "tuya", "none":
		default:
			errs = append(errs, fmt.Errorf("devices.%s: unknown driver %q", name, d.Driver))
		}
	}

	switch c.Log.Format {
	case "text", "json", "tint":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	for _, field := range []struct{ name, value string }{
		{"llm.timeout", c.LLM.Timeout},
		{"audio.mute_tail", c.Audio.MuteTail},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		}
	}

	return errors.Join(errs...)
}

func (c *LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (c *AudioConfig) MuteTailDuration() time.Duration {
	d, err := time.ParseDuration(c.MuteTail)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func (c *AudioConfig) FrameBytes() int {
	return c.FrameSamples * 2
}

// DeviceSpecs converts the devices section for the actuator registry.
func (c *Config) DeviceSpecs() []domain.DeviceSpec {
	specs := make([]domain.DeviceSpec, 0, len(c.Devices))
	for _, d := range c.Devices {
		specs = append(specs, domain.DeviceSpec{
			Name:    strings.ToLower(strings.TrimSpace(d.Name)),
			Kind:    domain.DeviceKind(d.Kind),
			Driver:  d.Driver,
			Address: d.Address,
		})
	}
	return specs
}

func boolPtr(b bool) *bool { return &b }
