package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/gmsas95/aria/internal/errors"
)

// Config holds all configuration for Aria.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Voice        VoiceConfig        `mapstructure:"voice"`
	Reminders    RemindersConfig    `mapstructure:"reminders"`
}

// ServerConfig holds dashboard HTTP server settings.
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	DefaultProvider string              `mapstructure:"default_provider"`
	Providers       map[string]Provider `mapstructure:"providers"`
}

// Provider holds individual LLM provider configuration.
type Provider struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	Model             string `mapstructure:"model"`
	Timeout           int    `mapstructure:"timeout"`
	MaxTokens         int    `mapstructure:"max_tokens"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// ConversationConfig holds the values the conversation core consumes:
// history capacity, the tool round-trip cap, and the pinned system instruction.
type ConversationConfig struct {
	HistoryCapacity int    `mapstructure:"history_capacity"`
	MaxToolRounds   int    `mapstructure:"max_tool_rounds"`
	SystemPrompt    string `mapstructure:"system_prompt"`
}

// VoiceConfig holds STT/TTS collaborator settings.
type VoiceConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	WhisperModelPath string  `mapstructure:"whisper_model_path"`
	PiperModelPath   string  `mapstructure:"piper_model_path"`
	PiperConfigPath  string  `mapstructure:"piper_config_path"`
	SampleRate       int     `mapstructure:"sample_rate"`
	Channels         int     `mapstructure:"channels"`
	ListenSeconds    int     `mapstructure:"listen_seconds"`
	LengthScale      float64 `mapstructure:"length_scale"`
}

// RemindersConfig holds the task reminder scheduler settings.
type RemindersConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// DefaultSystemPrompt is the pinned instruction used when no override is
// configured. It is written for spoken replies.
const DefaultSystemPrompt = `You are Aria, a helpful voice assistant with memory and task management capabilities.

You can:
- Remember things using save_memory
- Recall information using get_memory
- Create, list, complete and delete tasks
- Tell the current time

Be conversational but concise since you're speaking out loud.
When the user asks you to remember something, use the save_memory function.
When they ask about something they told you before, use get_memory.`

// Load loads configuration from file, env, and defaults.
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "aria.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "badger"))

	explicit := configPath != ""
	if configPath == "" {
		configPath = filepath.Join(dataDir, "aria.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid, "failed to read config")
		}
	} else if explicit {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigNotFound, configPath)
	}

	// Environment variables (ARIA_SERVER_PORT, ARIA_CONVERSATION_MAX_TOOL_ROUNDS, ...)
	v.SetEnvPrefix("ARIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Viper doesn't handle nested provider maps well with env vars.
	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid, "invalid configuration")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.providers.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.providers.openai.timeout", 60)
	v.SetDefault("llm.providers.openai.max_tokens", 1024)
	v.SetDefault("llm.providers.openai.requests_per_minute", 60)

	v.SetDefault("conversation.history_capacity", 20)
	v.SetDefault("conversation.max_tool_rounds", 5)
	v.SetDefault("conversation.system_prompt", DefaultSystemPrompt)

	v.SetDefault("voice.enabled", true)
	v.SetDefault("voice.sample_rate", 16000)
	v.SetDefault("voice.channels", 1)
	v.SetDefault("voice.listen_seconds", 10)
	v.SetDefault("voice.length_scale", 1.0)

	v.SetDefault("reminders.enabled", false)
	v.SetDefault("reminders.schedule", "0 9 * * *")
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "aria")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "aria")
}

func validate(cfg *Config) error {
	if cfg.LLM.DefaultProvider == "" {
		return fmt.Errorf("llm.default_provider is required")
	}

	provider, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]
	if !ok {
		return fmt.Errorf("provider %s not configured", cfg.LLM.DefaultProvider)
	}

	if provider.APIKey == "" {
		return fmt.Errorf("llm.providers.%s.api_key is required", cfg.LLM.DefaultProvider)
	}

	if cfg.Conversation.HistoryCapacity < 1 {
		return fmt.Errorf("conversation.history_capacity must be positive")
	}
	if cfg.Conversation.MaxToolRounds < 1 {
		return fmt.Errorf("conversation.max_tool_rounds must be positive")
	}

	// Voice model paths default under the data directory when unset.
	if cfg.Voice.WhisperModelPath == "" {
		cfg.Voice.WhisperModelPath = filepath.Join(cfg.Storage.DataDir, "models", "whisper", "ggml-base.en.bin")
	}
	if cfg.Voice.PiperModelPath == "" {
		cfg.Voice.PiperModelPath = filepath.Join(cfg.Storage.DataDir, "models", "piper", "en_US-lessac-medium.onnx")
	}
	if cfg.Voice.PiperConfigPath == "" {
		cfg.Voice.PiperConfigPath = cfg.Voice.PiperModelPath + ".json"
	}

	return nil
}

// GetProvider returns the provider configuration by name.
func (c *Config) GetProvider(name string) (Provider, bool) {
	p, ok := c.LLM.Providers[name]
	return p, ok
}

// DefaultProvider returns the default provider configuration.
func (c *Config) DefaultProvider() (Provider, error) {
	p, ok := c.LLM.Providers[c.LLM.DefaultProvider]
	if !ok {
		return Provider{}, apperrors.Wrap(
			fmt.Errorf("default provider %s not found", c.LLM.DefaultProvider),
			apperrors.ErrProviderNotConfigured, "no model provider configured")
	}
	return p, nil
}
