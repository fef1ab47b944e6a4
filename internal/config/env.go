package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadEnvFiles loads .env files from the working directory and the user's
// Aria config locations into the process environment. Existing variables
// are never overwritten.
func LoadEnvFiles() error {
	envPaths := []string{
		"./.env",
	}

	if home, err := os.UserHomeDir(); err == nil {
		envPaths = append(envPaths,
			filepath.Join(home, ".aria", ".env"),
			filepath.Join(home, ".config", "aria", ".env"),
		)
	}

	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			if err := loadEnvFile(path); err != nil {
				return err
			}
		}
	}

	return nil
}

func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// loadEnvOverrides loads env vars that Viper doesn't handle well with
// nested provider maps.
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.LLM.DefaultProvider = getEnv("ARIA_LLM_DEFAULT_PROVIDER", cfg.LLM.DefaultProvider)

	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]Provider)
	}

	if apiKey := os.Getenv("ARIA_LLM_PROVIDERS_OPENAI_API_KEY"); apiKey != "" {
		p := cfg.LLM.Providers["openai"]
		p.APIKey = apiKey
		p.BaseURL = getEnv("ARIA_LLM_PROVIDERS_OPENAI_BASE_URL", p.BaseURL)
		p.Model = getEnv("ARIA_LLM_PROVIDERS_OPENAI_MODEL", p.Model)
		cfg.LLM.Providers["openai"] = p
	}

	// OPENAI_API_KEY keeps parity with the dotenv setup most users already have.
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		p := cfg.LLM.Providers["openai"]
		if p.APIKey == "" {
			p.APIKey = apiKey
			cfg.LLM.Providers["openai"] = p
		}
	}

	cfg.Server.Address = getEnv("ARIA_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("ARIA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Storage.DataDir = getEnv("ARIA_STORAGE_DATA_DIR", cfg.Storage.DataDir)

	if capacity := os.Getenv("ARIA_CONVERSATION_HISTORY_CAPACITY"); capacity != "" {
		if n, err := strconv.Atoi(capacity); err == nil {
			cfg.Conversation.HistoryCapacity = n
		}
	}
	if rounds := os.Getenv("ARIA_CONVERSATION_MAX_TOOL_ROUNDS"); rounds != "" {
		if n, err := strconv.Atoi(rounds); err == nil {
			cfg.Conversation.MaxToolRounds = n
		}
	}
	cfg.Conversation.SystemPrompt = getEnv("ARIA_CONVERSATION_SYSTEM_PROMPT", cfg.Conversation.SystemPrompt)

	cfg.Voice.WhisperModelPath = getEnv("ARIA_VOICE_WHISPER_MODEL_PATH", cfg.Voice.WhisperModelPath)
	cfg.Voice.PiperModelPath = getEnv("ARIA_VOICE_PIPER_MODEL_PATH", cfg.Voice.PiperModelPath)

	cfg.Reminders.Schedule = getEnv("ARIA_REMINDERS_SCHEDULE", cfg.Reminders.Schedule)
}
