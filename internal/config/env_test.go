package config

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/gmsas95/aria/internal/errors"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	content := `# comment line
ARIA_TEST_KEY=value1
ARIA_TEST_QUOTED="quoted value"

ARIA_TEST_SINGLE='single'
malformed-line
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	for _, key := range []string{"ARIA_TEST_KEY", "ARIA_TEST_QUOTED", "ARIA_TEST_SINGLE"} {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile failed: %v", err)
	}

	if got := os.Getenv("ARIA_TEST_KEY"); got != "value1" {
		t.Errorf("ARIA_TEST_KEY = %q, want value1", got)
	}
	if got := os.Getenv("ARIA_TEST_QUOTED"); got != "quoted value" {
		t.Errorf("ARIA_TEST_QUOTED = %q, want quoted value", got)
	}
	if got := os.Getenv("ARIA_TEST_SINGLE"); got != "single" {
		t.Errorf("ARIA_TEST_SINGLE = %q, want single", got)
	}
}

func TestLoadEnvFileDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	os.Setenv("ARIA_TEST_EXISTING", "original")
	t.Cleanup(func() { os.Unsetenv("ARIA_TEST_EXISTING") })

	if err := os.WriteFile(path, []byte("ARIA_TEST_EXISTING=changed\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile failed: %v", err)
	}

	if got := os.Getenv("ARIA_TEST_EXISTING"); got != "original" {
		t.Errorf("existing variable was overwritten: %q", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	os.Setenv("ARIA_LLM_PROVIDERS_OPENAI_API_KEY", "test-key")
	t.Cleanup(func() { os.Unsetenv("ARIA_LLM_PROVIDERS_OPENAI_API_KEY") })

	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Conversation.HistoryCapacity != 20 {
		t.Errorf("history_capacity = %d, want 20", cfg.Conversation.HistoryCapacity)
	}
	if cfg.Conversation.MaxToolRounds != 5 {
		t.Errorf("max_tool_rounds = %d, want 5", cfg.Conversation.MaxToolRounds)
	}
	if cfg.Conversation.SystemPrompt == "" {
		t.Error("system prompt should default to non-empty")
	}
	if cfg.Storage.SQLitePath != filepath.Join(dir, "aria.db") {
		t.Errorf("sqlite_path = %q", cfg.Storage.SQLitePath)
	}

	provider, err := cfg.DefaultProvider()
	if err != nil {
		t.Fatalf("DefaultProvider failed: %v", err)
	}
	if provider.APIKey != "test-key" {
		t.Errorf("api key = %q, want test-key", provider.APIKey)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()

	os.Setenv("ARIA_LLM_PROVIDERS_OPENAI_API_KEY", "test-key")
	os.Setenv("ARIA_CONVERSATION_MAX_TOOL_ROUNDS", "3")
	os.Setenv("ARIA_CONVERSATION_HISTORY_CAPACITY", "8")
	t.Cleanup(func() {
		os.Unsetenv("ARIA_LLM_PROVIDERS_OPENAI_API_KEY")
		os.Unsetenv("ARIA_CONVERSATION_MAX_TOOL_ROUNDS")
		os.Unsetenv("ARIA_CONVERSATION_HISTORY_CAPACITY")
	})

	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Conversation.MaxToolRounds != 3 {
		t.Errorf("max_tool_rounds = %d, want 3", cfg.Conversation.MaxToolRounds)
	}
	if cfg.Conversation.HistoryCapacity != 8 {
		t.Errorf("history_capacity = %d, want 8", cfg.Conversation.HistoryCapacity)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	dir := t.TempDir()

	os.Unsetenv("ARIA_LLM_PROVIDERS_OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")

	_, err := Load("", dir)
	if err == nil {
		t.Fatal("expected error when no API key is configured")
	}
	if code := apperrors.GetCode(err); code != "CONFIG_002" {
		t.Errorf("code = %s, want CONFIG_002", code)
	}
}

func TestLoadMissingExplicitConfig(t *testing.T) {
	dir := t.TempDir()

	os.Setenv("ARIA_LLM_PROVIDERS_OPENAI_API_KEY", "test-key")
	t.Cleanup(func() { os.Unsetenv("ARIA_LLM_PROVIDERS_OPENAI_API_KEY") })

	_, err := Load(filepath.Join(dir, "missing.yaml"), dir)
	if err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
	if code := apperrors.GetCode(err); code != "CONFIG_001" {
		t.Errorf("code = %s, want CONFIG_001", code)
	}
}
