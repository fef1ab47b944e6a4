// Package onboarding is the first-run setup: it collects the API key
// and preferences interactively and writes aria.yaml plus a .env file
// into the workspace.
package onboarding

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Wizard handles the interactive setup process.
type Wizard struct {
	reader    *bufio.Reader
	logger    *zap.Logger
	workspace string

	apiKey      string
	baseURL     string
	model       string
	enableVoice bool
}

// NewWizard creates a setup wizard reading from stdin.
func NewWizard(logger *zap.Logger) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
		logger: logger,
	}
}

// Run walks through setup and writes the workspace files.
func (w *Wizard) Run() error {
	fmt.Println("Welcome to Aria!")
	fmt.Println("Let's get your voice assistant set up.")
	fmt.Println()

	if err := w.setupWorkspace(); err != nil {
		return fmt.Errorf("workspace setup failed: %w", err)
	}
	if err := w.setupProvider(); err != nil {
		return fmt.Errorf("provider setup failed: %w", err)
	}
	w.setupVoice()

	if err := w.writeConfig(); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	fmt.Println()
	fmt.Println("Setup complete!")
	fmt.Printf("  Workspace: %s\n", w.workspace)
	fmt.Printf("  Config:    %s\n", filepath.Join(w.workspace, "aria.yaml"))
	fmt.Println()
	fmt.Println("Start chatting with:  aria -text")
	fmt.Println("Start the dashboard:  aria -server")
	if w.enableVoice {
		fmt.Println("Start voice mode:     aria")
	}
	return nil
}

func (w *Wizard) setupWorkspace() error {
	defaultWorkspace := DefaultWorkspace()

	fmt.Printf("Where should Aria store its data? [default: %s]: ", defaultWorkspace)
	workspace, _ := w.reader.ReadString('\n')
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		workspace = defaultWorkspace
	}
	w.workspace = workspace

	if err := os.MkdirAll(filepath.Join(workspace, "models"), 0755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	fmt.Println("Workspace created.")
	fmt.Println()
	return nil
}

func (w *Wizard) setupProvider() error {
	fmt.Println("Aria talks to any OpenAI-compatible chat completions API.")
	fmt.Println()

	fmt.Print("API base URL [default: https://api.openai.com/v1]: ")
	baseURL, _ := w.reader.ReadString('\n')
	w.baseURL = strings.TrimSpace(baseURL)
	if w.baseURL == "" {
		w.baseURL = "https://api.openai.com/v1"
	}

	for w.apiKey == "" {
		fmt.Print("API key (input hidden): ")
		if term.IsTerminal(int(os.Stdin.Fd())) {
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return err
			}
			w.apiKey = strings.TrimSpace(string(raw))
		} else {
			line, _ := w.reader.ReadString('\n')
			w.apiKey = strings.TrimSpace(line)
		}
		if w.apiKey == "" {
			fmt.Println("An API key is required.")
		}
	}

	fmt.Print("Model [default: gpt-4o-mini]: ")
	model, _ := w.reader.ReadString('\n')
	w.model = strings.TrimSpace(model)
	if w.model == "" {
		w.model = "gpt-4o-mini"
	}

	fmt.Println()
	return nil
}

func (w *Wizard) setupVoice() {
	fmt.Println("Voice mode needs whisper.cpp and piper installed, plus their models")
	fmt.Printf("under %s.\n", filepath.Join(w.workspace, "models"))
	fmt.Print("Enable voice mode? (y/n) [default: n]: ")
	answer, _ := w.reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	w.enableVoice = answer == "y" || answer == "yes"
	fmt.Println()
}

// fileConfig is the yaml shape of aria.yaml. It mirrors the
// mapstructure tags in the config package.
type fileConfig struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"server"`
	LLM struct {
		DefaultProvider string `yaml:"default_provider"`
		Providers       map[string]struct {
			APIKey    string `yaml:"api_key"`
			BaseURL   string `yaml:"base_url"`
			Model     string `yaml:"model"`
			Timeout   int    `yaml:"timeout"`
			MaxTokens int    `yaml:"max_tokens"`
		} `yaml:"providers"`
	} `yaml:"llm"`
	Storage struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`
	Conversation struct {
		HistoryCapacity int `yaml:"history_capacity"`
		MaxToolRounds   int `yaml:"max_tool_rounds"`
	} `yaml:"conversation"`
	Voice struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"voice"`
	Reminders struct {
		Enabled  bool   `yaml:"enabled"`
		Schedule string `yaml:"schedule"`
	} `yaml:"reminders"`
}

func (w *Wizard) writeConfig() error {
	var fc fileConfig
	fc.Server.Address = "127.0.0.1"
	fc.Server.Port = 8080
	fc.LLM.DefaultProvider = "openai"
	fc.LLM.Providers = map[string]struct {
		APIKey    string `yaml:"api_key"`
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		Timeout   int    `yaml:"timeout"`
		MaxTokens int    `yaml:"max_tokens"`
	}{
		"openai": {
			APIKey:    w.apiKey,
			BaseURL:   w.baseURL,
			Model:     w.model,
			Timeout:   60,
			MaxTokens: 1024,
		},
	}
	fc.Storage.DataDir = w.workspace
	fc.Conversation.HistoryCapacity = 20
	fc.Conversation.MaxToolRounds = 5
	fc.Voice.Enabled = w.enableVoice
	fc.Reminders.Enabled = false
	fc.Reminders.Schedule = "0 9 * * *"

	raw, err := yaml.Marshal(&fc)
	if err != nil {
		return err
	}

	header := fmt.Sprintf("# Aria configuration\n# Generated on %s\n\n", time.Now().Format("2006-01-02"))
	configPath := filepath.Join(w.workspace, "aria.yaml")
	if err := os.WriteFile(configPath, append([]byte(header), raw...), 0600); err != nil {
		return err
	}

	// The .env lets the key live outside yaml for users who prefer it.
	envPath := filepath.Join(w.workspace, ".env")
	envContent := fmt.Sprintf("# Aria environment variables\nARIA_LLM_PROVIDERS_OPENAI_API_KEY=%s\n", w.apiKey)
	return os.WriteFile(envPath, []byte(envContent), 0600)
}

// DefaultWorkspace is where config and data live unless overridden.
func DefaultWorkspace() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".aria")
}

// CheckFirstRun reports whether no configuration exists yet.
func CheckFirstRun() bool {
	_, err := os.Stat(filepath.Join(DefaultWorkspace(), "aria.yaml"))
	return os.IsNotExist(err)
}
