// Package persona augments the pinned system prompt from editable
// markdown in the workspace. PERSONA.md reshapes how Aria speaks;
// USER.md tells her who she is speaking to. Both are optional.
package persona

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Manager loads the persona files once at startup.
type Manager struct {
	workspacePath string
	logger        *zap.Logger

	persona string
	user    string
}

// NewManager reads PERSONA.md and USER.md from the workspace. Missing
// files are fine; the defaults then stand alone.
func NewManager(workspacePath string, logger *zap.Logger) *Manager {
	m := &Manager{
		workspacePath: workspacePath,
		logger:        logger,
	}

	if data, err := os.ReadFile(filepath.Join(workspacePath, "PERSONA.md")); err == nil {
		m.persona = strings.TrimSpace(string(data))
		logger.Info("Loaded persona file", zap.Int("bytes", len(m.persona)))
	}
	if data, err := os.ReadFile(filepath.Join(workspacePath, "USER.md")); err == nil {
		m.user = strings.TrimSpace(string(data))
		logger.Info("Loaded user profile file", zap.Int("bytes", len(m.user)))
	}

	return m
}

// SystemPrompt appends the persona sections to the base prompt.
func (m *Manager) SystemPrompt(base string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(base))

	if m.persona != "" {
		sb.WriteString("\n\n# Persona\n")
		sb.WriteString(m.persona)
	}
	if m.user != "" {
		sb.WriteString("\n\n# About the user\n")
		sb.WriteString(m.user)
	}
	return sb.String()
}
