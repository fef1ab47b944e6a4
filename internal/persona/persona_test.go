package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSystemPrompt_NoFiles(t *testing.T) {
	m := NewManager(t.TempDir(), zap.NewNop())
	assert.Equal(t, "base prompt", m.SystemPrompt("base prompt"))
}

func TestSystemPrompt_AppendsSections(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PERSONA.md"), []byte("Speak briefly.\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "USER.md"), []byte("Name: Sam\n"), 0644))

	m := NewManager(dir, zap.NewNop())
	prompt := m.SystemPrompt("base prompt")

	assert.Contains(t, prompt, "base prompt")
	assert.Contains(t, prompt, "# Persona\nSpeak briefly.")
	assert.Contains(t, prompt, "# About the user\nName: Sam")
}
