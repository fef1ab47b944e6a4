package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/gmsas95/aria/internal/errors"
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Name() string
	Ready() bool
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// WhisperSTT shells out to whisper.cpp. The model file must exist on
// disk; without it the provider reports not-ready and Listen degrades
// to text input.
type WhisperSTT struct {
	modelPath string
	language  string
	ready     bool
}

// NewWhisperSTT probes for the model file at modelPath.
func NewWhisperSTT(modelPath, language string) *WhisperSTT {
	w := &WhisperSTT{
		modelPath: modelPath,
		language:  language,
	}
	if _, err := os.Stat(modelPath); err == nil {
		w.ready = true
	}
	return w
}

func (w *WhisperSTT) Name() string { return "whisper.cpp" }
func (w *WhisperSTT) Ready() bool  { return w.ready }

// Transcribe runs whisper over a wav file and returns the text.
func (w *WhisperSTT) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !w.ready {
		return "", apperrors.Wrap(fmt.Errorf("whisper model not found at %s", w.modelPath), apperrors.ErrVoiceNotReady, "speech-to-text model missing")
	}

	bin := lookPathFirst("whisper-cli", "whisper", "/usr/local/bin/whisper-cli", "/usr/bin/whisper-cli")
	if bin == "" {
		return "", apperrors.Wrap(fmt.Errorf("whisper binary not found"), apperrors.ErrVoiceNotReady, "whisper.cpp is not installed")
	}

	args := []string{
		"-m", w.modelPath,
		"-f", audioPath,
		"--output-txt",
		"--no-timestamps",
	}
	if w.language != "" && w.language != "auto" {
		args = append(args, "-l", w.language)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = filepath.Dir(w.modelPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("whisper failed: %w (output: %s)", err, string(output))
	}

	// whisper writes <input>.txt alongside the audio; stdout is a
	// fallback for builds that skip the file.
	outputPath := audioPath + ".txt"
	content, err := os.ReadFile(outputPath)
	if err != nil {
		return strings.TrimSpace(string(output)), nil
	}
	os.Remove(outputPath)

	return strings.TrimSpace(string(content)), nil
}

func lookPathFirst(candidates ...string) string {
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path
		}
	}
	return ""
}
