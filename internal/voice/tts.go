package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	apperrors "github.com/gmsas95/aria/internal/errors"
)

// Synthesizer turns reply text into playable audio bytes.
type Synthesizer interface {
	Name() string
	Ready() bool
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// PiperTTS shells out to piper with an onnx voice model.
type PiperTTS struct {
	modelPath   string
	configPath  string
	lengthScale float64
	ready       bool
}

// NewPiperTTS probes for the voice model at modelPath. lengthScale
// stretches playback: <1.0 is faster, >1.0 slower.
func NewPiperTTS(modelPath, configPath string, lengthScale float64) *PiperTTS {
	p := &PiperTTS{
		modelPath:   modelPath,
		configPath:  configPath,
		lengthScale: lengthScale,
	}
	if _, err := os.Stat(modelPath); err == nil {
		p.ready = true
	}
	return p
}

func (p *PiperTTS) Name() string { return "piper" }
func (p *PiperTTS) Ready() bool  { return p.ready }

// Synthesize renders text to wav bytes via a temp file.
func (p *PiperTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !p.ready {
		return nil, apperrors.Wrap(fmt.Errorf("piper model not found at %s", p.modelPath), apperrors.ErrVoiceNotReady, "text-to-speech model missing")
	}

	bin := lookPathFirst("piper", "piper-tts", "/usr/local/bin/piper", "/usr/bin/piper")
	if bin == "" {
		return nil, apperrors.Wrap(fmt.Errorf("piper binary not found"), apperrors.ErrVoiceNotReady, "piper is not installed")
	}

	tempFile, err := os.CreateTemp("", "aria_tts_*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempFile.Close()
	outputPath := tempFile.Name()
	defer os.Remove(outputPath)

	args := []string{
		"--model", p.modelPath,
		"--config", p.configPath,
		"--output_file", outputPath,
	}
	if p.lengthScale > 0 && p.lengthScale != 1.0 {
		args = append(args, "--length_scale", fmt.Sprintf("%.2f", p.lengthScale))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader(text)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("piper failed: %w (output: %s)", err, string(output))
	}

	return os.ReadFile(outputPath)
}

// EspeakTTS is the fallback synthesizer: lower quality, no model files.
type EspeakTTS struct{}

func (e *EspeakTTS) Name() string { return "espeak-ng" }

func (e *EspeakTTS) Ready() bool {
	return lookPathFirst("espeak-ng", "espeak") != ""
}

func (e *EspeakTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	bin := lookPathFirst("espeak-ng", "espeak")
	if bin == "" {
		return nil, apperrors.Wrap(fmt.Errorf("espeak binary not found"), apperrors.ErrVoiceNotReady, "no text-to-speech engine available")
	}

	tempFile, err := os.CreateTemp("", "aria_tts_*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempFile.Close()
	outputPath := tempFile.Name()
	defer os.Remove(outputPath)

	cmd := exec.CommandContext(ctx, bin, "-w", outputPath, text)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("espeak failed: %w (output: %s)", err, string(output))
	}

	return os.ReadFile(outputPath)
}
