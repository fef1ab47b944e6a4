package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Recorder captures microphone audio into wav files.
type Recorder struct {
	sampleRate int
	channels   int
}

// NewRecorder uses arecord when present, falling back to ffmpeg.
func NewRecorder(sampleRate, channels int) *Recorder {
	return &Recorder{sampleRate: sampleRate, channels: channels}
}

// Ready reports whether a capture tool is installed.
func (r *Recorder) Ready() bool {
	return lookPathFirst("arecord", "ffmpeg") != ""
}

// Record captures seconds of audio to outputPath. Cancellation stops
// the capture early; whatever was written stays usable.
func (r *Recorder) Record(ctx context.Context, outputPath string, seconds int) error {
	var cmd *exec.Cmd

	if bin := lookPathFirst("arecord"); bin != "" {
		cmd = exec.CommandContext(ctx, bin,
			"-f", "S16_LE",
			"-r", fmt.Sprintf("%d", r.sampleRate),
			"-c", fmt.Sprintf("%d", r.channels),
			"-d", fmt.Sprintf("%d", seconds),
			"-t", "wav",
			outputPath,
		)
	} else if bin := lookPathFirst("ffmpeg"); bin != "" {
		cmd = exec.CommandContext(ctx, bin,
			"-f", "alsa",
			"-i", "default",
			"-ar", fmt.Sprintf("%d", r.sampleRate),
			"-ac", fmt.Sprintf("%d", r.channels),
			"-t", fmt.Sprintf("%d", seconds),
			"-y",
			outputPath,
		)
	} else {
		return fmt.Errorf("no audio capture tool found (tried arecord, ffmpeg)")
	}

	output, err := cmd.CombinedOutput()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("audio capture failed: %w (output: %s)", err, string(output))
	}
	return nil
}

// Player plays wav audio through the system output device.
type Player struct{}

func NewPlayer() *Player {
	return &Player{}
}

// Play writes the audio to a temp file and hands it to the first
// available player.
func (p *Player) Play(ctx context.Context, audio []byte) error {
	tempFile, err := os.CreateTemp("", "aria_audio_*.wav")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(audio); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	tempFile.Close()

	return p.PlayFile(ctx, tempFile.Name())
}

// PlayFile plays an on-disk wav file.
func (p *Player) PlayFile(ctx context.Context, audioPath string) error {
	bin := lookPathFirst("aplay", "paplay", "afplay", "ffplay")
	if bin == "" {
		return fmt.Errorf("no audio player found (tried aplay, paplay, afplay, ffplay)")
	}

	var cmd *exec.Cmd
	if filepath.Base(bin) == "ffplay" {
		cmd = exec.CommandContext(ctx, bin, "-nodisp", "-autoexit", audioPath)
	} else {
		cmd = exec.CommandContext(ctx, bin, audioPath)
	}

	return cmd.Run()
}
