// Package voice is the microphone-to-speaker pipeline around the
// conversation loop: record, transcribe, and speak replies. It degrades
// rather than fails: missing models or tools surface as VOICE_001 so
// the caller can fall back to text mode.
package voice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmsas95/aria/internal/config"
	apperrors "github.com/gmsas95/aria/internal/errors"
	"github.com/gmsas95/aria/internal/metrics"
	"github.com/gmsas95/aria/internal/store"
)

// Pipeline owns the audio path of a conversation. Synthesized replies
// are cached in badger keyed by a digest of the text, so repeated
// phrases skip the synthesizer.
type Pipeline struct {
	stt      Transcriber
	tts      Synthesizer
	recorder *Recorder
	player   *Player
	store    *store.Store
	logger   *zap.Logger

	listenSeconds int
	cacheTTL      time.Duration
}

// NewPipeline builds the pipeline from config. Piper is preferred for
// synthesis; espeak-ng fills in when the voice model is missing.
func NewPipeline(cfg *config.VoiceConfig, st *store.Store, logger *zap.Logger) *Pipeline {
	var tts Synthesizer = NewPiperTTS(cfg.PiperModelPath, cfg.PiperConfigPath, cfg.LengthScale)
	if !tts.Ready() {
		fallback := &EspeakTTS{}
		if fallback.Ready() {
			logger.Info("Piper voice model missing, using espeak-ng")
			tts = fallback
		}
	}

	listenSeconds := cfg.ListenSeconds
	if listenSeconds <= 0 {
		listenSeconds = 10
	}

	return &Pipeline{
		stt:           NewWhisperSTT(cfg.WhisperModelPath, "en"),
		tts:           tts,
		recorder:      NewRecorder(cfg.SampleRate, cfg.Channels),
		player:        NewPlayer(),
		store:         st,
		logger:        logger,
		listenSeconds: listenSeconds,
		cacheTTL:      24 * time.Hour,
	}
}

// Ready reports whether both directions of the pipeline can run.
func (p *Pipeline) Ready() bool {
	return p.stt.Ready() && p.tts.Ready() && p.recorder.Ready()
}

// Listen records one utterance from the microphone and transcribes it.
func (p *Pipeline) Listen(ctx context.Context) (string, error) {
	if !p.stt.Ready() {
		return "", apperrors.New("VOICE_001", "speech-to-text is not available")
	}
	if !p.recorder.Ready() {
		return "", apperrors.New("VOICE_001", "no microphone capture tool available")
	}

	tempFile, err := os.CreateTemp("", "aria_listen_*.wav")
	if err != nil {
		return "", err
	}
	tempFile.Close()
	audioPath := tempFile.Name()
	defer os.Remove(audioPath)

	start := time.Now()
	if err := p.recorder.Record(ctx, audioPath, p.listenSeconds); err != nil {
		return "", err
	}
	metrics.VoiceStageDuration.WithLabelValues("record").Observe(time.Since(start).Seconds())

	start = time.Now()
	text, err := p.stt.Transcribe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	metrics.VoiceStageDuration.WithLabelValues("transcribe").Observe(time.Since(start).Seconds())

	p.logger.Debug("Transcribed utterance",
		zap.String("engine", p.stt.Name()),
		zap.Int("chars", len(text)))
	return text, nil
}

// Speak synthesizes a reply and plays it, consulting the audio cache
// first. A cache write failure is logged and otherwise ignored.
func (p *Pipeline) Speak(ctx context.Context, text string) error {
	audio, err := p.synthesize(ctx, text)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := p.player.Play(ctx, audio); err != nil {
		return err
	}
	metrics.VoiceStageDuration.WithLabelValues("play").Observe(time.Since(start).Seconds())
	return nil
}

func (p *Pipeline) synthesize(ctx context.Context, text string) ([]byte, error) {
	digest := audioDigest(p.tts.Name(), text)

	if cached, err := p.store.CachedAudio(digest); err == nil {
		p.logger.Debug("Audio cache hit", zap.String("digest", digest[:12]))
		return cached, nil
	}

	start := time.Now()
	audio, err := p.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	metrics.VoiceStageDuration.WithLabelValues("synthesize").Observe(time.Since(start).Seconds())

	if err := p.store.CacheAudio(digest, audio, p.cacheTTL); err != nil {
		p.logger.Warn("Failed to cache audio", zap.Error(err))
	}
	return audio, nil
}

// StartSession marks the voice loop live in the ephemeral session store
// and returns the session id.
func (p *Pipeline) StartSession() string {
	id := uuid.NewString()
	if err := p.store.SetSession("voice:active", []byte(id), 12*time.Hour); err != nil {
		p.logger.Warn("Failed to record voice session", zap.Error(err))
	}
	return id
}

// EndSession clears the live-session marker.
func (p *Pipeline) EndSession() {
	if err := p.store.DeleteSession("voice:active"); err != nil {
		p.logger.Debug("Failed to clear voice session", zap.Error(err))
	}
}

// audioDigest keys the cache on engine plus exact text, so switching
// synthesizers never replays stale audio.
func audioDigest(engine, text string) string {
	sum := sha256.Sum256([]byte(engine + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// DefaultModelDir is where first-run setup drops downloaded models.
func DefaultModelDir(dataDir string) string {
	return filepath.Join(dataDir, "models")
}
