package voice

import (
	"fmt"
	log "log/slog"
	"os"
	"time"

	"pantry/internal/audio"
	"pantry/internal/config"
	"pantry/internal/proxy"
	"pantry/pkg/stt"
)

// ownStreams are the sink inputs we own, left at full volume.
var ownStreams = []string{"pantry", "espeak-ng"}

// NewTranscriber builds the speech recognizer selected by voice.engine.
func NewTranscriber(cfg *config.Config) (stt.Transcriber, error) {
	opt := stt.Options{
		Language:      cfg.Voice.Language,
		InitialPrompt: "add, remove, list inventory, check expiring, voice off, help, quit",
	}

	switch cfg.Voice.Engine {
	case config.EngineOpenAI:
		hc, err := proxy.NewHTTPClient(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("proxy %s: %w", cfg.Proxy, err)
		}
		return stt.NewOpenAI(cfg.OpenAI.APIKey, hc, opt)
	default:
		return stt.NewWhisper(cfg.Voice.ModelPath, opt)
	}
}

// Open sets up the local voice stack. When only the microphone fails the
// returned adapter can still transcribe files but reports itself unavailable.
// The cleanup func is never nil.
func Open(cfg *config.Config) (*Local, func(), error) {
	noop := func() {}
	if !cfg.Voice.Enabled {
		return nil, noop, ErrUnavailable
	}

	tr, err := NewTranscriber(cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("speech recognition: %w", err)
	}
	log.Debug("Loaded transcriber", "engine", cfg.Voice.Engine)

	vc := Config{
		Language: cfg.Voice.Language,
		Rate:     cfg.Voice.Rate,
		CuePath:  cfg.Voice.CuePath,
	}
	if vc.CuePath != "" {
		if _, err := os.Stat(vc.CuePath); err != nil {
			log.Warn("Listening cue disabled", "path", vc.CuePath, "err", err)
			vc.CuePath = ""
		}
	}

	var opts []Option
	if cfg.Voice.Duck {
		opts = append(opts, WithDucker(audio.NewDucker(ownStreams, 0.3, 200*time.Millisecond)))
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Warn("Microphone not available", "err", err)
		return NewLocal(nil, tr, vc, opts...), func() { tr.Close() }, nil
	}
	log.Debug("Loaded recorder")

	cleanup := func() {
		rec.Close()
		tr.Close()
	}
	return NewLocal(rec, tr, vc, opts...), cleanup, nil
}
