// Package voice bundles microphone capture, speech recognition and speech
// synthesis behind one adapter.
package voice

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"pantry/internal/audio"
	"pantry/internal/notify"
	"pantry/internal/tts"
	"pantry/pkg/audioconv"
	"pantry/pkg/stt"
)

var (
	// ErrNoSpeech means nothing usable was heard; callers re-prompt.
	ErrNoSpeech = errors.New("voice: no speech recognized")
	// ErrUnavailable is returned by the Unavailable adapter.
	ErrUnavailable = errors.New("voice: not available on this system")
)

type Adapter interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
	Speak(ctx context.Context, text string) error
	Available() bool
}

// Unavailable is the adapter used when no audio stack could be set up.
type Unavailable struct{}

func (Unavailable) Listen(context.Context, time.Duration, time.Duration) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Speak(context.Context, string) error { return nil }

func (Unavailable) Available() bool { return false }

// Capturer records one phrase of mono 16kHz samples.
type Capturer interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error)
}

// Ducker lowers other audio while the assistant listens or talks.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Config struct {
	Language string
	Rate     int
	CuePath  string
}

// Local runs everything on this machine.
type Local struct {
	mic   Capturer
	stt   stt.Transcriber
	duck  Ducker
	cfg   Config
	say   func(text, lang string, rate int) error
	cue   func(path string) error
	ready bool
}

type Option func(*Local)

func WithDucker(d Ducker) Option { return func(l *Local) { l.duck = d } }

func NewLocal(mic Capturer, tr stt.Transcriber, cfg Config, opts ...Option) *Local {
	l := &Local{
		mic:   mic,
		stt:   tr,
		cfg:   cfg,
		say:   tts.Speak,
		cue:   notify.Cue,
		ready: mic != nil && tr != nil,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Local) Available() bool { return l.ready }

// Listen plays the cue, records one phrase and transcribes it. Silence, a
// timeout and blank transcripts all come back as ErrNoSpeech.
func (l *Local) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	if !l.ready {
		return "", ErrUnavailable
	}

	if err := l.cue(l.cfg.CuePath); err != nil {
		log.Warn("Failed to play cue", "err", err)
	}

	l.duckOthers(ctx)
	pcm, err := l.mic.Listen(ctx, timeout, phraseLimit)
	l.restoreOthers(ctx)

	if errors.Is(err, audio.ErrTimeout) {
		return "", ErrNoSpeech
	}
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}

	return l.transcribe(ctx, pcm)
}

// TranscribeFile runs speech recognition on a recorded audio file.
func (l *Local) TranscribeFile(ctx context.Context, path string) (string, error) {
	if l.stt == nil {
		return "", ErrUnavailable
	}
	pcm, err := audioconv.DecodeFile(path, audioconv.Options{})
	if err != nil {
		return "", err
	}
	return l.transcribe(ctx, pcm)
}

func (l *Local) transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", ErrNoSpeech
	}

	start := time.Now()
	text, err := l.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = clean(text)
	log.Debug("Transcribed", "text", text, "took", time.Since(start))

	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (l *Local) Speak(ctx context.Context, text string) error {
	if !l.ready {
		return nil
	}
	l.duckOthers(ctx)
	defer l.restoreOthers(ctx)

	if err := l.say(text, l.cfg.Language, l.cfg.Rate); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

func (l *Local) duckOthers(ctx context.Context) {
	if l.duck == nil {
		return
	}
	if err := l.duck.Duck(ctx); err != nil {
		log.Debug("Failed to duck", "err", err)
	}
}

func (l *Local) restoreOthers(ctx context.Context) {
	if l.duck == nil {
		return
	}
	if err := l.duck.Restore(ctx); err != nil {
		log.Debug("Failed to restore volume", "err", err)
	}
}

// whisper emits markers like [BLANK_AUDIO] or (music) for non speech.
func clean(text string) string {
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
