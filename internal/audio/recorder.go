package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
	frameDur   = time.Second * frameSize / SampleRate

	silenceThreshRMS = 0.015
	trailingSilence  = 600 * time.Millisecond
)

// ErrTimeout is returned by Listen when nobody starts speaking in time.
var ErrTimeout = errors.New("audio: no speech before timeout")

// Recorder captures mono 16kHz float32 PCM from the default input device.
type Recorder struct {
	once    sync.Once
	initErr error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	r.once.Do(func() {
		r.initErr = portaudio.Initialize()
	})
	return r.initErr
}

func (r *Recorder) Close() error {
	if r.initErr != nil {
		return nil
	}
	return portaudio.Terminate()
}

// Listen waits up to timeout for speech to start, then records until a
// stretch of silence or until phraseLimit of audio has been captured.
func (r *Recorder) Listen(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error) {
	if err := r.Init(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	seg := newSegmenter(timeout, phraseLimit)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}

		switch seg.feed(buf) {
		case segTimeout:
			return nil, ErrTimeout
		case segDone:
			log.Debug("Phrase captured", "samples", len(seg.out), "dur", seg.captured())
			return seg.out, nil
		}
	}
}

type segState int

const (
	segWaiting segState = iota
	segSpeaking
	segDone
	segTimeout
)

// segmenter splits a stream of fixed size frames into one phrase using frame
// RMS as the voice activity signal.
type segmenter struct {
	waitFrames    int
	limitFrames   int
	silenceFrames int

	state   segState
	waited  int
	frames  int
	silence int
	out     []float32
}

func newSegmenter(timeout, phraseLimit time.Duration) *segmenter {
	s := &segmenter{
		waitFrames:    int(timeout / frameDur),
		limitFrames:   int(phraseLimit / frameDur),
		silenceFrames: int(trailingSilence / frameDur),
		out:           make([]float32, 0, SampleRate*3),
	}
	if s.waitFrames <= 0 {
		s.waitFrames = int(5 * time.Second / frameDur)
	}
	if s.limitFrames <= 0 {
		s.limitFrames = int(10 * time.Second / frameDur)
	}
	return s
}

func (s *segmenter) feed(frame []float32) segState {
	loud := frameRMS(frame) > silenceThreshRMS

	switch s.state {
	case segWaiting:
		if !loud {
			s.waited++
			if s.waited >= s.waitFrames {
				s.state = segTimeout
			}
			return s.state
		}
		s.state = segSpeaking
		fallthrough

	case segSpeaking:
		s.out = append(s.out, frame...)
		s.frames++
		if loud {
			s.silence = 0
		} else {
			s.silence++
		}
		if s.silence >= s.silenceFrames || s.frames >= s.limitFrames {
			s.state = segDone
		}
	}
	return s.state
}

func (s *segmenter) captured() time.Duration {
	return time.Duration(s.frames) * frameDur
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
