package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(level float32) []float32 {
	f := make([]float32, frameSize)
	for i := range f {
		f[i] = level
	}
	return f
}

func run(s *segmenter, frames ...[]float32) segState {
	var st segState
	for _, f := range frames {
		st = s.feed(f)
		if st == segDone || st == segTimeout {
			break
		}
	}
	return st
}

func repeat(f []float32, n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func TestFrameRMS(t *testing.T) {
	assert.Equal(t, 0.0, frameRMS(nil))
	assert.InDelta(t, 0.5, frameRMS(frame(0.5)), 1e-6)
	assert.InDelta(t, 0.5, frameRMS(frame(-0.5)), 1e-6)
}

func TestSegmenterTimeout(t *testing.T) {
	s := newSegmenter(100*time.Millisecond, time.Second)
	st := run(s, repeat(frame(0), 10)...)
	assert.Equal(t, segTimeout, st)
	assert.Empty(t, s.out)
}

func TestSegmenterStopsOnSilence(t *testing.T) {
	s := newSegmenter(time.Second, 5*time.Second)

	frames := append(repeat(frame(0), 3), repeat(frame(0.2), 10)...)
	frames = append(frames, repeat(frame(0), 40)...)

	st := run(s, frames...)
	require.Equal(t, segDone, st)
	// leading silence is dropped, trailing silence is kept up to the cutoff
	assert.Len(t, s.out, (10+30)*frameSize)
}

func TestSegmenterPhraseLimit(t *testing.T) {
	s := newSegmenter(time.Second, 200*time.Millisecond)
	st := run(s, repeat(frame(0.3), 100)...)
	require.Equal(t, segDone, st)
	assert.Equal(t, 200*time.Millisecond, s.captured())
}
