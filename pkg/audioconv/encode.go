package audioconv

import (
	"errors"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV writes mono float32 samples as 16 bit PCM WAV.
func EncodeWAV(w io.WriteSeeker, pcm []float32, rate int) error {
	enc := wav.NewEncoder(w, rate, 16, 1, 1)

	data := make([]int, len(pcm))
	for i, x := range pcm {
		data[i] = int(math.Round(clamp(float64(x), -1, 1) * 32767))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// WAVBytes is EncodeWAV into memory.
func WAVBytes(pcm []float32, rate int) ([]byte, error) {
	var b memFile
	if err := EncodeWAV(&b, pcm, rate); err != nil {
		return nil, err
	}
	return b.buf, nil
}

// memFile is the minimal io.WriteSeeker the wav encoder needs to patch
// the header sizes on Close.
type memFile struct {
	buf []byte
	off int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.off + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.off:], p)
	m.off += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.off
	case io.SeekEnd:
		base = len(m.buf)
	default:
		return 0, errors.New("memfile: bad whence")
	}
	pos := base + int(offset)
	if pos < 0 {
		return 0, errors.New("memfile: negative position")
	}
	m.off = pos
	return int64(pos), nil
}
