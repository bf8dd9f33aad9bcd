package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// TargetRate is the sample rate every decoder converts to.
const TargetRate = 16000

type Options struct {
	// MaxSamples truncates the result, 0 means no limit.
	MaxSamples int
}

type decoder func(r io.ReadSeeker) (pcm []float32, channels, rate int, err error)

var decoders = map[string]decoder{
	".wav":  decodeWAV,
	".mp3":  decodeMP3,
	".ogg":  decodeOgg,
	".oga":  decodeOgg,
	".opus": decodeOpus,
}

// DecodeFile reads a wav, mp3 or ogg (vorbis or opus) file and returns mono
// float32 samples at TargetRate. Files without a known extension are sniffed.
func DecodeFile(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		if dec, err = sniff(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	pcm, ch, rate, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return finish(pcm, ch, rate, opt), nil
}

func sniff(f io.ReadSeeker) (decoder, error) {
	magic, _ := bufio.NewReader(f).Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch string(magic) {
	case "RIFF":
		return decodeWAV, nil
	case "OggS":
		return decodeOgg, nil
	}
	if len(magic) >= 3 && (string(magic[:3]) == "ID3" || magic[0] == 0xFF) {
		return decodeMP3, nil
	}
	return nil, errors.New("unsupported audio format (wav, mp3, ogg)")
}

func finish(pcm []float32, ch, rate int, opt Options) []float32 {
	pcm = toMono(pcm, ch)
	pcm = resampleLinear(pcm, rate, TargetRate)
	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm
}

func decodeWAV(r io.ReadSeeker) ([]float32, int, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, 0, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, 0, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	ch, rate := int(dec.NumChans), int(dec.SampleRate)
	if buf.Format != nil {
		ch, rate = buf.Format.NumChannels, buf.Format.SampleRate
	}
	return intsToFloat32(buf.Data, depth), max(ch, 1), rate, nil
}

// decodeMP3 relies on go-mp3 always producing 16 bit little endian stereo.
func decodeMP3(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, 0, err
	}
	samples := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(samples)*2]), binary.LittleEndian, samples); err != nil {
		return nil, 0, 0, err
	}
	return int16sToFloat32(samples), 2, dec.SampleRate(), nil
}

// decodeOgg tries vorbis first and falls back to opus.
func decodeOgg(r io.ReadSeeker) ([]float32, int, int, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err == nil && format != nil && format.Channels > 0 {
		return pcm, format.Channels, format.SampleRate, nil
	}
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, 0, 0, serr
	}
	pcm, ch, rate, oerr := decodeOpus(r)
	if oerr != nil {
		return nil, 0, 0, fmt.Errorf("neither vorbis (%v) nor opus (%w)", err, oerr)
	}
	return pcm, ch, rate, nil
}

// decodeOpus always yields 48kHz.
func decodeOpus(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)
	buf := make([]int16, 24000*ch)

	var out []float32
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			out = append(out, int16sToFloat32(buf[:n*ch])...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, 0, err
		}
	}
	return out, ch, 48000, nil
}
