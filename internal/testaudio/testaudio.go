// Package testaudio writes small synthetic PCM WAV files for tests that need
// a real container on disk.
package testaudio

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// Options configures the synthetic audio to generate.
type Options struct {
	DurationSecs float64 // default 1.0
	SampleRate   int     // default 44100
	Channels     int     // default 1
	ToneFreq     float64 // sine frequency in Hz, 0 = no tone
	ToneLevel    float64 // dBFS, e.g. -12
	DC           float64 // constant linear offset, gives a signal with no zero crossings
	// Silence is a span of digital silence in seconds.
	Silence struct {
		Start    float64
		Duration float64
	}
}

// Generate writes a 16-bit PCM WAV into t.TempDir and returns its path.
// Every channel carries the same signal.
func Generate(t testing.TB, opts Options) string {
	t.Helper()

	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	if opts.DurationSecs == 0 {
		opts.DurationSecs = 1.0
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}

	frames := int(math.Round(opts.DurationSecs * float64(opts.SampleRate)))
	samples := make([]int16, 0, frames*opts.Channels)

	amp := 0.0
	if opts.ToneFreq > 0 {
		amp = math.Pow(10.0, opts.ToneLevel/20.0)
	}

	silenceStart := int(opts.Silence.Start * float64(opts.SampleRate))
	silenceEnd := int((opts.Silence.Start + opts.Silence.Duration) * float64(opts.SampleRate))

	for i := 0; i < frames; i++ {
		var v float64
		if opts.Silence.Duration <= 0 || i < silenceStart || i >= silenceEnd {
			v = opts.DC
			if amp > 0 {
				v += amp * math.Sin(2.0*math.Pi*opts.ToneFreq*float64(i)/float64(opts.SampleRate))
			}
		}
		v = math.Max(-1, math.Min(1, v))
		s := int16(v * math.MaxInt16)
		for ch := 0; ch < opts.Channels; ch++ {
			samples = append(samples, s)
		}
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAV(path, samples, opts.SampleRate, opts.Channels); err != nil {
		t.Fatalf("failed to write WAV file: %v", err)
	}
	return path
}

// WriteWAV writes interleaved 16-bit samples with a canonical 44-byte header.
func WriteWAV(path string, samples []int16, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(samples) * 2

	w := bufio.NewWriter(f)
	hdr := []any{
		[]byte("RIFF"), uint32(36 + dataSize), []byte("WAVE"),
		[]byte("fmt "), uint32(16), uint16(1), uint16(channels),
		uint32(sampleRate), uint32(sampleRate * blockAlign), uint16(blockAlign), uint16(bitsPerSample),
		[]byte("data"), uint32(dataSize),
	}
	for _, v := range hdr {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Header is the fmt chunk of a PCM WAV file.
type Header struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// ReadHeader locates the fmt chunk of a RIFF/WAVE file and decodes it.
func ReadHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Header{}, os.ErrInvalid
	}
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if id == "fmt " && body+16 <= len(data) {
			return Header{
				Channels:      int(binary.LittleEndian.Uint16(data[body+2:])),
				SampleRate:    int(binary.LittleEndian.Uint32(data[body+4:])),
				BitsPerSample: int(binary.LittleEndian.Uint16(data[body+14:])),
			}, nil
		}
		off = body + size + size%2
	}
	return Header{}, os.ErrInvalid
}
