// Package media holds the stream description, sentinel errors and time base
// arithmetic shared by the decoders, analysers and encoders.
package media

import "fmt"

// Kind selects which elementary stream a reader binds to.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fallbacks used when a container does not declare its audio layout
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
)

// Info is the immutable identity of an opened stream. It is filled once when
// a reader opens the file and never mutated afterwards.
type Info struct {
	Path        string
	Kind        Kind
	StreamIndex int
	Codec       string

	// Audio
	SampleRate int
	Channels   int

	// Video
	Width     int
	Height    int
	FrameRate float64
	PixFmt    string

	// Frames is the total number of sample frames (audio) or pictures (video),
	// 0 when the container does not say.
	Frames        int64
	TimeBase      Rational
	DurationTicks int64
}

// Duration returns the stream length in seconds.
// Audio: Frames / SampleRate. Video: DurationTicks in TimeBase units.
func (i *Info) Duration() float64 {
	if i.Kind == KindAudio {
		if i.SampleRate <= 0 {
			return 0
		}
		return float64(i.Frames) / float64(i.SampleRate)
	}
	if i.DurationTicks <= 0 {
		return 0
	}
	return i.TimeBase.Seconds(i.DurationTicks)
}

// Samples is one decoded batch of interleaved PCM, normalised to [-1, 1].
// The backing slice belongs to the reader and is only valid until the next read.
type Samples struct {
	Data     []float32
	Channels int
}

// Frames returns the number of sample frames (one value per channel) in the batch.
func (s Samples) Frames() int {
	if s.Channels <= 0 {
		return 0
	}
	return len(s.Data) / s.Channels
}

// SampleSource is a pull iterator over decoded audio. ReadSamples returns
// io.EOF exactly once when the stream is exhausted; there is no rewind.
type SampleSource interface {
	ReadSamples() (Samples, error)
}
