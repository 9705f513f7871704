package analysis

import (
	"errors"
	"io"

	"github.com/linuxmatters/jivecut/internal/media"
)

// genSource produces frames from a generator in fixed-size batches, the way a
// decoder hands out one frame buffer at a time.
type genSource struct {
	frames   int64
	channels int
	batch    int
	gen      func(index int64, ch int) float32

	pos int64
	buf []float32
	err error
}

func (s *genSource) ReadSamples() (media.Samples, error) {
	if s.err != nil && s.pos >= s.frames {
		return media.Samples{}, s.err
	}
	if s.pos >= s.frames {
		return media.Samples{}, io.EOF
	}
	n := int64(s.batch)
	if n <= 0 {
		n = 1024
	}
	if rem := s.frames - s.pos; rem < n {
		n = rem
	}
	s.buf = s.buf[:0]
	for i := int64(0); i < n; i++ {
		for ch := 0; ch < s.channels; ch++ {
			s.buf = append(s.buf, s.gen(s.pos+i, ch))
		}
	}
	s.pos += n
	return media.Samples{Data: s.buf, Channels: s.channels}, nil
}

func constant(v float32) func(int64, int) float32 {
	return func(int64, int) float32 { return v }
}

// burst is v between [from, to) frame indices and silence elsewhere.
func burst(v float32, from, to int64) func(int64, int) float32 {
	return func(i int64, _ int) float32 {
		if i >= from && i < to {
			return v
		}
		return 0
	}
}

var errBroken = errors.New("broken stream")
