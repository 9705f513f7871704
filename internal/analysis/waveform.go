package analysis

import (
	"errors"
	"math"

	"github.com/linuxmatters/jivecut/internal/media"
)

// Binner folds a stream of mono amplitudes into a fixed number of RMS
// buckets without holding the stream in memory.
type Binner struct {
	out             []float32
	framesPerBucket float64
	bucket          int
	sumSquares      float64
	count           int
}

// NewBinner prepares width buckets for a stream of totalFrames frames.
func NewBinner(totalFrames int64, width int) *Binner {
	if width < 0 {
		width = 0
	}
	fpb := 1.0
	if width > 0 {
		fpb = math.Max(1.0, float64(totalFrames)/float64(width))
	}
	return &Binner{
		out:             make([]float32, width),
		framesPerBucket: fpb,
	}
}

// Add accumulates the amplitude of the frame at index. It returns false once
// the stream has moved past the last bucket and further frames are pointless.
func (b *Binner) Add(index int64, v float32) bool {
	target := int(math.Floor(float64(index) / b.framesPerBucket))
	if target != b.bucket {
		b.flush()
		b.bucket = target
	}
	if b.bucket < len(b.out) {
		b.sumSquares += float64(v) * float64(v)
		b.count++
	}
	return b.bucket <= len(b.out)
}

func (b *Binner) flush() {
	if b.bucket < len(b.out) && b.count > 0 {
		b.out[b.bucket] = float32(math.Sqrt(b.sumSquares / float64(b.count)))
	}
	b.sumSquares = 0
	b.count = 0
}

// Finish closes the open bucket and normalises so the loudest bucket is 1.0.
// An all-silent stream stays all zeros.
func (b *Binner) Finish() []float32 {
	b.flush()
	Normalize(b.out)
	return b.out
}

// Normalize scales values in place by their maximum; a non-positive maximum
// leaves them unchanged.
func Normalize(values []float32) {
	var peak float32
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return
	}
	for i := range values {
		values[i] /= peak
	}
}

// Waveform computes a width-bucket RMS waveform over src. When shaper is
// non-nil each mono sample is multiplied by its gain before squaring.
func Waveform(src media.SampleSource, totalFrames int64, width int, mode MixMode, shaper *Shaper) ([]float32, error) {
	if width <= 0 {
		return []float32{}, nil
	}
	if totalFrames <= 0 {
		return make([]float32, width), nil
	}

	b := NewBinner(totalFrames, width)
	_, err := Visit(src, mode, func(index int64, v float32) bool {
		if shaper != nil {
			v *= shaper.Gain(index)
		}
		return b.Add(index, v)
	})
	if err != nil {
		return nil, err
	}
	return b.Finish(), nil
}

// Peaks returns the absolute peak of each consecutive run of samplesPerPoint
// mono frames. A trailing partial run is dropped.
func Peaks(src media.SampleSource, samplesPerPoint int) ([]float32, error) {
	if samplesPerPoint <= 0 {
		return nil, errors.New("samples per point must be positive")
	}

	var (
		peaks []float32
		peak  float32
		n     int
	)
	_, err := Visit(src, MixAbs, func(_ int64, v float32) bool {
		if v > peak {
			peak = v
		}
		n++
		if n == samplesPerPoint {
			peaks = append(peaks, peak)
			peak, n = 0, 0
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if peaks == nil {
		peaks = []float32{}
	}
	return peaks, nil
}
