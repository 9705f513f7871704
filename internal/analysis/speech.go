package analysis

import (
	"math"

	"github.com/linuxmatters/jivecut/internal/media"
)

// Interval is a span of detected speech in seconds.
type Interval struct {
	Start float64
	End   float64
}

// Duration returns End - Start.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Segmenter is a two-state (silent/active) threshold detector. A single
// sample at or below the floor ends an active span; there is no hangover.
type Segmenter struct {
	floor       float32
	minDuration float64
	rate        float64

	active    bool
	start     float64
	intervals []Interval
}

// NewSegmenter builds a detector whose floor is 10^(thresholdDB/20).
func NewSegmenter(thresholdDB, minDuration float64, sampleRate int) *Segmenter {
	if sampleRate <= 0 {
		sampleRate = media.DefaultSampleRate
	}
	return &Segmenter{
		floor:       float32(math.Pow(10, thresholdDB/20.0)),
		minDuration: minDuration,
		rate:        float64(sampleRate),
		intervals:   []Interval{},
	}
}

// Floor returns the linear amplitude threshold.
func (s *Segmenter) Floor() float32 {
	return s.floor
}

// Add feeds the mono amplitude of the frame at index.
func (s *Segmenter) Add(index int64, amp float32) {
	now := float64(index) / s.rate
	if amp > s.floor {
		if !s.active {
			s.active = true
			s.start = now
		}
		return
	}
	if s.active {
		s.close(now)
	}
}

func (s *Segmenter) close(now float64) {
	if now-s.start > s.minDuration {
		s.intervals = append(s.intervals, Interval{Start: s.start, End: now})
	}
	s.active = false
}

// Finish closes a span still open when the stream ended after frames frames
// and returns all intervals in start order.
func (s *Segmenter) Finish(frames int64) []Interval {
	if s.active {
		s.close(float64(frames) / s.rate)
	}
	return s.intervals
}

// DetectSpeech runs a Segmenter over src using the magnitude mix.
func DetectSpeech(src media.SampleSource, sampleRate int, thresholdDB, minDuration float64) ([]Interval, error) {
	seg := NewSegmenter(thresholdDB, minDuration, sampleRate)
	frames, err := Visit(src, MixAbs, func(index int64, amp float32) bool {
		seg.Add(index, amp)
		return true
	})
	if err != nil {
		return nil, err
	}
	return seg.Finish(frames), nil
}
