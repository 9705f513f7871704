package analysis

import "github.com/linuxmatters/jivecut/internal/media"

// EffectParameters are the per-clip gain effects a waveform preview reflects.
// A value copy is taken for each pass so edits never race a running pass.
type EffectParameters struct {
	Volume  float64 // gain multiplier, 1.0 = unity
	FadeIn  float64 // seconds
	FadeOut float64 // seconds
}

// DefaultEffects returns unity gain with no fades.
func DefaultEffects() EffectParameters {
	return EffectParameters{Volume: 1.0}
}

// IsIdentity reports whether the parameters leave samples untouched.
func (p EffectParameters) IsIdentity() bool {
	return p.Volume == 1.0 && p.FadeIn <= 0 && p.FadeOut <= 0
}

// Shaper computes the per-frame gain for a clip of known length.
type Shaper struct {
	total        int64
	fadeInFrames int64
	fadeOutStart int64
	volume       float32
}

// NewShaper precomputes fade boundaries in whole frames. The fade-out start
// saturates at zero when the fade is longer than the clip.
func NewShaper(p EffectParameters, totalFrames int64, sampleRate int) *Shaper {
	s := &Shaper{
		total:        totalFrames,
		fadeInFrames: media.SecondsToFrames(p.FadeIn, sampleRate),
		fadeOutStart: totalFrames,
		volume:       float32(p.Volume),
	}
	if p.FadeOut > 0 {
		s.fadeOutStart = totalFrames - media.SecondsToFrames(p.FadeOut, sampleRate)
		if s.fadeOutStart < 0 {
			s.fadeOutStart = 0
		}
	}
	return s
}

// Gain returns the multiplier for the frame at index.
func (s *Shaper) Gain(index int64) float32 {
	g := float32(1.0)

	if index < s.fadeInFrames {
		g *= float32(index) / float32(s.fadeInFrames)
	}

	if fadeLen := s.total - s.fadeOutStart; fadeLen > 0 && index >= s.fadeOutStart {
		remaining := s.total - index
		if remaining < 0 {
			remaining = 0
		}
		g *= float32(remaining) / float32(fadeLen)
	}

	return g * s.volume
}
