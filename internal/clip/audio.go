// Package clip is the object surface an editor binds to: audio and video
// clips that answer waveform, speech, thumbnail and frame queries, plus an
// exporter for rendered frames.
//
// Clips hold only the immutable stream description. Every query opens its
// own decode session, so queries on one clip may run concurrently.
package clip

import (
	"fmt"
	"sync"

	"github.com/linuxmatters/jivecut/internal/analysis"
	"github.com/linuxmatters/jivecut/internal/audio"
	"github.com/linuxmatters/jivecut/internal/media"
)

// AudioClip is an audio file plus the gain effects shown in its waveform.
type AudioClip struct {
	info media.Info

	mu      sync.Mutex
	effects analysis.EffectParameters
}

// OpenAudio probes path and returns a clip with default effects.
func OpenAudio(path string) (*AudioClip, error) {
	info, err := audio.Probe(path)
	if err != nil {
		return nil, err
	}
	return &AudioClip{info: info, effects: analysis.DefaultEffects()}, nil
}

func (c *AudioClip) Info() media.Info  { return c.info }
func (c *AudioClip) Path() string      { return c.info.Path }
func (c *AudioClip) Duration() float64 { return c.info.Duration() }
func (c *AudioClip) SampleRate() int   { return c.info.SampleRate }
func (c *AudioClip) Channels() int     { return c.info.Channels }
func (c *AudioClip) Frames() int64     { return c.info.Frames }

// Effects returns a copy of the current effect parameters.
func (c *AudioClip) Effects() analysis.EffectParameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effects
}

// SetEffects replaces all effect parameters. A waveform pass already running
// keeps the values it started with.
func (c *AudioClip) SetEffects(p analysis.EffectParameters) {
	c.mu.Lock()
	c.effects = p
	c.mu.Unlock()
}

func (c *AudioClip) SetVolume(v float64) {
	c.mu.Lock()
	c.effects.Volume = v
	c.mu.Unlock()
}

func (c *AudioClip) SetFadeIn(seconds float64) {
	c.mu.Lock()
	c.effects.FadeIn = seconds
	c.mu.Unlock()
}

func (c *AudioClip) SetFadeOut(seconds float64) {
	c.mu.Lock()
	c.effects.FadeOut = seconds
	c.mu.Unlock()
}

// withReader runs fn over a fresh decode session.
func (c *AudioClip) withReader(fn func(r *audio.Reader) error) error {
	r, err := audio.Open(c.info.Path)
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(r)
}

// Waveform returns width normalised RMS buckets with the clip's effects
// applied. Channels are averaged with sign before the gain, so opposed
// channels cancel as they would on a mono downmix.
func (c *AudioClip) Waveform(width int) ([]float32, error) {
	if width <= 0 {
		return []float32{}, nil
	}
	if c.info.Frames <= 0 {
		return make([]float32, width), nil
	}

	fx := c.Effects()
	shaper := analysis.NewShaper(fx, c.info.Frames, c.info.SampleRate)

	var out []float32
	err := c.withReader(func(r *audio.Reader) error {
		var err error
		out, err = analysis.Waveform(r, c.info.Frames, width, analysis.MixSigned, shaper)
		return err
	})
	return out, err
}

// RawWaveform returns width normalised RMS buckets of the magnitude mix,
// ignoring effects.
func (c *AudioClip) RawWaveform(width int) ([]float32, error) {
	if width <= 0 {
		return []float32{}, nil
	}
	if c.info.Frames <= 0 {
		return make([]float32, width), nil
	}

	var out []float32
	err := c.withReader(func(r *audio.Reader) error {
		var err error
		out, err = analysis.Waveform(r, c.info.Frames, width, analysis.MixAbs, nil)
		return err
	})
	return out, err
}

// SpeechIntervals returns spans louder than thresholdDB that last longer
// than minDuration seconds.
func (c *AudioClip) SpeechIntervals(thresholdDB, minDuration float64) ([]analysis.Interval, error) {
	var out []analysis.Interval
	err := c.withReader(func(r *audio.Reader) error {
		var err error
		out, err = analysis.DetectSpeech(r, c.info.SampleRate, thresholdDB, minDuration)
		return err
	})
	return out, err
}

// Peaks returns the absolute peak of every samplesPerPoint frames.
func (c *AudioClip) Peaks(samplesPerPoint int) ([]float32, error) {
	var out []float32
	err := c.withReader(func(r *audio.Reader) error {
		var err error
		out, err = analysis.Peaks(r, samplesPerPoint)
		return err
	})
	return out, err
}

// ExportWAV writes the clip as 16-bit PCM WAV and returns a status line.
func (c *AudioClip) ExportWAV(path string) (string, error) {
	if err := audio.ExportWAV(c.info.Path, path); err != nil {
		return "", fmt.Errorf("failed to export %s: %w", c.info.Path, err)
	}
	return "Exported to " + path, nil
}
