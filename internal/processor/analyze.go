// Package processor runs the per-file analysis job: one decode pass that
// builds the waveform, finds speech and measures levels, then an optional
// WAV export.
package processor

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/jivecut/internal/analysis"
	"github.com/linuxmatters/jivecut/internal/audio"
	"github.com/linuxmatters/jivecut/internal/config"
	"github.com/linuxmatters/jivecut/internal/media"
)

// Pass names reported through ProgressFunc.
const (
	PassAnalyze = "Analyzing"
	PassExport  = "Exporting"
)

// silenceFloorDB is the bottom of the level scale; anything quieter reads as this.
const silenceFloorDB = -60.0

// updateInterval is the number of sample frames between progress callbacks.
const updateInterval = 4096

// ProgressFunc receives progress for pass (1-based) as a fraction in [0, 1]
// along with the RMS level in dBFS of the most recent window.
type ProgressFunc func(pass int, passName string, progress float64, level float64)

// Options controls a single Analyze run.
type Options struct {
	WaveformWidth int
	ThresholdDB   float64
	MinDuration   float64 // seconds
	Effects       analysis.EffectParameters

	// Loudness adds EBU R128 metering to the decode pass.
	Loudness bool

	// ExportWAV writes <name>-jivecut.wav next to the input, or into
	// OutputDir when set.
	ExportWAV bool
	OutputDir string
}

// OptionsFromConfig maps loaded settings onto analysis options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WaveformWidth: cfg.Waveform.Width,
		ThresholdDB:   cfg.Speech.ThresholdDB,
		MinDuration:   cfg.Speech.MinDuration,
		Effects: analysis.EffectParameters{
			Volume:  cfg.Effects.Volume,
			FadeIn:  cfg.Effects.FadeIn,
			FadeOut: cfg.Effects.FadeOut,
		},
	}
}

// Validate applies the config file's range checks to o, so values that
// arrive from flags are held to the same rules.
func (o Options) Validate() error {
	return errors.Join(
		config.WaveformConfig{Width: o.WaveformWidth}.Validate(),
		config.SpeechConfig{ThresholdDB: o.ThresholdDB, MinDuration: o.MinDuration}.Validate(),
		config.EffectsConfig{Volume: o.Effects.Volume, FadeIn: o.Effects.FadeIn, FadeOut: o.Effects.FadeOut}.Validate(),
	)
}

// Result holds everything measured for one input.
type Result struct {
	InputPath  string
	OutputPath string // empty unless a WAV was exported
	Info       media.Info
	Frames     int64 // sample frames actually decoded

	Waveform []float32
	Speech   []analysis.Interval

	PeakDB float64
	RMSDB  float64

	// Loudness is nil unless metering was requested and produced a reading.
	Loudness *audio.Loudness
}

// SpeechSeconds is the total length of all detected speech.
func (r *Result) SpeechSeconds() float64 {
	var total float64
	for _, iv := range r.Speech {
		total += iv.Duration()
	}
	return total
}

// SpeechRatio is the fraction of the decoded audio that is speech.
func (r *Result) SpeechRatio() float64 {
	rate := r.Info.SampleRate
	if rate <= 0 || r.Frames <= 0 {
		return 0
	}
	return r.SpeechSeconds() / (float64(r.Frames) / float64(rate))
}

// Analyze decodes the first audio track of inputPath once, feeding the
// waveform binner, the speech segmenter and the level meters from the same
// stream. If progress is not nil it is called periodically.
func Analyze(inputPath string, opts Options, progress ProgressFunc) (*Result, error) {
	if progress != nil {
		progress(1, PassAnalyze, 0.0, silenceFloorDB)
	}

	// Reject obvious non-media early; unreadable paths fall through to Open.
	if ct, err := media.ContentType(inputPath); err == nil && !media.IsMediaType(ct) {
		return nil, fmt.Errorf("%s is %s: %w", filepath.Base(inputPath), ct, media.ErrNoSuitableTrack)
	}

	open := audio.Open
	if opts.Loudness {
		open = audio.OpenMetered
	}
	reader, err := open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	defer reader.Close()

	info := reader.Info()
	total := info.Frames

	binner := analysis.NewBinner(total, opts.WaveformWidth)
	shaper := analysis.NewShaper(opts.Effects, total, info.SampleRate)
	segmenter := analysis.NewSegmenter(opts.ThresholdDB, opts.MinDuration, info.SampleRate)

	var (
		peak        float32
		sumSquares  float64
		window      float64
		windowCount int
	)

	frames, err := analysis.VisitFrames(reader, func(index int64, frame []float32) bool {
		signed := analysis.MixSigned.Mix(frame)
		amp := analysis.MixAbs.Mix(frame)

		if total > 0 {
			binner.Add(index, signed*shaper.Gain(index))
		}
		segmenter.Add(index, amp)

		for _, s := range frame {
			if a := float32(math.Abs(float64(s))); a > peak {
				peak = a
			}
		}
		sq := float64(signed) * float64(signed)
		sumSquares += sq
		window += sq
		windowCount++

		if windowCount == updateInterval {
			if progress != nil && total > 0 {
				progress(1, PassAnalyze, math.Min(1.0, float64(index)/float64(total)), levelDB(window, windowCount))
			}
			window = 0
			windowCount = 0
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", filepath.Base(inputPath), err)
	}

	result := &Result{
		InputPath: inputPath,
		Info:      info,
		Frames:    frames,
		Waveform:  binner.Finish(),
		Speech:    segmenter.Finish(frames),
		PeakDB:    amplitudeDB(float64(peak)),
		RMSDB:     levelDB(sumSquares, int(frames)),
	}
	if l, ok := reader.Loudness(); ok {
		result.Loudness = &l
	}
	if total <= 0 {
		result.Waveform = make([]float32, max(opts.WaveformWidth, 0))
	}

	if progress != nil {
		progress(1, PassAnalyze, 1.0, result.RMSDB)
	}

	if !opts.ExportWAV {
		return result, nil
	}

	outputPath := GenerateOutputPath(inputPath, opts.OutputDir)
	if progress != nil {
		progress(2, PassExport, 0.0, result.RMSDB)
	}
	if err := audio.ExportWAV(inputPath, outputPath); err != nil {
		return result, fmt.Errorf("failed to export WAV: %w", err)
	}
	result.OutputPath = outputPath
	if progress != nil {
		progress(2, PassExport, 1.0, result.RMSDB)
	}

	return result, nil
}

// GenerateOutputPath creates the WAV filename for an input.
// Example: /path/to/episode.mp4 → /path/to/episode-jivecut.wav
func GenerateOutputPath(inputPath, outputDir string) string {
	dir := filepath.Dir(inputPath)
	if outputDir != "" {
		dir = outputDir
	}
	filename := filepath.Base(inputPath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	return filepath.Join(dir, nameWithoutExt+"-jivecut.wav")
}

// levelDB converts a sum of squares over n samples to an RMS level in dBFS,
// clamped to [silenceFloorDB, 0].
func levelDB(sumSquares float64, n int) float64 {
	if n <= 0 {
		return silenceFloorDB
	}
	return amplitudeDB(math.Sqrt(sumSquares / float64(n)))
}

// amplitudeDB converts a linear amplitude to dBFS, clamped to [silenceFloorDB, 0].
func amplitudeDB(a float64) float64 {
	if a < 0.00001 { // -100 dB
		return silenceFloorDB
	}
	db := 20.0 * math.Log10(a)
	if db < silenceFloorDB {
		return silenceFloorDB
	} else if db > 0.0 {
		return 0.0
	}
	return db
}
