package processor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linuxmatters/jivecut/internal/analysis"
	"github.com/linuxmatters/jivecut/internal/config"
	"github.com/linuxmatters/jivecut/internal/media"
	"github.com/linuxmatters/jivecut/internal/testaudio"
)

func defaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

func gappedDC(t *testing.T) string {
	t.Helper()
	opts := testaudio.Options{DurationSecs: 3.0, DC: 0.25}
	opts.Silence.Start = 1.0
	opts.Silence.Duration = 1.0
	return testaudio.Generate(t, opts)
}

func TestAnalyze(t *testing.T) {
	path := gappedDC(t)

	result, err := Analyze(path, defaultOptions(), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Frames != 3*44100 {
		t.Errorf("Frames = %d, want %d", result.Frames, 3*44100)
	}
	if len(result.Waveform) != 800 {
		t.Fatalf("len(Waveform) = %d, want 800", len(result.Waveform))
	}
	var maxV float32
	for _, v := range result.Waveform {
		maxV = max(maxV, v)
	}
	if math.Abs(float64(maxV)-1.0) > 1e-6 {
		t.Errorf("waveform peak = %v, want 1.0", maxV)
	}
	if mid := result.Waveform[400]; mid != 0 {
		t.Errorf("waveform during silence = %v, want 0", mid)
	}

	want := []analysis.Interval{{Start: 0, End: 1}, {Start: 2, End: 3}}
	if len(result.Speech) != len(want) {
		t.Fatalf("Speech = %v, want %v", result.Speech, want)
	}
	for i, iv := range result.Speech {
		if math.Abs(iv.Start-want[i].Start) > 1e-3 || math.Abs(iv.End-want[i].End) > 1e-3 {
			t.Errorf("Speech[%d] = %+v, want %+v", i, iv, want[i])
		}
	}
	if got := result.SpeechSeconds(); math.Abs(got-2.0) > 1e-3 {
		t.Errorf("SpeechSeconds() = %v, want 2.0", got)
	}
	if got := result.SpeechRatio(); math.Abs(got-2.0/3.0) > 1e-3 {
		t.Errorf("SpeechRatio() = %v, want 0.667", got)
	}

	// 0.25 full scale is -12.04 dBFS; two thirds of it by energy is -13.80.
	if math.Abs(result.PeakDB-(-12.04)) > 0.1 {
		t.Errorf("PeakDB = %.2f, want -12.04", result.PeakDB)
	}
	if math.Abs(result.RMSDB-(-13.80)) > 0.1 {
		t.Errorf("RMSDB = %.2f, want -13.80", result.RMSDB)
	}
	if result.OutputPath != "" {
		t.Errorf("OutputPath = %q, want empty without export", result.OutputPath)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	path := testaudio.Generate(t, testaudio.Options{DurationSecs: 2.0})

	result, err := Analyze(path, defaultOptions(), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for i, v := range result.Waveform {
		if v != 0 {
			t.Fatalf("Waveform[%d] = %v, want 0", i, v)
		}
	}
	if len(result.Speech) != 0 {
		t.Errorf("Speech = %v, want none", result.Speech)
	}
	if result.Speech == nil {
		t.Error("Speech is nil, want empty slice")
	}
	if result.PeakDB != silenceFloorDB || result.RMSDB != silenceFloorDB {
		t.Errorf("levels = %.1f / %.1f, want floor", result.PeakDB, result.RMSDB)
	}
}

func TestAnalyzeEffects(t *testing.T) {
	path := testaudio.Generate(t, testaudio.Options{DurationSecs: 2.0, DC: 0.5})

	opts := defaultOptions()
	opts.WaveformWidth = 20
	opts.Effects.FadeIn = 1.0

	result, err := Analyze(path, opts, nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Waveform[0] >= result.Waveform[5] {
		t.Errorf("fade-in not applied: %v", result.Waveform[:10])
	}
	if math.Abs(float64(result.Waveform[19])-1.0) > 1e-6 {
		t.Errorf("Waveform[19] = %v, want 1.0 after the fade", result.Waveform[19])
	}

	// speech detection ignores effects
	if len(result.Speech) != 1 || result.Speech[0].Start != 0 {
		t.Errorf("Speech = %v, want one interval from 0", result.Speech)
	}
}

func TestAnalyzeProgress(t *testing.T) {
	path := gappedDC(t)

	type call struct {
		pass     int
		name     string
		progress float64
		level    float64
	}
	var calls []call
	record := func(pass int, passName string, progress, level float64) {
		calls = append(calls, call{pass, passName, progress, level})
	}

	opts := defaultOptions()
	opts.ExportWAV = true
	opts.OutputDir = t.TempDir()

	result, err := Analyze(path, opts, record)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(calls) < 4 {
		t.Fatalf("got %d progress calls, want at least 4", len(calls))
	}
	if first := calls[0]; first.pass != 1 || first.name != PassAnalyze || first.progress != 0 {
		t.Errorf("first call = %+v, want pass 1 at 0", first)
	}
	if last := calls[len(calls)-1]; last.pass != 2 || last.name != PassExport || last.progress != 1.0 {
		t.Errorf("last call = %+v, want pass 2 at 1.0", last)
	}

	prev := call{pass: 1}
	for i, c := range calls {
		if c.progress < 0 || c.progress > 1 {
			t.Errorf("call %d progress = %v out of range", i, c.progress)
		}
		if c.level < silenceFloorDB || c.level > 0 {
			t.Errorf("call %d level = %v out of range", i, c.level)
		}
		if c.pass == prev.pass && c.progress < prev.progress {
			t.Errorf("call %d progress went backwards: %v after %v", i, c.progress, prev.progress)
		}
		if c.pass < prev.pass {
			t.Errorf("call %d pass went backwards", i)
		}
		prev = c
	}

	want := filepath.Join(opts.OutputDir, filepath.Base(path[:len(path)-len(filepath.Ext(path))])+"-jivecut.wav")
	if result.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", result.OutputPath, want)
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	if _, err := Analyze(filepath.Join(t.TempDir(), "nope.wav"), defaultOptions(), nil); err == nil {
		t.Fatal("Analyze on a missing file succeeded")
	}
}

func TestAnalyzeNotMedia(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Analyze(path, defaultOptions(), nil)
	if !errors.Is(err, media.ErrNoSuitableTrack) {
		t.Fatalf("Analyze error = %v, want ErrNoSuitableTrack", err)
	}
}

func TestGenerateOutputPath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		outputDir string
		want      string
	}{
		{"video", "/path/to/episode.mp4", "", "/path/to/episode-jivecut.wav"},
		{"wav input", "/path/to/episode.wav", "", "/path/to/episode-jivecut.wav"},
		{"dotted name", "/tmp/a.b.flac", "", "/tmp/a.b-jivecut.wav"},
		{"no extension", "/tmp/raw", "", "/tmp/raw-jivecut.wav"},
		{"output dir", "/path/to/episode.mkv", "/out", "/out/episode-jivecut.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateOutputPath(tt.input, tt.outputDir); got != tt.want {
				t.Errorf("GenerateOutputPath(%q, %q) = %q, want %q", tt.input, tt.outputDir, got, tt.want)
			}
		})
	}
}

func TestAmplitudeDB(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.0, 0.0},
		{2.0, 0.0},
		{0.5, -6.0206},
		{0.1, -20.0},
		{0.0001, silenceFloorDB},
		{0, silenceFloorDB},
	}
	for _, tt := range tests {
		if got := amplitudeDB(tt.in); math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("amplitudeDB(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := levelDB(0, 0); got != silenceFloorDB {
		t.Errorf("levelDB with no samples = %v, want floor", got)
	}
}

func TestAnalyzeLoudness(t *testing.T) {
	path := testaudio.Generate(t, testaudio.Options{DurationSecs: 3.0, ToneFreq: 1000, ToneLevel: -12})

	plain, err := Analyze(path, defaultOptions(), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if plain.Loudness != nil {
		t.Errorf("Loudness = %+v without metering, want nil", plain.Loudness)
	}

	opts := defaultOptions()
	opts.Loudness = true
	metered, err := Analyze(path, opts, nil)
	if err != nil {
		t.Fatalf("metered Analyze failed: %v", err)
	}
	if metered.Loudness == nil {
		t.Fatal("Loudness = nil with metering")
	}
	if l := metered.Loudness.Integrated; l >= 0 || l < -30 {
		t.Errorf("Integrated = %.1f LUFS, want a level near the tone", l)
	}
	if metered.Frames != plain.Frames {
		t.Errorf("metering changed the decoded length: %d vs %d", metered.Frames, plain.Frames)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr string
	}{
		{"defaults", func(*Options) {}, ""},
		{"zero_values", func(o *Options) { *o = Options{} }, ""},
		{"negative_width", func(o *Options) { o.WaveformWidth = -1 }, "waveform.width"},
		{"positive_threshold", func(o *Options) { o.ThresholdDB = 6 }, "threshold_db"},
		{"negative_min_duration", func(o *Options) { o.MinDuration = -0.1 }, "min_duration"},
		{"negative_volume", func(o *Options) { o.Effects.Volume = -2 }, "effects.volume"},
		{"negative_fade_in", func(o *Options) { o.Effects.FadeIn = -1 }, "effects.fade_in"},
		{"negative_fade_out", func(o *Options) { o.Effects.FadeOut = -1 }, "effects.fade_out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.modify(&opts)
			err := opts.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
