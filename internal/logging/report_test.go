package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linuxmatters/jivecut/internal/analysis"
	"github.com/linuxmatters/jivecut/internal/audio"
	"github.com/linuxmatters/jivecut/internal/media"
	"github.com/linuxmatters/jivecut/internal/processor"
)

func sampleResult() *processor.Result {
	return &processor.Result{
		InputPath:  "/rec/episode.mp4",
		OutputPath: "/rec/episode-jivecut.wav",
		Info: media.Info{
			Kind:       media.KindAudio,
			Codec:      "aac",
			SampleRate: 48000,
			Channels:   2,
			Frames:     48000 * 90,
		},
		Frames:   48000 * 90,
		Waveform: []float32{0, 0.5, 1, 0.25},
		Speech: []analysis.Interval{
			{Start: 1.5, End: 30},
			{Start: 32, End: 75.25},
		},
		PeakDB: -1.5,
		RMSDB:  -18.2,
	}
}

func TestWriteReport(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	opts := processor.Options{
		ThresholdDB: -40,
		MinDuration: 0.2,
		Effects:     analysis.EffectParameters{Volume: 0.5, FadeIn: 1},
	}

	var buf bytes.Buffer
	WriteReport(&buf, ReportData{
		InputPath:    "/rec/episode.mp4",
		StartTime:    start,
		EndTime:      start.Add(3 * time.Second),
		AnalysisTime: 2 * time.Second,
		ExportTime:   time.Second,
		Options:      opts,
		Result:       sampleResult(),
	})
	out := buf.String()

	for _, want := range []string{
		"Jivecut Analysis Report",
		"File: episode.mp4",
		"Duration: 1m 30s",
		"Pass 2 (Export):",
		"(30x real-time)",
		"Exported: episode-jivecut.wav",
		"Codec:        aac",
		"stereo",
		"Volume:    -6.0 dB",
		"Fade In:   1.00 s",
		"Peak Level",
		"hot, little headroom",
		"typical for speech",
		"Crest Factor",
		"Segments:      2",
		"Speech Time:   1m 11s (80%, conversational)",
		"1m 15s",
		"|" + Sparkline([]float32{0, 0.5, 1, 0.25}, 60) + "|",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReportWithoutEffectsOrExport(t *testing.T) {
	r := sampleResult()
	r.OutputPath = ""
	r.Speech = []analysis.Interval{}

	var buf bytes.Buffer
	WriteReport(&buf, ReportData{
		InputPath: r.InputPath,
		Options:   processor.Options{Effects: analysis.DefaultEffects()},
		Result:    r,
	})
	out := buf.String()

	for _, unwanted := range []string{"Effects", "Pass 2", "Exported", "Start"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("report should not contain %q:\n%s", unwanted, out)
		}
	}
	if !strings.Contains(out, "no speech detected") {
		t.Errorf("report missing empty speech interpretation:\n%s", out)
	}
}

func TestWriteReportLoudness(t *testing.T) {
	r := sampleResult()
	r.Loudness = &audio.Loudness{Integrated: -16.2, TruePeak: -1.1, Range: 6.5}

	var buf bytes.Buffer
	WriteReport(&buf, ReportData{InputPath: r.InputPath, Result: r})
	out := buf.String()
	for _, want := range []string{"Integrated", "-16.2", "on target for podcasts", "True Peak", "Loudness Range", "6.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	DisplayResult(&buf, r)
	if !strings.Contains(buf.String(), "Loudness:       -16.2 LUFS (on target for podcasts)") {
		t.Errorf("display missing loudness:\n%s", buf.String())
	}
}

func TestGenerateReport(t *testing.T) {
	dir := t.TempDir()
	path, err := GenerateReport(ReportData{
		InputPath: "/rec/episode.mp4",
		OutputDir: dir,
		Result:    sampleResult(),
	})
	if err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	if want := filepath.Join(dir, "episode-jivecut.log"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.HasPrefix(string(data), "Jivecut Analysis Report") {
		t.Errorf("unexpected report start: %q", string(data[:min(len(data), 40)]))
	}
}

func TestGenerateReportBadDir(t *testing.T) {
	_, err := GenerateReport(ReportData{
		InputPath: "/rec/episode.mp4",
		OutputDir: filepath.Join(t.TempDir(), "missing"),
	})
	if err == nil {
		t.Fatal("GenerateReport into a missing directory succeeded")
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float32
		width  int
		want   string
	}{
		{"empty", nil, 10, ""},
		{"zero_width", []float32{1}, 0, ""},
		{"one_to_one", []float32{0, 0.5, 1}, 3, " ▄█"},
		{"max_of_run", []float32{0, 1, 0, 0}, 2, "█ "},
		{"narrower_input", []float32{1, 1}, 10, "██"},
		{"clamped", []float32{-1, 2}, 2, " █"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("Sparkline(%v, %d) = %q, want %q", tt.values, tt.width, got, tt.want)
			}
		})
	}
}

func TestInterpretations(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"peak_clipping", interpretPeak(0), "clipping likely"},
		{"peak_healthy", interpretPeak(-6), "healthy headroom"},
		{"peak_silent", interpretPeak(LevelFloorDB), "silent"},
		{"rms_loud", interpretRMS(-6), "loud"},
		{"rms_quiet", interpretRMS(-30), "quiet"},
		{"crest_compressed", interpretCrest(4), "heavily compressed"},
		{"crest_natural", interpretCrest(15), "natural dynamics"},
		{"ratio_none", interpretSpeechRatio(0), "no speech detected"},
		{"ratio_continuous", interpretSpeechRatio(0.9), "near continuous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute + 7*time.Second, "2h 5m 7s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestDisplayResult(t *testing.T) {
	var buf bytes.Buffer
	DisplayResult(&buf, sampleResult())
	out := buf.String()

	for _, want := range []string{
		"ANALYSIS: episode.mp4",
		"Duration:    1m 30s",
		"Peak Level:     -1.5 dBFS",
		"Segments:       2",
		"#1   1.5s → 30.0s",
		"#2   32.0s → 1m 15s",
		"Exported to /rec/episode-jivecut.wav",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("display missing %q:\n%s", want, out)
		}
	}
}

func TestDisplayInfo(t *testing.T) {
	video := &media.Info{
		Kind:          media.KindVideo,
		Codec:         "h264",
		Width:         1920,
		Height:        1080,
		PixFmt:        "yuv420p",
		FrameRate:     25,
		Frames:        250,
		TimeBase:      media.Rational{Num: 1, Den: 12800},
		DurationTicks: 128000,
	}
	audio := &media.Info{Kind: media.KindAudio, Codec: "aac", SampleRate: 48000, Channels: 1, Frames: 480000}

	var buf bytes.Buffer
	DisplayInfo(&buf, "/v/clip.mp4", "video/mp4", audio, video)
	out := buf.String()
	for _, want := range []string{"FILE: clip.mp4", "Type:          video/mp4", "1920x1080 yuv420p", "25.000 fps", "Time Base:   1/12800", "mono", "Duration:    10.0s"} {
		if !strings.Contains(out, want) {
			t.Errorf("info missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	DisplayInfo(&buf, "/v/empty.bin", "", nil, nil)
	if !strings.Contains(buf.String(), "No audio or video tracks.") {
		t.Errorf("empty info output = %q", buf.String())
	}
}
