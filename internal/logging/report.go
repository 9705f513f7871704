package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/jivecut/internal/processor"
)

// =============================================================================
// Interpretation Helpers
// =============================================================================

// interpretPeak describes a sample peak in dBFS
func interpretPeak(db float64) string {
	switch {
	case db >= -0.1:
		return "clipping likely"
	case db > -3:
		return "hot, little headroom"
	case db > -20:
		return "healthy headroom"
	case db > LevelFloorDB:
		return "quiet"
	default:
		return "silent"
	}
}

// interpretRMS describes an average level in dBFS
func interpretRMS(db float64) string {
	switch {
	case db > -12:
		return "loud"
	case db > -24:
		return "typical for speech"
	case db > -40:
		return "quiet"
	default:
		return "very quiet"
	}
}

// interpretCrest describes the peak-to-RMS ratio in dB
func interpretCrest(db float64) string {
	switch {
	case db < 6:
		return "heavily compressed"
	case db < 12:
		return "controlled dynamics"
	case db < 20:
		return "natural dynamics"
	default:
		return "very peaky"
	}
}

// interpretLoudness describes integrated loudness against common delivery targets
func interpretLoudness(lufs float64) string {
	switch {
	case lufs > -14:
		return "louder than streaming targets"
	case lufs >= -17:
		return "on target for podcasts"
	case lufs >= -24:
		return "broadcast range"
	default:
		return "quiet"
	}
}

// interpretSpeechRatio describes how much of the file is speech
func interpretSpeechRatio(ratio float64) string {
	switch {
	case ratio <= 0:
		return "no speech detected"
	case ratio < 0.4:
		return "sparse"
	case ratio < 0.8:
		return "conversational"
	default:
		return "near continuous"
	}
}

// =============================================================================
// Report Generation
// =============================================================================

// writeSection writes a section header with title and dashed underline.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// ReportData contains everything needed to write an analysis report
type ReportData struct {
	InputPath    string
	OutputDir    string // report directory, "" = alongside the input
	StartTime    time.Time
	EndTime      time.Time
	AnalysisTime time.Duration
	ExportTime   time.Duration // 0 when no WAV was exported
	Options      processor.Options
	Result       *processor.Result
}

// ReportPath returns where the report for inputPath is written.
// Example: /path/to/episode.mp4 → /path/to/episode-jivecut.log
func ReportPath(inputPath, outputDir string) string {
	wav := processor.GenerateOutputPath(inputPath, outputDir)
	return strings.TrimSuffix(wav, filepath.Ext(wav)) + ".log"
}

// GenerateReport writes the report file and returns its path.
func GenerateReport(data ReportData) (string, error) {
	logPath := ReportPath(data.InputPath, data.OutputDir)

	f, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}

	WriteReport(f, data)

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write log file: %w", err)
	}
	return logPath, nil
}

// WriteReport renders the full report to w.
//
// Report structure:
// 1. Header - file info and timestamp
// 2. Processing Summary - pass timings
// 3. Stream - codec and layout
// 4. Effects - the envelope applied to the waveform
// 5. Levels - peak, RMS and crest factor with interpretations
// 6. Speech Detection - settings, totals and the segment list
// 7. Waveform - a one-line sketch of the envelope
func WriteReport(w io.Writer, data ReportData) {
	writeReportHeader(w, data)
	writeProcessingSummary(w, data)

	r := data.Result
	if r == nil {
		fmt.Fprintln(w, "No analysis result.")
		return
	}

	writeStreamSection(w, r)
	writeEffectsSection(w, data.Options)
	writeLevelsTable(w, r)
	writeSpeechSection(w, data.Options, r)
	writeWaveformSection(w, r.Waveform)
}

func writeReportHeader(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "Jivecut Analysis Report")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintf(w, "File: %s\n", filepath.Base(data.InputPath))
	fmt.Fprintf(w, "Analyzed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	if data.Result != nil {
		fmt.Fprintf(w, "Duration: %s\n", formatDuration(seconds(data.Result.Info.Duration())))
	}
	fmt.Fprintln(w, "")
}

// writeProcessingSummary outputs the time spent in each pass.
func writeProcessingSummary(w io.Writer, data ReportData) {
	writeSection(w, "Processing Summary")

	fmt.Fprintf(w, "Pass 1 (Analysis):  %s\n", formatDuration(data.AnalysisTime))
	if data.ExportTime > 0 {
		fmt.Fprintf(w, "Pass 2 (Export):    %s\n", formatDuration(data.ExportTime))
	}

	totalTime := data.EndTime.Sub(data.StartTime)
	fmt.Fprintf(w, "Total:              %s", formatDuration(totalTime))

	if data.Result != nil && totalTime > 0 {
		if d := data.Result.Info.Duration(); d > 0 {
			fmt.Fprintf(w, " (%.0fx real-time)", float64(seconds(d))/float64(totalTime))
		}
	}
	fmt.Fprintln(w, "")
	if data.Result != nil && data.Result.OutputPath != "" {
		fmt.Fprintf(w, "Exported: %s\n", filepath.Base(data.Result.OutputPath))
	}
	fmt.Fprintln(w, "")
}

func writeStreamSection(w io.Writer, r *processor.Result) {
	writeSection(w, "Stream")
	fmt.Fprintf(w, "Codec:        %s\n", r.Info.Codec)
	fmt.Fprintf(w, "Sample Rate:  %d Hz\n", r.Info.SampleRate)
	fmt.Fprintf(w, "Channels:     %s\n", channelName(r.Info.Channels))
	fmt.Fprintf(w, "Frames:       %d decoded", r.Frames)
	if r.Info.Frames > 0 && r.Info.Frames != r.Frames {
		fmt.Fprintf(w, " (%d declared)", r.Info.Frames)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "")
}

func writeEffectsSection(w io.Writer, opts processor.Options) {
	if opts.Effects.IsIdentity() {
		return
	}
	writeSection(w, "Effects")
	fmt.Fprintf(w, "Volume:    %s dB (x%s)\n", formatMetricSigned(gainDB(opts.Effects.Volume), 1), formatMetric(opts.Effects.Volume, 2))
	fmt.Fprintf(w, "Fade In:   %s\n", formatMetricWithUnit(opts.Effects.FadeIn, 2, "s"))
	fmt.Fprintf(w, "Fade Out:  %s\n", formatMetricWithUnit(opts.Effects.FadeOut, 2, "s"))
	fmt.Fprintln(w, "")
}

func writeLevelsTable(w io.Writer, r *processor.Result) {
	writeSection(w, "Levels")

	table := NewMetricTable("Value")
	table.AddRow("Peak Level", []string{formatMetricDB(r.PeakDB, 1)}, "dBFS", interpretPeak(r.PeakDB))
	table.AddRow("RMS Level", []string{formatMetricDB(r.RMSDB, 1)}, "dBFS", interpretRMS(r.RMSDB))
	if r.PeakDB > LevelFloorDB {
		crest := r.PeakDB - r.RMSDB
		table.AddMetricRow("Crest Factor", []float64{crest}, 1, "dB", interpretCrest(crest))
	}
	if l := r.Loudness; l != nil {
		table.AddMetricRow("Integrated", []float64{l.Integrated}, 1, "LUFS", interpretLoudness(l.Integrated))
		table.AddMetricRow("True Peak", []float64{l.TruePeak}, 1, "dBTP", "")
		table.AddMetricRow("Loudness Range", []float64{l.Range}, 1, "LU", "")
	}
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

func writeSpeechSection(w io.Writer, opts processor.Options, r *processor.Result) {
	writeSection(w, "Speech Detection")
	fmt.Fprintf(w, "Threshold:     %.1f dBFS\n", opts.ThresholdDB)
	fmt.Fprintf(w, "Min Duration:  %s\n", formatMetricWithUnit(opts.MinDuration, 2, "s"))
	fmt.Fprintf(w, "Segments:      %d\n", len(r.Speech))
	fmt.Fprintf(w, "Speech Time:   %s (%.0f%%, %s)\n",
		formatDuration(seconds(r.SpeechSeconds())), r.SpeechRatio()*100, interpretSpeechRatio(r.SpeechRatio()))

	if len(r.Speech) > 0 {
		fmt.Fprintln(w, "")
		table := NewMetricTable("Start", "End", "Length")
		for i, iv := range r.Speech {
			table.AddRow(fmt.Sprintf("#%d", i+1), []string{
				formatTimestamp(seconds(iv.Start)),
				formatTimestamp(seconds(iv.End)),
				formatMetric(iv.Duration(), 2),
			}, "s", "")
		}
		fmt.Fprint(w, table.String())
	}
	fmt.Fprintln(w, "")
}

func writeWaveformSection(w io.Writer, waveform []float32) {
	if len(waveform) == 0 {
		return
	}
	writeSection(w, "Waveform")
	fmt.Fprintf(w, "|%s|\n", Sparkline(waveform, 60))
	fmt.Fprintln(w, "")
}

// =============================================================================
// Formatting Helpers
// =============================================================================

var sparkLevels = []rune(" ▁▂▃▄▅▆▇█")

// Sparkline reduces values in [0, 1] to at most width block characters,
// keeping the maximum of each run so short bursts stay visible.
func Sparkline(values []float32, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	width = min(width, len(values))

	var sb strings.Builder
	for col := range width {
		from := col * len(values) / width
		to := (col + 1) * len(values) / width
		var peak float32
		for _, v := range values[from:to] {
			peak = max(peak, v)
		}
		idx := int(float64(min(max(peak, 0), 1))*float64(len(sparkLevels)-1) + 0.5)
		sb.WriteRune(sparkLevels[idx])
	}
	return sb.String()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// gainDB converts a linear multiplier to dB
func gainDB(linear float64) float64 {
	if linear <= 0 {
		return LevelFloorDB
	}
	return 20 * math.Log10(linear)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	secs := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
}

// channelName returns a human-readable channel name
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
