// This file provides console display for the info and analyze commands.

package logging

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/jivecut/internal/media"
	"github.com/linuxmatters/jivecut/internal/processor"
)

// DisplayInfo prints the stream descriptions of a probed file. Either info
// may be nil when the file has no such track; contentType may be empty.
func DisplayInfo(w io.Writer, path, contentType string, audio, video *media.Info) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "FILE: %s\n", filepath.Base(path))
	fmt.Fprintln(w, strings.Repeat("=", 70))
	if contentType != "" {
		fmt.Fprintf(w, "Type:          %s\n", contentType)
		fmt.Fprintln(w)
	}

	if video != nil {
		writeAnalysisSection(w, "VIDEO")
		fmt.Fprintf(w, "  Codec:       %s (stream #%d)\n", video.Codec, video.StreamIndex)
		fmt.Fprintf(w, "  Size:        %dx%d %s\n", video.Width, video.Height, video.PixFmt)
		fmt.Fprintf(w, "  Frame Rate:  %s fps\n", formatMetric(video.FrameRate, 3))
		fmt.Fprintf(w, "  Frames:      %d\n", video.Frames)
		fmt.Fprintf(w, "  Duration:    %s\n", formatDurationHMS(video.Duration()))
		fmt.Fprintf(w, "  Time Base:   %d/%d\n", video.TimeBase.Num, video.TimeBase.Den)
		fmt.Fprintln(w)
	}

	if audio != nil {
		writeAnalysisSection(w, "AUDIO")
		fmt.Fprintf(w, "  Codec:       %s (stream #%d)\n", audio.Codec, audio.StreamIndex)
		fmt.Fprintf(w, "  Sample Rate: %d Hz\n", audio.SampleRate)
		fmt.Fprintf(w, "  Channels:    %s\n", channelName(audio.Channels))
		fmt.Fprintf(w, "  Frames:      %d\n", audio.Frames)
		fmt.Fprintf(w, "  Duration:    %s\n", formatDurationHMS(audio.Duration()))
		fmt.Fprintln(w)
	}

	if audio == nil && video == nil {
		fmt.Fprintln(w, "No audio or video tracks.")
	}
}

// DisplayResult prints a compact analysis summary for one file.
func DisplayResult(w io.Writer, r *processor.Result) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "ANALYSIS: %s\n", filepath.Base(r.InputPath))
	fmt.Fprintln(w, strings.Repeat("=", 70))

	fmt.Fprintf(w, "Duration:    %s\n", formatDurationHMS(r.Info.Duration()))
	fmt.Fprintf(w, "Sample Rate: %d Hz\n", r.Info.SampleRate)
	fmt.Fprintf(w, "Channels:    %s\n", channelName(r.Info.Channels))
	fmt.Fprintln(w)

	writeAnalysisSection(w, "LEVELS")
	fmt.Fprintf(w, "  Peak Level:     %s dBFS (%s)\n", formatMetricDB(r.PeakDB, 1), interpretPeak(r.PeakDB))
	fmt.Fprintf(w, "  RMS Level:      %s dBFS (%s)\n", formatMetricDB(r.RMSDB, 1), interpretRMS(r.RMSDB))
	if l := r.Loudness; l != nil {
		fmt.Fprintf(w, "  Loudness:       %.1f LUFS (%s)
", l.Integrated, interpretLoudness(l.Integrated))
		fmt.Fprintf(w, "  True Peak:      %.1f dBTP
", l.TruePeak)
		fmt.Fprintf(w, "  LRA:            %.1f LU
", l.Range)
	}
	fmt.Fprintln(w)

	writeAnalysisSection(w, "SPEECH")
	fmt.Fprintf(w, "  Segments:       %d\n", len(r.Speech))
	fmt.Fprintf(w, "  Speech Time:    %s (%.0f%%)\n", formatDurationHMS(r.SpeechSeconds()), r.SpeechRatio()*100)
	for i, iv := range r.Speech {
		fmt.Fprintf(w, "  #%-3d %s → %s\n", i+1,
			formatTimestamp(seconds(iv.Start)), formatTimestamp(seconds(iv.End)))
	}
	fmt.Fprintln(w)

	if len(r.Waveform) > 0 {
		writeAnalysisSection(w, "WAVEFORM")
		fmt.Fprintf(w, "  |%s|\n", Sparkline(r.Waveform, 60))
		fmt.Fprintln(w)
	}

	if r.OutputPath != "" {
		fmt.Fprintf(w, "Exported to %s\n", r.OutputPath)
	}
}

// writeAnalysisSection writes a section header for console output.
func writeAnalysisSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
}

// formatDurationHMS formats duration as "Xh Ym Zs" or "Ym Zs" or "Z.Xs".
func formatDurationHMS(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}

	totalSeconds := int(seconds)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	secs := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	}
	return fmt.Sprintf("%dm %ds", minutes, secs)
}

// formatTimestamp formats a duration as a timestamp string (e.g., "1m 32s" or "24.0s").
func formatTimestamp(d time.Duration) string {
	totalSeconds := d.Seconds()
	if totalSeconds < 60 {
		return fmt.Sprintf("%.1fs", totalSeconds)
	}

	minutes := int(totalSeconds) / 60
	secs := math.Mod(totalSeconds, 60)

	if minutes >= 60 {
		hours := minutes / 60
		minutes = minutes % 60
		return fmt.Sprintf("%dh %dm %.0fs", hours, minutes, secs)
	}
	return fmt.Sprintf("%dm %.0fs", minutes, secs)
}
