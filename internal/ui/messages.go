package ui

import (
	"github.com/linuxmatters/jivecut/internal/processor"
)

// ProgressMsg is a progress update for one file. Files may run
// concurrently, so every message carries its index.
type ProgressMsg struct {
	FileIndex int
	Pass      int     // 1 or 2
	PassName  string  // "Analyzing" or "Exporting"
	Progress  float64 // 0.0 to 1.0
	Level     float64 // RMS level of the latest window in dB
}

// FileStartMsg indicates a file has been picked up by a worker
type FileStartMsg struct {
	FileIndex int
	FileName  string
}

// FileCompleteMsg indicates a file has finished
type FileCompleteMsg struct {
	FileIndex int
	Result    *processor.Result
	Error     error
}

// AllCompleteMsg indicates all files have been processed
type AllCompleteMsg struct{}
