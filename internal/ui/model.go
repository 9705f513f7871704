// Package ui provides the Bubbletea terminal user interface for jivecut
package ui

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/jivecut/internal/processor"
)

// FileStatus represents the analysis state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusAnalyzing
	StatusExporting
	StatusComplete
	StatusError
)

// FileProgress tracks progress for a single input file
type FileProgress struct {
	InputPath string
	Status    FileStatus

	// Phase tracking
	CurrentPass int // 1 or 2
	PassName    string
	TotalPasses int

	Progress    float64 // 0.0 to 1.0
	StartTime   time.Time
	ElapsedTime time.Duration

	CurrentLevel float64 // dB
	PeakLevel    float64 // loudest window seen so far

	Result *processor.Result
	Error  error
}

// Model is the Bubbletea model for the batch analysis UI
type Model struct {
	Files          []FileProgress
	Active         int
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int

	StartTime time.Time
	Done      bool

	// Workers send ProgressMsg, FileStartMsg and FileCompleteMsg here
	ProgressChan chan tea.Msg

	Width  int
	Height int
}

// NewModel creates a new UI model for inputFiles. exporting selects whether
// files are expected to run a second pass.
func NewModel(inputFiles []string, exporting bool) Model {
	passes := 1
	if exporting {
		passes = 2
	}

	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath:   path,
			Status:      StatusQueued,
			TotalPasses: passes,
			PeakLevel:   -60.0,
		}
	}

	return Model{
		Files:        files,
		TotalFiles:   len(inputFiles),
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 100),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return waitForProgress(m.ProgressChan)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case ProgressMsg:
		if m.valid(msg.FileIndex) {
			m.Files[msg.FileIndex] = updateFileProgress(m.Files[msg.FileIndex], msg)
		}
		return m, waitForProgress(m.ProgressChan)

	case FileStartMsg:
		slog.Debug("file started", "index", msg.FileIndex, "file", msg.FileName)
		if m.valid(msg.FileIndex) {
			m.Files[msg.FileIndex].Status = StatusAnalyzing
			m.Files[msg.FileIndex].StartTime = time.Now()
			m.Active++
		}
		return m, waitForProgress(m.ProgressChan)

	case FileCompleteMsg:
		slog.Debug("file complete", "index", msg.FileIndex, "error", msg.Error)
		if m.valid(msg.FileIndex) {
			fp := &m.Files[msg.FileIndex]
			fp.Result = msg.Result
			fp.Error = msg.Error
			fp.Progress = 1.0
			if msg.Error != nil {
				fp.Status = StatusError
				m.FailedFiles++
			} else {
				fp.Status = StatusComplete
				m.CompletedFiles++
			}
			if m.Active > 0 {
				m.Active--
			}
		}
		return m, waitForProgress(m.ProgressChan)

	case AllCompleteMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProcessingView(m)
}

func (m Model) valid(i int) bool {
	return i >= 0 && i < len(m.Files)
}

// updateFileProgress updates a FileProgress based on a ProgressMsg
func updateFileProgress(fp FileProgress, msg ProgressMsg) FileProgress {
	// Reset the start time when transitioning to a new pass
	if msg.Pass != fp.CurrentPass {
		fp.StartTime = time.Now()
	}

	fp.Progress = msg.Progress
	fp.CurrentPass = msg.Pass
	fp.PassName = msg.PassName
	fp.ElapsedTime = time.Since(fp.StartTime)

	if msg.Level != 0 {
		fp.CurrentLevel = msg.Level
		if msg.Level > fp.PeakLevel {
			fp.PeakLevel = msg.Level
		}
	}

	switch msg.Pass {
	case 1:
		fp.Status = StatusAnalyzing
	case 2:
		fp.Status = StatusExporting
	}

	return fp
}

// waitForProgress creates a command that waits for progress messages
func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}
