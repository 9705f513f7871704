package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Spinner frames for indeterminate progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TaskModel is the Bubbletea model for a single long-running job such as
// rendering a composite or extracting a strip.
type TaskModel struct {
	Title    string // e.g. "Rendering"
	FileName string
	FilePath string

	Progress  float64 // 0.0 to 1.0, or 0 while indeterminate
	Detail    string  // e.g. "frame 120/750"
	StartTime time.Time

	spinnerIndex int

	Summary string
	Error   error
	Done    bool

	Width  int
	Height int
}

// TaskStartMsg signals the job has started
type TaskStartMsg struct {
	Title    string
	FilePath string
}

// TaskProgressMsg signals a progress update
type TaskProgressMsg struct {
	Progress float64
	Detail   string
}

// TaskCompleteMsg signals the job has finished
type TaskCompleteMsg struct {
	Summary string
	Error   error
}

// tickMsg is sent for spinner/timer animation
type tickMsg time.Time

// NewTaskModel creates a new single-job UI model
func NewTaskModel() TaskModel {
	return TaskModel{
		StartTime: time.Now(),
	}
}

// Init initializes the model
func (m TaskModel) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick message every 100ms
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m TaskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if !m.Done {
			// Advance spinner
			m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
			return m, tickCmd()
		}
		return m, nil

	case TaskStartMsg:
		m.Title = msg.Title
		m.FileName = filepath.Base(msg.FilePath)
		m.FilePath = msg.FilePath
		m.StartTime = time.Now()
		return m, nil

	case TaskProgressMsg:
		m.Progress = msg.Progress
		m.Detail = msg.Detail
		return m, nil

	case TaskCompleteMsg:
		m.Summary = msg.Summary
		m.Error = msg.Error
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m TaskModel) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}

	var b strings.Builder

	// Header
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#A40000")).
		Render("Jivecut")

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render(m.Title)

	b.WriteString(title + " " + subtitle)
	b.WriteString("\n\n")

	if m.FileName == "" {
		b.WriteString("Waiting...")
		return b.String()
	}

	// File being analysed
	fileStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true)

	b.WriteString("File: ")
	b.WriteString(fileStyle.Render(m.FileName))
	b.WriteString("\n\n")

	// Progress bar with spinner
	elapsed := time.Since(m.StartTime)
	spinnerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000"))
	spinner := spinnerStyle.Render(spinnerFrames[m.spinnerIndex])

	if m.Progress > 0 && m.Progress < 1.0 {
		// Determinate progress bar with spinner
		b.WriteString(spinner)
		b.WriteString(" ")
		b.WriteString(renderTaskProgressBar(m.Progress, 40, elapsed))
	} else if !m.Done {
		// Indeterminate spinner
		b.WriteString(spinner)
		b.WriteString(" Working...")
		b.WriteString(fmt.Sprintf(" [%s]", formatElapsed(elapsed)))
	}

	b.WriteString("\n")

	if m.Detail != "" && !m.Done {
		b.WriteString("\n" + m.Detail)
	}

	if m.Done {
		if m.Error != nil {
			b.WriteString(fmt.Sprintf("Error: %v\n", m.Error))
		} else if m.Summary != "" {
			b.WriteString(m.Summary + "\n")
		}
	}

	return b.String()
}

// renderTaskProgressBar renders a progress bar with percentage and elapsed time
func renderTaskProgressBar(progress float64, width int, elapsed time.Duration) string {
	filled := int(progress * float64(width))
	empty := width - filled

	// Use Unicode box drawing characters for a cleaner look
	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000"))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("━", empty))

	percentage := int(progress * 100)

	return fmt.Sprintf("%s %3d%% [%s]", bar, percentage, formatElapsed(elapsed))
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
