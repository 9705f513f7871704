package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/linuxmatters/jivecut/internal/cli"
	"github.com/linuxmatters/jivecut/internal/logging"
	"github.com/linuxmatters/jivecut/internal/processor"
	"github.com/linuxmatters/jivecut/internal/ui"
)

// AnalyzeCmd builds waveforms and speech segments for a batch of files.
type AnalyzeCmd struct {
	Files     []string `arg:"" name:"files" help:"Audio or video files to analyze" type:"existingfile"`
	Logs      bool     `help:"Save a detailed <name>-jivecut.log report per file"`
	WAV       bool     `name:"wav" help:"Also export each file as <name>-jivecut.wav"`
	OutputDir string   `short:"o" type:"existingdir" help:"Directory for exported WAVs and reports (default: next to each input)"`
	Jobs      int      `short:"j" help:"Files to analyze concurrently (0 = number of CPUs)" default:"0"`
	Plain     bool     `help:"Print results without the interactive progress display"`
	Loudness  bool     `help:"Also measure EBU R128 loudness, true peak and LRA"`

	Width       *int     `help:"Waveform buckets (overrides config)"`
	Threshold   *float64 `help:"Speech threshold in dBFS (overrides config)"`
	MinDuration *float64 `help:"Shortest speech segment in seconds (overrides config)"`
	Volume      *float64 `help:"Waveform volume multiplier (overrides config)"`
	FadeIn      *float64 `help:"Waveform fade-in seconds (overrides config)"`
	FadeOut     *float64 `help:"Waveform fade-out seconds (overrides config)"`
}

func (c *AnalyzeCmd) options(g *globals) processor.Options {
	opts := processor.OptionsFromConfig(g.cfg)
	if c.Width != nil {
		opts.WaveformWidth = *c.Width
	}
	if c.Threshold != nil {
		opts.ThresholdDB = *c.Threshold
	}
	if c.MinDuration != nil {
		opts.MinDuration = *c.MinDuration
	}
	if c.Volume != nil {
		opts.Effects.Volume = *c.Volume
	}
	if c.FadeIn != nil {
		opts.Effects.FadeIn = *c.FadeIn
	}
	if c.FadeOut != nil {
		opts.Effects.FadeOut = *c.FadeOut
	}
	opts.Loudness = c.Loudness
	opts.ExportWAV = c.WAV
	opts.OutputDir = c.OutputDir
	return opts
}

func (c *AnalyzeCmd) jobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.NumCPU()
}

// fileOutcome is what a worker reports for one input.
type fileOutcome struct {
	result *processor.Result
	err    error
}

func (c *AnalyzeCmd) Run(g *globals) error {
	opts := c.options(g)
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	outcomes := make([]fileOutcome, len(c.Files))

	if c.Plain {
		c.runBatch(opts, outcomes, nil)
	} else {
		model := ui.NewModel(c.Files, c.WAV)
		p := tea.NewProgram(model, tea.WithAltScreen())

		go func() {
			c.runBatch(opts, outcomes, model.ProgressChan)
			model.ProgressChan <- ui.AllCompleteMsg{}
		}()

		final, err := p.Run()
		if err != nil {
			return fmt.Errorf("UI error: %w", err)
		}
		if m, ok := final.(ui.Model); ok && !m.Done {
			return errors.New("analysis interrupted")
		}
	}

	var failed int
	for i, o := range outcomes {
		if o.err != nil {
			failed++
			cli.PrintError(fmt.Sprintf("%s: %v", filepath.Base(c.Files[i]), o.err))
			continue
		}
		if o.result != nil {
			logging.DisplayResult(os.Stdout, o.result)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(c.Files))
	}
	return nil
}

// runBatch analyzes every file with at most jobs running at once, storing
// each outcome by index. When progress is not nil the UI messages for each
// file are sent on it.
func (c *AnalyzeCmd) runBatch(opts processor.Options, outcomes []fileOutcome, progress chan<- tea.Msg) {
	send := func(msg tea.Msg) {
		if progress != nil {
			progress <- msg
		}
	}

	var eg errgroup.Group
	eg.SetLimit(c.jobs())

	for i, inputPath := range c.Files {
		eg.Go(func() error {
			send(ui.FileStartMsg{FileIndex: i, FileName: inputPath})
			slog.Debug("analyzing", "index", i, "path", inputPath)

			result, err := c.analyzeOne(i, inputPath, opts, send)
			outcomes[i] = fileOutcome{result: result, err: err}
			if err != nil {
				slog.Debug("analysis failed", "path", inputPath, "error", err)
			}

			send(ui.FileCompleteMsg{FileIndex: i, Result: result, Error: err})
			// failures are reported per file, never abort the batch
			return nil
		})
	}
	_ = eg.Wait()
}

func (c *AnalyzeCmd) analyzeOne(index int, inputPath string, opts processor.Options, send func(tea.Msg)) (*processor.Result, error) {
	startTime := time.Now()

	var exportStart time.Time
	callback := func(pass int, passName string, progress float64, level float64) {
		if pass == 2 && progress == 0.0 {
			exportStart = time.Now()
		}
		send(ui.ProgressMsg{
			FileIndex: index,
			Pass:      pass,
			PassName:  passName,
			Progress:  progress,
			Level:     level,
		})
	}

	result, err := processor.Analyze(inputPath, opts, callback)
	if err != nil {
		return nil, err
	}
	endTime := time.Now()

	if c.Logs {
		analysisTime := endTime.Sub(startTime)
		var exportTime time.Duration
		if !exportStart.IsZero() {
			analysisTime = exportStart.Sub(startTime)
			exportTime = endTime.Sub(exportStart)
		}
		reportPath, err := logging.GenerateReport(logging.ReportData{
			InputPath:    inputPath,
			OutputDir:    opts.OutputDir,
			StartTime:    startTime,
			EndTime:      endTime,
			AnalysisTime: analysisTime,
			ExportTime:   exportTime,
			Options:      opts,
			Result:       result,
		})
		if err != nil {
			slog.Warn("failed to generate report", "path", inputPath, "error", err)
		} else {
			slog.Debug("report written", "path", reportPath)
		}
	}

	return result, nil
}
