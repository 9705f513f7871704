package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/cli"
	"github.com/linuxmatters/jivecut/internal/config"
	"github.com/linuxmatters/jivecut/internal/logging"
)

var (
	version = "0.0.1"
)

// versionFlag prints the styled version banner and exits before any
// command is required.
type versionFlag bool

func (versionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	cli.PrintVersion(vars["version"])
	app.Exit(0)
	return nil
}

// CLI defines the command-line interface
type CLI struct {
	Version versionFlag `short:"v" help:"Show version information"`
	Config  string      `short:"c" type:"path" help:"Path to TOML or YAML config file (optional)"`
	Debug   bool        `help:"Write debug logging to jivecut-debug.log"`

	Info    InfoCmd    `cmd:"" help:"Show audio and video track details"`
	Analyze AnalyzeCmd `cmd:"" help:"Build waveforms and find speech in one or more files"`
	WAV     WAVCmd     `cmd:"" name:"wav" help:"Export the audio track as 16-bit PCM WAV"`
	Strip   StripCmd   `cmd:"" help:"Write evenly spaced timeline thumbnails as PNG"`
	Frame   FrameCmd   `cmd:"" help:"Write a single video frame as PNG"`
	Render  RenderCmd  `cmd:"" help:"Re-encode a span of video with overlay and colour adjustment"`
}

// globals is bound into every command's Run method.
type globals struct {
	cfg *config.Config
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("jivecut"),
		kong.Description("Media analysis and frame compositing"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	closeLog := setupLogging(cliArgs.Debug)
	defer closeLog()

	cfg, err := config.Load(cliArgs.Config)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	if err := ctx.Run(&globals{cfg: cfg}); err != nil {
		slog.Error("command failed", "command", ctx.Command(), "error", err)
		cli.PrintError(err.Error())
		closeLog()
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger. With debug set, records go
// to jivecut-debug.log at debug level; otherwise they are dropped. FFmpeg's
// own messages are routed through the same logger either way.
func setupLogging(debug bool) func() {
	if !debug {
		logger := slog.New(slog.DiscardHandler)
		slog.SetDefault(logger)
		logging.RouteFFmpegLogs(logger, ffmpeg.AVLogError)
		return func() {}
	}

	debugLog, err := os.Create("jivecut-debug.log")
	if err != nil {
		cli.PrintError(fmt.Sprintf("failed to create debug log: %v", err))
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(debugLog, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
	logging.RouteFFmpegLogs(logger, ffmpeg.AVLogWarning)

	return func() {
		debugLog.Close()
	}
}
