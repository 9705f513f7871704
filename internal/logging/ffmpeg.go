package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
)

// ffmpegLog is the logger FFmpeg messages are forwarded to.
var ffmpegLog = struct {
	mu     sync.Mutex
	logger *slog.Logger
}{}

// ffmpegLogCallback forwards one FFmpeg log line to slog. FFmpeg calls this
// from whichever thread is decoding, so the logger is read under the lock.
func ffmpegLogCallback(_ *ffmpeg.LogCtx, level int, msg string) {
	msg = strings.TrimRight(msg, "\n")
	if msg == "" {
		return
	}

	ffmpegLog.mu.Lock()
	logger := ffmpegLog.logger
	ffmpegLog.mu.Unlock()
	if logger == nil {
		return
	}

	logger.Log(context.Background(), slogLevel(level), msg, "source", "ffmpeg")
}

// slogLevel maps an AV_LOG_* level to the nearest slog level.
func slogLevel(avLevel int) slog.Level {
	switch {
	case avLevel <= ffmpeg.AVLogError:
		return slog.LevelError
	case avLevel <= ffmpeg.AVLogWarning:
		return slog.LevelWarn
	case avLevel <= ffmpeg.AVLogInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// RouteFFmpegLogs sends FFmpeg's own messages at or above avLevel to logger
// instead of stderr, where they would corrupt the terminal UI.
func RouteFFmpegLogs(logger *slog.Logger, avLevel int) {
	ffmpegLog.mu.Lock()
	ffmpegLog.logger = logger
	ffmpegLog.mu.Unlock()

	ffmpeg.AVLogSetLevel(avLevel)
	ffmpeg.AVLogSetCallback(ffmpegLogCallback)
}
