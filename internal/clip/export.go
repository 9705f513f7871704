package clip

import (
	"github.com/linuxmatters/jivecut/internal/mains"
	"github.com/linuxmatters/jivecut/internal/video"
)

// Exporter writes rendered RGB24 frames to a video file.
type Exporter struct {
	enc *video.Encoder
	fps int
}

// NewExporter creates path for width x height pictures. A non-positive fps
// uses the locale default (25 or 30).
func NewExporter(path string, width, height, fps int) (*Exporter, error) {
	if fps <= 0 {
		fps = mains.DefaultFrameRate()
	}
	enc, err := video.NewEncoder(path, width, height, fps)
	if err != nil {
		return nil, err
	}
	return &Exporter{enc: enc, fps: fps}, nil
}

// FPS returns the output frame rate.
func (e *Exporter) FPS() int { return e.fps }

// Frames returns the number of frames written.
func (e *Exporter) Frames() int64 { return e.enc.FrameCount() }

// WriteFrame appends one packed RGB24 picture.
func (e *Exporter) WriteFrame(rgb []byte) error {
	return e.enc.WriteFrame(rgb)
}

// Finish completes the file. The exporter is consumed afterwards.
func (e *Exporter) Finish() error {
	return e.enc.Finish()
}
