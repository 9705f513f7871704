package clip

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/linuxmatters/jivecut/internal/compositor"
	"github.com/linuxmatters/jivecut/internal/extract"
	"github.com/linuxmatters/jivecut/internal/video"
)

// Overlay is artwork blended onto every rendered frame.
type Overlay struct {
	Pix     []byte // packed RGBA, Width*Height*4 bytes
	Width   int
	Height  int
	X, Y    int
	Opacity float64
}

// RenderOptions controls VideoClip.Render.
type RenderOptions struct {
	Start float64 // seconds
	End   float64 // seconds, 0 = to the end of the clip
	FPS   int     // 0 = locale default

	// Output geometry, 0 = source size. Odd sizes are rounded down to even.
	Width  int
	Height int

	Overlay    *Overlay
	Brightness float64
	Contrast   float64 // 1 = unchanged
}

// Frames streams the span [start, end) at fps as width x height RGB24.
// See extract.Sequence for the resampling rule.
func (c *VideoClip) Frames(start, end float64, fps, width, height int, fn func(index int64, rgb []byte) error) (int64, error) {
	var n int64
	err := c.withDecoder(func(d *video.Decoder) error {
		var err error
		n, err = extract.Sequence(d, start, end, fps, width, height, fn)
		return err
	})
	return n, err
}

// Render re-encodes a span of the clip to path, applying the colour
// adjustment and then the overlay to every frame. progress, if not nil,
// receives the number of frames written and the expected total, which is 0
// when the clip length is unknown. Cancelling ctx stops at the next frame;
// the frames written so far are still finalised into a playable file.
func (c *VideoClip) Render(ctx context.Context, path string, opts RenderOptions, progress func(done, total int64)) (int64, error) {
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = c.Width(), c.Height()
	}
	width &^= 1
	height &^= 1

	exp, err := NewExporter(path, width, height, opts.FPS)
	if err != nil {
		return 0, err
	}

	end := opts.End
	if end <= 0 || end > c.Duration() {
		end = c.Duration()
	}
	total := max(0, int64(math.Ceil((end-max(opts.Start, 0))*float64(exp.FPS())-1e-9)))

	adjust := opts.Brightness != 0 || (opts.Contrast != 1.0 && opts.Contrast != 0)

	_, err = c.Frames(opts.Start, opts.End, exp.FPS(), width, height, func(index int64, rgb []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := rgb
		if adjust {
			frame = compositor.ColorAdjust(frame, opts.Brightness, opts.Contrast)
		}
		if ov := opts.Overlay; ov != nil {
			var err error
			frame, err = compositor.Overlay(frame, width, ov.Pix, ov.Width, ov.Height, ov.X, ov.Y, ov.Opacity)
			if err != nil {
				return err
			}
		}
		if err := exp.WriteFrame(frame); err != nil {
			return fmt.Errorf("frame %d: %w", index, err)
		}
		if progress != nil {
			progress(index+1, total)
		}
		return nil
	})
	if err != nil {
		if ferr := exp.Finish(); ferr != nil {
			slog.Debug("failed to finalise partial render", "path", path, "error", ferr)
		}
		return exp.Frames(), err
	}

	if err := exp.Finish(); err != nil {
		return exp.Frames(), err
	}
	return exp.Frames(), nil
}
