package extract

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/linuxmatters/jivecut/internal/media"
)

// Sequence decodes the span [start, end) seconds and hands fn one picture per
// output tick at fps. Output frame i is the first picture presented at or
// after start+i/fps, so a slower source repeats pictures and a faster one
// drops them. A non-positive or over-long end stops at the stream duration,
// or at the last picture when the duration is unknown. If the stream runs
// out before a known end the last picture is repeated to the end.
//
// The rgb slice is shared between repeats; fn must not modify it.
// Sequence returns the number of frames delivered.
func Sequence(src Source, start, end float64, fps, width, height int, fn func(index int64, rgb []byte) error) (int64, error) {
	if _, err := frameSize(width, height); err != nil {
		return 0, err
	}
	if fps <= 0 {
		return 0, fmt.Errorf("frame rate must be positive, got %d", fps)
	}

	tb := src.TimeBase()
	d := tb.Seconds(src.DurationTicks())
	toEOF := end <= 0 && d <= 0
	if !toEOF && (end <= 0 || (d > 0 && end > d)) {
		end = d
	}
	start = max(start, 0)
	if !toEOF && end <= start {
		return 0, nil
	}

	total := int64(math.MaxInt64)
	if !toEOF {
		total = int64(math.Ceil((end-start)*float64(fps) - 1e-9))
	}
	target := func(i int64) int64 {
		return tb.Ticks(start + float64(i)/float64(fps))
	}

	if err := src.Seek(target(0)); err != nil {
		return 0, fmt.Errorf("failed to seek to %.3fs: %w", start, err)
	}

	var (
		last []byte
		i    int64
	)
	for i < total {
		pts, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return i, err
		}
		if pts < target(i) {
			continue
		}

		pix, err := src.Render(width, height, FilterBilinear)
		if err != nil {
			return i, err
		}
		last = pix
		for i < total && pts >= target(i) {
			if err := fn(i, pix); err != nil {
				return i, err
			}
			i++
		}
	}

	if last == nil {
		if toEOF {
			return 0, fmt.Errorf("%w: no frame after %.3fs", media.ErrFrameNotFound, start)
		}
		return 0, fmt.Errorf("%w: no frame in %.3fs-%.3fs", media.ErrFrameNotFound, start, end)
	}
	if toEOF {
		return i, nil
	}
	for ; i < total; i++ {
		if err := fn(i, last); err != nil {
			return i, err
		}
	}
	return total, nil
}
