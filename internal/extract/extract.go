// Package extract retrieves still frames from a video track: evenly spaced
// timeline thumbnails, a fast nearest-keyframe scrub and a frame-accurate grab.
//
// All three modes seek the container to an approximate timestamp and decode
// forward from the keyframe at or before it. Output buffers are tightly
// packed RGB24, width*height*3 bytes.
package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/linuxmatters/jivecut/internal/media"
)

// Filter selects the resampling kernel used when a decoded picture is scaled
// to the requested geometry. The names match FFmpeg's swscale flags.
type Filter int

const (
	FilterBilinear Filter = iota
	FilterFastBilinear
	FilterBicubic
)

func (f Filter) String() string {
	switch f {
	case FilterFastBilinear:
		return "fast_bilinear"
	case FilterBicubic:
		return "bicubic"
	default:
		return "bilinear"
	}
}

// Source is a seekable video decode session.
type Source interface {
	// Seek moves to the keyframe at or before ts (stream time base ticks)
	// and discards any buffered decoder state.
	Seek(ts int64) error
	// Next decodes forward to the next picture and returns its presentation
	// timestamp, or io.EOF when the packet stream is exhausted. Pictures
	// without a timestamp report 0.
	Next() (int64, error)
	// Render scales the current picture to width x height RGB24.
	Render(width, height int, f Filter) ([]byte, error)
	TimeBase() media.Rational
	DurationTicks() int64
}

func frameSize(width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", media.ErrInvalidBufferSize, width, height)
	}
	return width * height * 3, nil
}

// slot is one strip position before fallbacks are applied.
type slot struct {
	pix []byte
	ok  bool
}

// Strip returns count thumbnails spaced evenly over the stream. A position
// that cannot be seeked or decoded repeats the previous thumbnail, or is
// black when there is none yet; the batch itself never fails for that.
func Strip(src Source, count, width, height int) ([][]byte, error) {
	size, err := frameSize(width, height)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return [][]byte{}, nil
	}

	step := src.DurationTicks() / int64(count)
	slots := make([]slot, count)
	for i := range slots {
		ts := int64(i) * step
		pix, err := grabFirst(src, ts, width, height, FilterBilinear)
		if err != nil {
			slog.Debug("thumbnail fallback", "index", i, "ts", ts, "error", err)
			continue
		}
		slots[i] = slot{pix: pix, ok: true}
	}

	out := make([][]byte, count)
	var prev []byte
	for i, s := range slots {
		switch {
		case s.ok:
			prev = s.pix
			out[i] = s.pix
		case prev != nil:
			out[i] = append([]byte(nil), prev...)
		default:
			out[i] = make([]byte, size)
		}
	}
	return out, nil
}

func grabFirst(src Source, ts int64, width, height int, f Filter) ([]byte, error) {
	if err := src.Seek(ts); err != nil {
		return nil, err
	}
	if _, err := src.Next(); err != nil {
		return nil, err
	}
	return src.Render(width, height, f)
}

// Keyframe returns the first picture decodable after seeking to seconds.
// It lands on the nearest prior keyframe, not the exact time.
func Keyframe(src Source, seconds float64, width, height int) ([]byte, error) {
	if _, err := frameSize(width, height); err != nil {
		return nil, err
	}
	ts := src.TimeBase().Ticks(seconds)
	if err := src.Seek(ts); err != nil {
		return nil, fmt.Errorf("failed to seek to %.3fs: %w", seconds, err)
	}
	if _, err := src.Next(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no frame after %.3fs", media.ErrFrameNotFound, seconds)
		}
		return nil, err
	}
	return src.Render(width, height, FilterFastBilinear)
}

// Exact returns the first picture whose presentation timestamp is at or after
// seconds, decoding forward from the prior keyframe.
func Exact(src Source, seconds float64, width, height int) ([]byte, error) {
	if _, err := frameSize(width, height); err != nil {
		return nil, err
	}
	target := src.TimeBase().Ticks(seconds)
	if err := src.Seek(target); err != nil {
		return nil, fmt.Errorf("failed to seek to %.3fs: %w", seconds, err)
	}
	for {
		pts, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: stream ended before %.3fs", media.ErrFrameNotFound, seconds)
		}
		if err != nil {
			return nil, err
		}
		if pts >= target {
			return src.Render(width, height, FilterBicubic)
		}
	}
}
