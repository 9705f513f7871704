// Package video decodes video tracks to packed RGB24 pictures and encodes
// RGB24 pictures back into a container.
package video

import (
	"fmt"
	"math"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/decoder"
	"github.com/linuxmatters/jivecut/internal/extract"
	"github.com/linuxmatters/jivecut/internal/mains"
	"github.com/linuxmatters/jivecut/internal/media"
)

// scaleKey identifies a conversion graph. Pictures may change geometry
// mid-stream, so the source side is part of the key.
type scaleKey struct {
	srcW, srcH, srcFmt int
	dstW, dstH         int
	filter             extract.Filter
}

// Decoder is a seekable video decode session. It implements extract.Source.
type Decoder struct {
	stream  *decoder.Stream
	info    media.Info
	current *ffmpeg.AVFrame
	out     *ffmpeg.AVFrame
	graphs  map[scaleKey]*filterGraph
}

var _ extract.Source = (*Decoder)(nil)

// Open opens the first video track of path.
func Open(path string) (*Decoder, error) {
	st, err := decoder.Open(path, media.KindVideo)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		stream: st,
		info:   videoInfo(st),
		out:    ffmpeg.AVFrameAlloc(),
		graphs: make(map[scaleKey]*filterGraph),
	}, nil
}

func videoInfo(st *decoder.Stream) media.Info {
	decCtx := st.CodecContext()
	info := st.Info()

	info.Width = decCtx.Width()
	info.Height = decCtx.Height()
	info.PixFmt = ffmpeg.AVGetPixFmtName(decCtx.PixFmt()).String()

	info.FrameRate = st.FrameRate()
	if info.FrameRate <= 0 {
		info.FrameRate = float64(mains.DefaultFrameRate())
	}
	info.Frames = int64(math.Round(info.Duration() * info.FrameRate))
	return info
}

// Info returns the stream description captured at open time.
func (d *Decoder) Info() media.Info {
	return d.info
}

func (d *Decoder) TimeBase() media.Rational {
	return d.info.TimeBase
}

func (d *Decoder) DurationTicks() int64 {
	return d.info.DurationTicks
}

// Seek moves to the keyframe at or before ts.
func (d *Decoder) Seek(ts int64) error {
	d.current = nil
	return d.stream.Seek(ts)
}

// Next decodes the next picture and returns its presentation timestamp.
func (d *Decoder) Next() (int64, error) {
	frame, err := d.stream.Next()
	if err != nil {
		d.current = nil
		return 0, err
	}
	d.current = frame

	pts := frame.Pts()
	if pts == ffmpeg.AVNoptsValue {
		pts = 0
	}
	return pts, nil
}

// Render scales the current picture to width x height RGB24, stripping any
// row padding. A picture can be rendered once; call Next for another.
func (d *Decoder) Render(width, height int, f extract.Filter) ([]byte, error) {
	if d.current == nil {
		return nil, fmt.Errorf("no decoded picture to render")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", media.ErrInvalidBufferSize, width, height)
	}

	key := scaleKey{
		srcW:   d.current.Width(),
		srcH:   d.current.Height(),
		srcFmt: d.current.Format(),
		dstW:   width,
		dstH:   height,
		filter: f,
	}
	g, ok := d.graphs[key]
	if !ok {
		var err error
		g, err = newFilterGraph(bufferArgs{
			width:    key.srcW,
			height:   key.srcH,
			pixFmt:   key.srcFmt,
			timeBase: d.info.TimeBase,
		}, scaleSpec(width, height, f.String()))
		if err != nil {
			return nil, err
		}
		d.graphs[key] = g
	}

	frame := d.current
	d.current = nil
	if err := g.convert(frame, d.out); err != nil {
		return nil, err
	}
	defer ffmpeg.AVFrameUnref(d.out)

	return packRGB(d.out, width, height), nil
}

// Close releases the decoder and all conversion graphs. Safe to call more
// than once.
func (d *Decoder) Close() {
	for k, g := range d.graphs {
		g.Free()
		delete(d.graphs, k)
	}
	if d.out != nil {
		ffmpeg.AVFrameFree(&d.out)
	}
	if d.stream != nil {
		d.stream.Close()
		d.stream = nil
	}
	d.current = nil
}

// Probe returns the video description of path without decoding.
func Probe(path string) (media.Info, error) {
	st, err := decoder.Open(path, media.KindVideo)
	if err != nil {
		return media.Info{}, err
	}
	defer st.Close()
	return videoInfo(st), nil
}
