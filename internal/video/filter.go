package video

import (
	"errors"
	"fmt"
	"unsafe"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/decoder"
	"github.com/linuxmatters/jivecut/internal/media"
)

// bufferArgs describes the pictures fed into a graph.
type bufferArgs struct {
	width    int
	height   int
	pixFmt   int
	timeBase media.Rational
	// frameRate is optional; 0 leaves it unset
	frameRate int
}

func (a bufferArgs) String() string {
	tb := a.timeBase
	if !tb.Valid() {
		tb = media.Rational{Num: 1, Den: 25}
	}
	s := fmt.Sprintf("video_size=%dx%d:pix_fmt=%d:time_base=%d/%d:pixel_aspect=1/1",
		a.width, a.height, a.pixFmt, tb.Num, tb.Den)
	if a.frameRate > 0 {
		s += fmt.Sprintf(":frame_rate=%d/1", a.frameRate)
	}
	return s
}

// filterGraph is a buffer -> spec -> buffersink chain.
type filterGraph struct {
	*decoder.Graph
}

// scaleSpec converts to packed RGB24 at the requested geometry.
func scaleSpec(width, height int, flags string) string {
	return fmt.Sprintf("scale=%d:%d:flags=%s,format=rgb24", width, height, flags)
}

// encodeSpec converts RGB24 to the encoder's planar 4:2:0 layout.
const encodeSpec = "scale=flags=bilinear,format=yuv420p"

func newFilterGraph(in bufferArgs, spec string) (*filterGraph, error) {
	g, err := decoder.NewGraph(media.KindVideo, in.String(), spec)
	if err != nil {
		return nil, err
	}
	return &filterGraph{Graph: g}, nil
}

// convert pushes one picture through the graph and receives the result in
// out. The graph takes ownership of in's buffers and leaves it blank.
func (g *filterGraph) convert(in, out *ffmpeg.AVFrame) error {
	if _, err := ffmpeg.AVBuffersrcAddFrameFlags(g.Src, in, 0); err != nil {
		return fmt.Errorf("failed to add frame to filter: %w", err)
	}
	if _, err := ffmpeg.AVBuffersinkGetFrame(g.Sink, out); err != nil {
		if errors.Is(err, ffmpeg.EAgain) {
			return fmt.Errorf("filter produced no picture: %w", err)
		}
		return fmt.Errorf("failed to get filtered frame: %w", err)
	}
	return nil
}

// packRGB copies plane 0 of an RGB24 frame into a tightly packed buffer.
func packRGB(frame *ffmpeg.AVFrame, width, height int) []byte {
	stride := int(frame.Linesize().Get(0))
	ptr := frame.Data().Get(0)
	if ptr == nil || stride <= 0 {
		return make([]byte, width*height*3)
	}
	plane := unsafe.Slice((*byte)(ptr), stride*height)
	return media.PackRows(plane, stride, width*3, height)
}
