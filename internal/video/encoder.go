package video

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/media"
)

// Encoder writes RGB24 pictures to a single-stream video file. The codec is
// H.264 when the build has an encoder for it and MPEG-4 Part 2 otherwise.
// Pixels are converted to YUV 4:2:0 and stamped 0, 1, 2... in a 1/fps
// time base.
type Encoder struct {
	fmtCtx *ffmpeg.AVFormatContext
	encCtx *ffmpeg.AVCodecContext
	stream *ffmpeg.AVStream
	packet *ffmpeg.AVPacket

	graph *filterGraph
	in    *ffmpeg.AVFrame
	out   *ffmpeg.AVFrame

	width      int
	height     int
	frameCount int64
}

// NewEncoder creates path, guessing the container from its extension, and
// writes the header.
func NewEncoder(path string, width, height, fps int) (*Encoder, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d must be positive and even", media.ErrInvalidBufferSize, width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %d", fps)
	}

	graph, err := newFilterGraph(bufferArgs{
		width:     width,
		height:    height,
		pixFmt:    int(ffmpeg.AVPixFmtRgb24),
		timeBase:  media.Rational{Num: 1, Den: int64(fps)},
		frameRate: fps,
	}, encodeSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to set up pixel conversion: %w", err)
	}

	e := &Encoder{graph: graph, width: width, height: height}
	if err := e.open(path, fps); err != nil {
		e.release()
		return nil, err
	}

	e.in = ffmpeg.AVFrameAlloc()
	e.out = ffmpeg.AVFrameAlloc()
	e.packet = ffmpeg.AVPacketAlloc()

	return e, nil
}

func (e *Encoder) open(path string, fps int) error {
	pathC := ffmpeg.ToCStr(path)
	defer pathC.Free()

	if _, err := ffmpeg.AVFormatAllocOutputContext2(&e.fmtCtx, nil, nil, pathC); err != nil {
		return fmt.Errorf("%w: failed to allocate output context: %w", media.ErrEncode, err)
	}

	codec := ffmpeg.AVCodecFindEncoder(ffmpeg.AVCodecIdH264)
	if codec == nil {
		codec = ffmpeg.AVCodecFindEncoder(ffmpeg.AVCodecIdMpeg4)
	}
	if codec == nil {
		return fmt.Errorf("%w: no H.264 or MPEG-4 encoder available", media.ErrUnsupportedCodec)
	}

	e.stream = ffmpeg.AVFormatNewStream(e.fmtCtx, nil)
	if e.stream == nil {
		return fmt.Errorf("failed to create stream for output: %s", path)
	}

	e.encCtx = ffmpeg.AVCodecAllocContext3(codec)
	if e.encCtx == nil {
		return fmt.Errorf("failed to allocate encoder context for output: %s", path)
	}

	e.encCtx.SetWidth(e.width)
	e.encCtx.SetHeight(e.height)
	e.encCtx.SetPixFmt(ffmpeg.AVPixFmtYuv420P)
	e.encCtx.SetTimeBase(ffmpeg.AVBuffersinkGetTimeBase(e.graph.Sink))
	ffmpeg.AVOptSetInt(e.encCtx.RawPtr(), ffmpeg.GlobalCStr("g"), int64(fps), 0)

	if e.fmtCtx.Oformat().Flags()&ffmpeg.AVFmtGlobalheader != 0 {
		e.encCtx.SetFlags(e.encCtx.Flags() | ffmpeg.AVCodecFlagGlobalHeader)
	}

	if _, err := ffmpeg.AVCodecOpen2(e.encCtx, codec, nil); err != nil {
		return fmt.Errorf("%w: failed to open encoder: %w", media.ErrUnsupportedCodec, err)
	}
	slog.Debug("video encoder opened", "path", path, "codec", codec.Name().String(),
		"width", e.width, "height", e.height, "fps", fps)

	if _, err := ffmpeg.AVCodecParametersFromContext(e.stream.Codecpar(), e.encCtx); err != nil {
		return fmt.Errorf("failed to copy encoder parameters: %w", err)
	}
	e.stream.SetTimeBase(e.encCtx.TimeBase())

	if e.fmtCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 {
		var pb *ffmpeg.AVIOContext
		if _, err := ffmpeg.AVIOOpen(&pb, pathC, ffmpeg.AVIOFlagWrite); err != nil {
			return fmt.Errorf("%w: failed to open output file: %w", media.ErrEncode, err)
		}
		e.fmtCtx.SetPb(pb)
	}

	if _, err := ffmpeg.AVFormatWriteHeader(e.fmtCtx, nil); err != nil {
		return fmt.Errorf("%w: failed to write header: %w", media.ErrEncode, err)
	}
	return nil
}

// FrameCount returns the number of pictures submitted so far.
func (e *Encoder) FrameCount() int64 {
	return e.frameCount
}

// WriteFrame encodes one packed RGB24 picture of the configured size.
// It must not be called after Finish.
func (e *Encoder) WriteFrame(rgb []byte) error {
	if e.fmtCtx == nil {
		return fmt.Errorf("%w: encoder already finished", media.ErrEncode)
	}
	if want := e.width * e.height * 3; len(rgb) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", media.ErrInvalidBufferSize, len(rgb), want)
	}

	// the filter graph takes the previous buffer, so each picture gets a fresh one
	e.in.SetWidth(e.width)
	e.in.SetHeight(e.height)
	e.in.SetFormat(int(ffmpeg.AVPixFmtRgb24))
	if _, err := ffmpeg.AVFrameGetBuffer(e.in, 0); err != nil {
		return fmt.Errorf("failed to allocate picture: %w", err)
	}
	stride := int(e.in.Linesize().Get(0))
	plane := unsafe.Slice((*byte)(e.in.Data().Get(0)), stride*e.height)
	rowBytes := e.width * 3
	for y := 0; y < e.height; y++ {
		copy(plane[y*stride:y*stride+rowBytes], rgb[y*rowBytes:(y+1)*rowBytes])
	}
	e.in.SetPts(e.frameCount)

	if err := e.graph.convert(e.in, e.out); err != nil {
		return err
	}
	defer ffmpeg.AVFrameUnref(e.out)

	e.out.SetPts(e.frameCount)
	e.frameCount++

	if _, err := ffmpeg.AVCodecSendFrame(e.encCtx, e.out); err != nil {
		return fmt.Errorf("%w: failed to send frame to encoder: %w", media.ErrEncode, err)
	}
	return e.receivePackets()
}

func (e *Encoder) receivePackets() error {
	for {
		ffmpeg.AVPacketUnref(e.packet)

		if _, err := ffmpeg.AVCodecReceivePacket(e.encCtx, e.packet); err != nil {
			if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil
			}
			return fmt.Errorf("%w: failed to receive packet: %w", media.ErrEncode, err)
		}

		e.packet.SetStreamIndex(e.stream.Index())
		ffmpeg.AVPacketRescaleTs(e.packet, e.encCtx.TimeBase(), e.stream.TimeBase())

		if _, err := ffmpeg.AVInterleavedWriteFrame(e.fmtCtx, e.packet); err != nil {
			return fmt.Errorf("%w: failed to write packet: %w", media.ErrEncode, err)
		}
	}
}

// Finish flushes the encoder, writes the trailer and closes the file.
// Subsequent calls are no-ops.
func (e *Encoder) Finish() error {
	if e.fmtCtx == nil {
		return nil
	}

	var errs []error
	if _, err := ffmpeg.AVCodecSendFrame(e.encCtx, nil); err != nil {
		errs = append(errs, fmt.Errorf("%w: failed to flush encoder: %w", media.ErrEncode, err))
	} else if err := e.receivePackets(); err != nil {
		errs = append(errs, err)
	}

	if _, err := ffmpeg.AVWriteTrailer(e.fmtCtx); err != nil {
		errs = append(errs, fmt.Errorf("%w: failed to write trailer: %w", media.ErrEncode, err))
	}

	e.release()
	return errors.Join(errs...)
}

// release frees everything the encoder owns; it tolerates a partially
// constructed encoder.
func (e *Encoder) release() {
	if e.in != nil {
		ffmpeg.AVFrameFree(&e.in)
	}
	if e.out != nil {
		ffmpeg.AVFrameFree(&e.out)
	}
	if e.packet != nil {
		ffmpeg.AVPacketFree(&e.packet)
	}
	if e.graph != nil {
		e.graph.Free()
		e.graph = nil
	}
	if e.encCtx != nil {
		ffmpeg.AVCodecFreeContext(&e.encCtx)
	}
	if e.fmtCtx != nil {
		if e.fmtCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 && e.fmtCtx.Pb() != nil {
			if _, err := ffmpeg.AVIOClose(e.fmtCtx.Pb()); err != nil {
				slog.Debug("failed to close output file", "error", err)
			}
			e.fmtCtx.SetPb(nil)
		}
		ffmpeg.AVFormatFreeContext(e.fmtCtx)
		e.fmtCtx = nil
	}
}
