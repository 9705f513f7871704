// Package decoder opens a container, binds the first decodable track of a
// requested kind and yields decoded frames. It is the shared demux/decode
// session under the audio reader and the video frame decoder.
package decoder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/media"
)

// Stream is one demux/decode session over a single track. It is not safe for
// concurrent use; open one Stream per operation.
type Stream struct {
	path   string
	kind   media.Kind
	fmtCtx *ffmpeg.AVFormatContext
	decCtx *ffmpeg.AVCodecContext
	stream *ffmpeg.AVStream
	index  int
	codec  string

	packet *ffmpeg.AVPacket
	frame  *ffmpeg.AVFrame

	draining bool // packets exhausted, decoder flushed
	done     bool
}

func mediaType(kind media.Kind) ffmpeg.AVMediaType {
	if kind == media.KindVideo {
		return ffmpeg.AVMediaTypeVideo
	}
	return ffmpeg.AVMediaTypeAudio
}

// Open probes path and opens a decoder for the first track of kind whose
// codec is known. Failures wrap media.ErrNotFound, media.ErrNoSuitableTrack
// or media.ErrUnsupportedCodec.
func Open(path string, kind media.Kind) (*Stream, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", media.ErrNotFound, err)
	}

	var fmtCtx *ffmpeg.AVFormatContext

	pathC := ffmpeg.ToCStr(path)
	defer pathC.Free()

	if _, err := ffmpeg.AVFormatOpenInput(&fmtCtx, pathC, nil, nil); err != nil {
		return nil, fmt.Errorf("%w: failed to open input file %s: %w", media.ErrNotFound, path, err)
	}

	if _, err := ffmpeg.AVFormatFindStreamInfo(fmtCtx, nil); err != nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("%w: failed to find stream info in %s: %w", media.ErrNotFound, path, err)
	}

	index := -1
	var selected *ffmpeg.AVStream
	streams := fmtCtx.Streams()
	for i := 0; i < int(fmtCtx.NbStreams()); i++ {
		st := streams.Get(uintptr(i))
		par := st.Codecpar()
		if par.CodecType() == mediaType(kind) && par.CodecId() != ffmpeg.AVCodecIdNone {
			index = i
			selected = st
			break
		}
	}
	if index == -1 {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("%w: no %s stream in %s", media.ErrNoSuitableTrack, kind, path)
	}

	codecPar := selected.Codecpar()
	dec := ffmpeg.AVCodecFindDecoder(codecPar.CodecId())
	if dec == nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("%w: no decoder for codec ID %d in %s", media.ErrUnsupportedCodec, codecPar.CodecId(), path)
	}

	decCtx := ffmpeg.AVCodecAllocContext3(dec)
	if decCtx == nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("failed to allocate decoder context for %s", path)
	}

	if _, err := ffmpeg.AVCodecParametersToContext(decCtx, codecPar); err != nil {
		ffmpeg.AVCodecFreeContext(&decCtx)
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("%w: failed to copy codec parameters: %w", media.ErrUnsupportedCodec, err)
	}
	decCtx.SetPktTimebase(selected.TimeBase())

	if _, err := ffmpeg.AVCodecOpen2(decCtx, dec, nil); err != nil {
		ffmpeg.AVCodecFreeContext(&decCtx)
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("%w: failed to open decoder: %w", media.ErrUnsupportedCodec, err)
	}

	return &Stream{
		path:   path,
		kind:   kind,
		fmtCtx: fmtCtx,
		decCtx: decCtx,
		stream: selected,
		index:  index,
		codec:  dec.Name().String(),
		packet: ffmpeg.AVPacketAlloc(),
		frame:  ffmpeg.AVFrameAlloc(),
	}, nil
}

// Next returns the next decoded frame, or io.EOF once the packet stream is
// exhausted and the decoder drained. The frame is owned by the Stream and is
// only valid until the following call. Packets the decoder rejects are
// logged and skipped.
func (s *Stream) Next() (*ffmpeg.AVFrame, error) {
	for {
		if s.done {
			return nil, io.EOF
		}

		_, err := ffmpeg.AVCodecReceiveFrame(s.decCtx, s.frame)
		switch {
		case err == nil:
			s.frame.SetPts(s.frame.BestEffortTimestamp())
			return s.frame, nil
		case errors.Is(err, ffmpeg.AVErrorEOF):
			s.done = true
			continue
		case !errors.Is(err, ffmpeg.EAgain):
			slog.Debug("decode error, skipping", "path", s.path, "error", err)
		}

		if s.draining {
			s.done = true
			continue
		}
		s.feed()
	}
}

// feed sends the next packet of the bound track to the decoder, or the
// flush packet when the container has no more.
func (s *Stream) feed() {
	for {
		if _, err := ffmpeg.AVReadFrame(s.fmtCtx, s.packet); err != nil {
			if !errors.Is(err, ffmpeg.AVErrorEOF) {
				slog.Debug("packet read failed, ending stream", "path", s.path, "error", err)
			}
			if _, err := ffmpeg.AVCodecSendPacket(s.decCtx, nil); err != nil {
				slog.Debug("decoder flush failed", "path", s.path, "error", err)
			}
			s.draining = true
			return
		}

		if s.packet.StreamIndex() != s.index {
			ffmpeg.AVPacketUnref(s.packet)
			continue
		}

		_, err := ffmpeg.AVCodecSendPacket(s.decCtx, s.packet)
		ffmpeg.AVPacketUnref(s.packet)
		if err != nil && !errors.Is(err, ffmpeg.EAgain) {
			slog.Debug("packet rejected, skipping", "path", s.path, "error", err)
			continue
		}
		return
	}
}

// Seek repositions to the keyframe at or before ts, in the track's time
// base, and resets the decoder.
func (s *Stream) Seek(ts int64) error {
	if ts < 0 {
		ts = 0
	}
	if _, err := ffmpeg.AVSeekFrame(s.fmtCtx, s.index, ts, ffmpeg.AVSeekFlagBackward); err != nil {
		return fmt.Errorf("failed to seek to %d: %w", ts, err)
	}
	ffmpeg.AVCodecFlushBuffers(s.decCtx)
	s.draining = false
	s.done = false
	return nil
}

// TimeBase returns the track time base.
func (s *Stream) TimeBase() media.Rational {
	tb := s.stream.TimeBase()
	return media.Rational{Num: int64(tb.Num()), Den: int64(tb.Den())}
}

// DurationTicks returns the track length in its time base, falling back to
// the container duration when the track does not declare one.
func (s *Stream) DurationTicks() int64 {
	if d := s.stream.Duration(); d > 0 && d != ffmpeg.AVNoptsValue {
		return d
	}
	if d := s.fmtCtx.Duration(); d > 0 && d != ffmpeg.AVNoptsValue {
		return media.Rescale(d, media.Rational{Num: 1, Den: int64(ffmpeg.AVTimeBase)}, s.TimeBase())
	}
	return 0
}

// FrameRate returns the track's average frame rate, 0 when unknown.
func (s *Stream) FrameRate() float64 {
	r := s.stream.AvgFrameRate()
	if r == nil || r.Num() <= 0 || r.Den() <= 0 {
		return 0
	}
	return float64(r.Num()) / float64(r.Den())
}

// Info returns the fields common to every track kind.
func (s *Stream) Info() media.Info {
	return media.Info{
		Path:          s.path,
		Kind:          s.kind,
		StreamIndex:   s.index,
		Codec:         s.codec,
		TimeBase:      s.TimeBase(),
		DurationTicks: s.DurationTicks(),
	}
}

// CodecContext exposes the opened decoder for filter graph setup.
func (s *Stream) CodecContext() *ffmpeg.AVCodecContext {
	return s.decCtx
}

// Close releases all resources. Safe to call more than once.
func (s *Stream) Close() {
	if s.frame != nil {
		ffmpeg.AVFrameFree(&s.frame)
	}
	if s.packet != nil {
		ffmpeg.AVPacketFree(&s.packet)
	}
	if s.decCtx != nil {
		ffmpeg.AVCodecFreeContext(&s.decCtx)
	}
	if s.fmtCtx != nil {
		ffmpeg.AVFormatCloseInput(&s.fmtCtx)
	}
}
