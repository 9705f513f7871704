package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/decoder"
	"github.com/linuxmatters/jivecut/internal/media"
)

// wavWriter encodes s16 frames as pcm_s16le and muxes them into a WAV file.
type wavWriter struct {
	fmtCtx *ffmpeg.AVFormatContext
	encCtx *ffmpeg.AVCodecContext
	stream *ffmpeg.AVStream
	packet *ffmpeg.AVPacket
}

// newWAVWriter creates path and writes the container header. Rate, channel
// count and time base are taken from the configured filter sink so encoder
// and filter output always agree.
func newWAVWriter(path string, sink *ffmpeg.AVFilterContext) (*wavWriter, error) {
	sampleRate, err := ffmpeg.AVBuffersinkGetSampleRate(sink)
	if err != nil {
		return nil, fmt.Errorf("failed to get sample rate: %w", err)
	}
	channels, err := ffmpeg.AVBuffersinkGetChannels(sink)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}

	pathC := ffmpeg.ToCStr(path)
	defer pathC.Free()

	var fmtCtx *ffmpeg.AVFormatContext
	if _, err := ffmpeg.AVFormatAllocOutputContext2(&fmtCtx, nil, ffmpeg.GlobalCStr("wav"), pathC); err != nil {
		return nil, fmt.Errorf("%w: failed to allocate output context: %w", media.ErrEncode, err)
	}

	codec := ffmpeg.AVCodecFindEncoder(ffmpeg.AVCodecIdPcmS16Le)
	if codec == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("%w: pcm_s16le encoder not found", media.ErrUnsupportedCodec)
	}

	stream := ffmpeg.AVFormatNewStream(fmtCtx, nil)
	if stream == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("failed to create stream for output: %s", path)
	}

	encCtx := ffmpeg.AVCodecAllocContext3(codec)
	if encCtx == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("failed to allocate encoder context for output: %s", path)
	}

	encCtx.SetSampleFmt(ffmpeg.AVSampleFmtS16)
	encCtx.SetSampleRate(sampleRate)
	ffmpeg.AVChannelLayoutDefault(encCtx.ChLayout(), channels)
	encCtx.SetTimeBase(ffmpeg.AVBuffersinkGetTimeBase(sink))

	if fmtCtx.Oformat().Flags()&ffmpeg.AVFmtGlobalheader != 0 {
		encCtx.SetFlags(encCtx.Flags() | ffmpeg.AVCodecFlagGlobalHeader)
	}

	if _, err := ffmpeg.AVCodecOpen2(encCtx, codec, nil); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("%w: failed to open encoder: %w", media.ErrUnsupportedCodec, err)
	}

	if _, err := ffmpeg.AVCodecParametersFromContext(stream.Codecpar(), encCtx); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("failed to copy encoder parameters: %w", err)
	}
	stream.SetTimeBase(encCtx.TimeBase())

	if fmtCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 {
		var pb *ffmpeg.AVIOContext
		if _, err := ffmpeg.AVIOOpen(&pb, pathC, ffmpeg.AVIOFlagWrite); err != nil {
			ffmpeg.AVCodecFreeContext(&encCtx)
			ffmpeg.AVFormatFreeContext(fmtCtx)
			return nil, fmt.Errorf("%w: failed to open output file: %w", media.ErrEncode, err)
		}
		fmtCtx.SetPb(pb)
	}

	if _, err := ffmpeg.AVFormatWriteHeader(fmtCtx, nil); err != nil {
		if fmtCtx.Pb() != nil {
			ffmpeg.AVIOClose(fmtCtx.Pb())
		}
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("%w: failed to write header: %w", media.ErrEncode, err)
	}

	return &wavWriter{
		fmtCtx: fmtCtx,
		encCtx: encCtx,
		stream: stream,
		packet: ffmpeg.AVPacketAlloc(),
	}, nil
}

// writeFrame encodes one filtered s16 frame. Its pts is already in the
// sink time base, which is the encoder's.
func (w *wavWriter) writeFrame(frame *ffmpeg.AVFrame) error {
	if _, err := ffmpeg.AVCodecSendFrame(w.encCtx, frame); err != nil {
		return fmt.Errorf("%w: failed to send frame to encoder: %w", media.ErrEncode, err)
	}
	return w.receivePackets()
}

func (w *wavWriter) receivePackets() error {
	for {
		ffmpeg.AVPacketUnref(w.packet)

		if _, err := ffmpeg.AVCodecReceivePacket(w.encCtx, w.packet); err != nil {
			if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil
			}
			return fmt.Errorf("%w: failed to receive packet: %w", media.ErrEncode, err)
		}

		w.packet.SetStreamIndex(w.stream.Index())
		ffmpeg.AVPacketRescaleTs(w.packet, w.encCtx.TimeBase(), w.stream.TimeBase())

		if _, err := ffmpeg.AVInterleavedWriteFrame(w.fmtCtx, w.packet); err != nil {
			return fmt.Errorf("%w: failed to write packet: %w", media.ErrEncode, err)
		}
	}
}

// close flushes the encoder, writes the trailer and closes the file.
// Subsequent calls are no-ops.
func (w *wavWriter) close() error {
	if w.fmtCtx == nil {
		return nil
	}

	var errs []error
	if _, err := ffmpeg.AVCodecSendFrame(w.encCtx, nil); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush encoder: %w", err))
	} else if err := w.receivePackets(); err != nil {
		errs = append(errs, err)
	}

	if _, err := ffmpeg.AVWriteTrailer(w.fmtCtx); err != nil {
		errs = append(errs, fmt.Errorf("%w: failed to write trailer: %w", media.ErrEncode, err))
	}

	ffmpeg.AVPacketFree(&w.packet)
	ffmpeg.AVCodecFreeContext(&w.encCtx)

	if w.fmtCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 && w.fmtCtx.Pb() != nil {
		if _, err := ffmpeg.AVIOClose(w.fmtCtx.Pb()); err != nil {
			errs = append(errs, fmt.Errorf("failed to close output file: %w", err))
		}
		w.fmtCtx.SetPb(nil)
	}

	ffmpeg.AVFormatFreeContext(w.fmtCtx)
	w.fmtCtx = nil

	return errors.Join(errs...)
}

// ExportWAV decodes the first audio track of src and writes it to dst as
// 16-bit PCM at the source rate and channel count. Packets that fail to
// decode are skipped.
func ExportWAV(src, dst string) error {
	st, err := decoder.Open(src, media.KindAudio)
	if err != nil {
		return err
	}
	defer st.Close()

	// fills in a missing rate or layout before the graph reads them
	audioInfo(st)

	fg, err := newFilterGraph(st.CodecContext(), s16Spec)
	if err != nil {
		return fmt.Errorf("failed to set up sample conversion: %w", err)
	}
	defer fg.Free()

	w, err := newWAVWriter(dst, fg.Sink)
	if err != nil {
		return err
	}
	defer w.close()

	filtered := ffmpeg.AVFrameAlloc()
	defer ffmpeg.AVFrameFree(&filtered)

	drain := func() error {
		for {
			if _, err := ffmpeg.AVBuffersinkGetFrame(fg.Sink, filtered); err != nil {
				if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
					return nil
				}
				return fmt.Errorf("failed to get filtered frame: %w", err)
			}
			err := w.writeFrame(filtered)
			ffmpeg.AVFrameUnref(filtered)
			if err != nil {
				return err
			}
		}
	}

	for {
		frame, err := st.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := ffmpeg.AVBuffersrcAddFrameFlags(fg.Src, frame, 0); err != nil {
			slog.Debug("frame rejected by filter, skipping", "path", src, "error", err)
			continue
		}
		if err := drain(); err != nil {
			return err
		}
	}

	if _, err := ffmpeg.AVBuffersrcAddFrameFlags(fg.Src, nil, 0); err != nil {
		return fmt.Errorf("failed to flush filter: %w", err)
	}
	if err := drain(); err != nil {
		return err
	}

	return w.close()
}
