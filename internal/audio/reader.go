// Package audio decodes audio tracks to interleaved float32 for analysis and
// exports them as 16-bit PCM WAV.
package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unsafe"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/decoder"
	"github.com/linuxmatters/jivecut/internal/media"
)

// Reader pulls decoded audio as interleaved float32 in [-1, 1], whatever
// the source sample format. It implements media.SampleSource.
type Reader struct {
	stream   *decoder.Stream
	filter   *decoder.Graph
	filtered *ffmpeg.AVFrame
	info     media.Info
	meter    *loudnessMeter

	buf      []float32
	srcEOF   bool
	finished bool
}

// Open opens the first audio track of path.
func Open(path string) (*Reader, error) {
	return open(path, floatSpec)
}

// OpenMetered is Open with EBU R128 metering, read back with Loudness once
// the track has been consumed.
func OpenMetered(path string) (*Reader, error) {
	r, err := open(path, meteredSpec)
	if err != nil {
		return nil, err
	}
	r.meter = &loudnessMeter{}
	return r, nil
}

func open(path, spec string) (*Reader, error) {
	st, err := decoder.Open(path, media.KindAudio)
	if err != nil {
		return nil, err
	}

	info := audioInfo(st)

	fg, err := newFilterGraph(st.CodecContext(), spec)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to set up sample conversion: %w", err)
	}

	return &Reader{
		stream:   st,
		filter:   fg,
		filtered: ffmpeg.AVFrameAlloc(),
		info:     info,
	}, nil
}

// audioInfo fills the audio fields, defaulting the rate and layout when the
// container leaves them out.
func audioInfo(st *decoder.Stream) media.Info {
	decCtx := st.CodecContext()
	info := st.Info()

	info.SampleRate = decCtx.SampleRate()
	if info.SampleRate <= 0 {
		info.SampleRate = media.DefaultSampleRate
		decCtx.SetSampleRate(info.SampleRate)
	}
	info.Channels = decCtx.ChLayout().NbChannels()
	if info.Channels <= 0 {
		info.Channels = media.DefaultChannels
		ffmpeg.AVChannelLayoutDefault(decCtx.ChLayout(), info.Channels)
	}

	info.Frames = media.TicksToFrames(info.DurationTicks, info.TimeBase, info.SampleRate)
	return info
}

// Info returns the stream description captured at open time.
func (r *Reader) Info() media.Info {
	return r.info
}

// Loudness returns the measurements gathered so far. ok is false for a
// reader not opened with OpenMetered, or before any measurement arrived.
func (r *Reader) Loudness() (l Loudness, ok bool) {
	if r.meter == nil || !r.meter.found {
		return Loudness{}, false
	}
	return r.meter.Loudness, true
}

// ReadSamples returns the next batch of interleaved samples, or io.EOF once
// the track is exhausted. The batch is only valid until the next call.
func (r *Reader) ReadSamples() (media.Samples, error) {
	for {
		if r.finished {
			return media.Samples{}, io.EOF
		}

		_, err := ffmpeg.AVBuffersinkGetFrame(r.filter.Sink, r.filtered)
		if err == nil {
			if r.meter != nil {
				r.meter.update(r.filtered.Metadata())
			}
			s := r.copyFiltered()
			ffmpeg.AVFrameUnref(r.filtered)
			if s.Frames() == 0 {
				continue
			}
			return s, nil
		}
		if errors.Is(err, ffmpeg.AVErrorEOF) {
			r.finished = true
			continue
		}
		if !errors.Is(err, ffmpeg.EAgain) {
			return media.Samples{}, fmt.Errorf("failed to get filtered frame: %w", err)
		}

		if r.srcEOF {
			r.finished = true
			continue
		}
		r.push()
	}
}

// push feeds one decoded frame into the filter graph, or the end-of-stream
// marker when the decoder is drained.
func (r *Reader) push() {
	frame, err := r.stream.Next()
	if errors.Is(err, io.EOF) {
		if _, err := ffmpeg.AVBuffersrcAddFrameFlags(r.filter.Src, nil, 0); err != nil {
			slog.Debug("failed to flush filter", "path", r.info.Path, "error", err)
		}
		r.srcEOF = true
		return
	}
	if _, err := ffmpeg.AVBuffersrcAddFrameFlags(r.filter.Src, frame, 0); err != nil {
		slog.Debug("frame rejected by filter, skipping", "path", r.info.Path, "error", err)
	}
}

func (r *Reader) copyFiltered() media.Samples {
	channels := r.filtered.ChLayout().NbChannels()
	n := r.filtered.NbSamples() * channels
	if n <= 0 {
		return media.Samples{Channels: channels}
	}

	data := unsafe.Slice((*float32)(r.filtered.Data().Get(0)), n)
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	r.buf = r.buf[:n]
	copy(r.buf, data)
	return media.Samples{Data: r.buf, Channels: channels}
}

// Close releases the decoder and filter graph. Safe to call more than once.
func (r *Reader) Close() {
	if r.filtered != nil {
		ffmpeg.AVFrameFree(&r.filtered)
	}
	if r.filter != nil {
		r.filter.Free()
		r.filter = nil
	}
	if r.stream != nil {
		r.stream.Close()
		r.stream = nil
	}
}

// Probe returns the audio description of path without decoding.
func Probe(path string) (media.Info, error) {
	st, err := decoder.Open(path, media.KindAudio)
	if err != nil {
		return media.Info{}, err
	}
	defer st.Close()
	return audioInfo(st), nil
}
