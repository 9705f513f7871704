package audio

import (
	"fmt"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/decoder"
	"github.com/linuxmatters/jivecut/internal/media"
)

// Filter graph specs used to normalise decoded audio. Neither touches the
// sample rate or channel layout.
const (
	floatSpec = "aformat=sample_fmts=flt"
	s16Spec   = "aformat=sample_fmts=s16"
)

// newFilterGraph builds an abuffer -> spec -> abuffersink graph fed from
// decCtx. The caller frees it with Free.
func newFilterGraph(decCtx *ffmpeg.AVCodecContext, spec string) (*decoder.Graph, error) {
	args, err := bufferArgs(decCtx)
	if err != nil {
		return nil, err
	}
	return decoder.NewGraph(media.KindAudio, args, spec)
}

// bufferArgs describes decCtx's output to abuffer.
func bufferArgs(decCtx *ffmpeg.AVCodecContext) (string, error) {
	layoutPtr := ffmpeg.AllocCStr(64)
	defer layoutPtr.Free()

	if _, err := ffmpeg.AVChannelLayoutDescribe(decCtx.ChLayout(), layoutPtr, 64); err != nil {
		return "", fmt.Errorf("failed to get channel layout: %w", err)
	}

	tb := decCtx.PktTimebase()
	tbNum, tbDen := tb.Num(), tb.Den()
	if tbNum <= 0 || tbDen <= 0 {
		tbNum, tbDen = 1, decCtx.SampleRate()
	}

	return fmt.Sprintf(
		"time_base=%d/%d:sample_rate=%d:sample_fmt=%s:channel_layout=%s",
		tbNum, tbDen,
		decCtx.SampleRate(),
		ffmpeg.AVGetSampleFmtName(decCtx.SampleFmt()).String(),
		layoutPtr.String(),
	), nil
}
