// Package analysis turns a decoded sample stream into editor artifacts:
// normalised RMS waveforms, peak envelopes and speech intervals.
//
// Every analyser is built on one streaming primitive (VisitFrames) so the
// decode loop exists once. Memory use is constant in the stream length.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/linuxmatters/jivecut/internal/media"
)

// MixMode selects how a multi-channel sample frame folds to one amplitude.
type MixMode int

const (
	// MixAbs averages absolute channel values (amplitude magnitude).
	MixAbs MixMode = iota
	// MixSigned averages signed channel values, keeping phase.
	MixSigned
)

func (m MixMode) String() string {
	if m == MixSigned {
		return "signed"
	}
	return "abs"
}

// Mix folds one interleaved sample frame to mono.
func (m MixMode) Mix(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sum float32
	if m == MixSigned {
		for _, v := range frame {
			sum += v
		}
	} else {
		for _, v := range frame {
			sum += float32(math.Abs(float64(v)))
		}
	}
	return sum / float32(len(frame))
}

// VisitFrames pulls src until io.EOF and calls fn once per sample frame with
// its absolute index and interleaved channel values. The frame slice is only
// valid during the call. fn returns false to end the pass early.
// The number of frames visited is returned.
func VisitFrames(src media.SampleSource, fn func(index int64, frame []float32) bool) (int64, error) {
	var index int64
	for {
		batch, err := src.ReadSamples()
		if errors.Is(err, io.EOF) {
			return index, nil
		}
		if err != nil {
			return index, fmt.Errorf("failed to read samples: %w", err)
		}

		stride := batch.Channels
		if stride <= 0 {
			continue
		}
		for i := 0; i+stride <= len(batch.Data); i += stride {
			if !fn(index, batch.Data[i:i+stride]) {
				return index + 1, nil
			}
			index++
		}
	}
}

// Visit is VisitFrames with each frame mixed to mono by mode.
func Visit(src media.SampleSource, mode MixMode, fn func(index int64, v float32) bool) (int64, error) {
	return VisitFrames(src, func(index int64, frame []float32) bool {
		return fn(index, mode.Mix(frame))
	})
}
