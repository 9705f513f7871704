package audio

import (
	"strconv"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
)

// meteredSpec runs ebur128 ahead of the float conversion. ebur128 passes
// samples through untouched and tags each frame with its running totals.
const meteredSpec = "ebur128=metadata=1:peak=true:dualmono=true," + floatSpec

// Cached metadata keys, shared across readers.
var (
	metaKeyIntegrated = ffmpeg.GlobalCStr("lavfi.r128.I")
	metaKeyTruePeak   = ffmpeg.GlobalCStr("lavfi.r128.true_peak")
	metaKeyLRA        = ffmpeg.GlobalCStr("lavfi.r128.LRA")
)

// Loudness holds EBU R128 measurements for a whole track.
type Loudness struct {
	Integrated float64 // LUFS
	TruePeak   float64 // dBTP
	Range      float64 // LU
}

// loudnessMeter keeps the latest cumulative values seen in frame metadata.
type loudnessMeter struct {
	Loudness
	found bool
}

func (m *loudnessMeter) update(metadata *ffmpeg.AVDictionary) {
	if metadata == nil {
		return
	}
	if v, ok := metaFloat(metadata, metaKeyIntegrated); ok {
		m.Integrated = v
		m.found = true
	}
	if v, ok := metaFloat(metadata, metaKeyTruePeak); ok {
		m.TruePeak = v
	}
	if v, ok := metaFloat(metadata, metaKeyLRA); ok {
		m.Range = v
	}
}

func metaFloat(metadata *ffmpeg.AVDictionary, key *ffmpeg.CStr) (float64, bool) {
	entry := ffmpeg.AVDictGet(metadata, key, nil, 0)
	if entry == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(entry.Value().String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
