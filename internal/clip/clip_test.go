package clip

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linuxmatters/jivecut/internal/analysis"
	"github.com/linuxmatters/jivecut/internal/media"
	"github.com/linuxmatters/jivecut/internal/testaudio"
)

func TestAudioClipMetadata(t *testing.T) {
	path := testaudio.Generate(t, testaudio.Options{
		DurationSecs: 2.0,
		SampleRate:   48000,
		Channels:     2,
		ToneFreq:     440,
		ToneLevel:    -12,
	})

	c, err := OpenAudio(path)
	if err != nil {
		t.Fatalf("OpenAudio failed: %v", err)
	}
	if c.SampleRate() != 48000 || c.Channels() != 2 {
		t.Errorf("layout = %d Hz x %d, want 48000 Hz x 2", c.SampleRate(), c.Channels())
	}
	if c.Frames() != 96000 {
		t.Errorf("Frames() = %d, want 96000", c.Frames())
	}
	if math.Abs(c.Duration()-2.0) > 1e-9 {
		t.Errorf("Duration() = %v, want 2.0", c.Duration())
	}
	if c.Effects() != analysis.DefaultEffects() {
		t.Errorf("Effects() = %+v, want defaults", c.Effects())
	}
}

func TestAudioClipWaveform(t *testing.T) {
	path := testaudio.Generate(t, testaudio.Options{
		DurationSecs: 2.0,
		ToneFreq:     440,
		ToneLevel:    -6,
	})
	c, err := OpenAudio(path)
	if err != nil {
		t.Fatalf("OpenAudio failed: %v", err)
	}

	t.Run("shape", func(t *testing.T) {
		for _, width := range []int{1, 100, 800} {
			wf, err := c.Waveform(width)
			if err != nil {
				t.Fatalf("Waveform(%d) failed: %v", width, err)
			}
			if len(wf) != width {
				t.Fatalf("Waveform(%d) returned %d values", width, len(wf))
			}
			var peak float32
			for _, v := range wf {
				if v < 0 || v > 1 {
					t.Fatalf("value %v outside [0,1]", v)
				}
				peak = max(peak, v)
			}
			if peak != 1.0 {
				t.Errorf("Waveform(%d) peak = %v, want 1.0", width, peak)
			}
		}
	})

	t.Run("zero_width", func(t *testing.T) {
		wf, err := c.Waveform(0)
		if err != nil || len(wf) != 0 {
			t.Errorf("Waveform(0) = %v, %v; want empty", wf, err)
		}
	})

	t.Run("fade_in_visible", func(t *testing.T) {
		c.SetFadeIn(1.0)
		defer c.SetEffects(analysis.DefaultEffects())

		wf, err := c.Waveform(20)
		if err != nil {
			t.Fatalf("Waveform failed: %v", err)
		}
		if wf[0] >= wf[19] {
			t.Errorf("first bucket %v not below last %v with fade in", wf[0], wf[19])
		}
	})

	t.Run("raw_ignores_effects", func(t *testing.T) {
		c.SetVolume(0.1)
		c.SetFadeOut(1.5)
		defer c.SetEffects(analysis.DefaultEffects())

		wf, err := c.RawWaveform(10)
		if err != nil {
			t.Fatalf("RawWaveform failed: %v", err)
		}
		if wf[9] < 0.9 {
			t.Errorf("last bucket %v shows fade out in raw waveform", wf[9])
		}
	})
}

func TestAudioClipSpeechIntervals(t *testing.T) {
	t.Run("silent_file", func(t *testing.T) {
		path := testaudio.Generate(t, testaudio.Options{DurationSecs: 10, SampleRate: 44100})
		c, err := OpenAudio(path)
		if err != nil {
			t.Fatalf("OpenAudio failed: %v", err)
		}
		got, err := c.SpeechIntervals(-40, 0.2)
		if err != nil {
			t.Fatalf("SpeechIntervals failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %v, want no intervals", got)
		}
	})

	t.Run("gap_splits_speech", func(t *testing.T) {
		opts := testaudio.Options{DurationSecs: 3, SampleRate: 44100, DC: 0.25}
		opts.Silence.Start = 1.0
		opts.Silence.Duration = 1.0
		c, err := OpenAudio(testaudio.Generate(t, opts))
		if err != nil {
			t.Fatalf("OpenAudio failed: %v", err)
		}
		got, err := c.SpeechIntervals(-40, 0.2)
		if err != nil {
			t.Fatalf("SpeechIntervals failed: %v", err)
		}
		want := []analysis.Interval{{Start: 0, End: 1}, {Start: 2, End: 3}}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if math.Abs(got[i].Start-want[i].Start) > 1e-3 || math.Abs(got[i].End-want[i].End) > 1e-3 {
				t.Errorf("interval %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})
}

func TestAudioClipExportWAV(t *testing.T) {
	src := testaudio.Generate(t, testaudio.Options{
		DurationSecs: 1.0,
		SampleRate:   48000,
		Channels:     2,
		ToneFreq:     220,
		ToneLevel:    -12,
	})
	c, err := OpenAudio(src)
	if err != nil {
		t.Fatalf("OpenAudio failed: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "out.wav")
	status, err := c.ExportWAV(dst)
	if err != nil {
		t.Fatalf("ExportWAV failed: %v", err)
	}
	if status != "Exported to "+dst {
		t.Errorf("status = %q", status)
	}

	hdr, err := testaudio.ReadHeader(dst)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if hdr.SampleRate != c.SampleRate() || hdr.Channels != c.Channels() || hdr.BitsPerSample != 16 {
		t.Errorf("header = %+v, want %d Hz, %d channels, 16 bit", hdr, c.SampleRate(), c.Channels())
	}
}

func TestAudioClipPeaks(t *testing.T) {
	path := testaudio.Generate(t, testaudio.Options{DurationSecs: 1, SampleRate: 8000, DC: 0.5})
	c, err := OpenAudio(path)
	if err != nil {
		t.Fatalf("OpenAudio failed: %v", err)
	}
	peaks, err := c.Peaks(800)
	if err != nil {
		t.Fatalf("Peaks failed: %v", err)
	}
	if len(peaks) != 10 {
		t.Fatalf("got %d peaks, want 10", len(peaks))
	}
	for i, p := range peaks {
		if math.Abs(float64(p)-0.5) > 1e-3 {
			t.Errorf("peak %d = %v, want 0.5", i, p)
		}
	}
}

func TestOpenAudioMissing(t *testing.T) {
	_, err := OpenAudio(filepath.Join(t.TempDir(), "nope.wav"))
	if !errors.Is(err, media.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestExporterAndVideoClip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.mp4")
	e, err := NewExporter(path, 32, 24, 0)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	if e.FPS() != 25 && e.FPS() != 30 {
		t.Errorf("default FPS = %d, want 25 or 30", e.FPS())
	}
	frame := bytes.Repeat([]byte{200, 40, 40}, 32*24)
	for i := 0; i < e.FPS(); i++ {
		if err := e.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if err := e.WriteFrame(frame[:10]); !errors.Is(err, media.ErrInvalidBufferSize) {
		t.Errorf("short frame error = %v, want ErrInvalidBufferSize", err)
	}
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	v, err := OpenVideo(path)
	if err != nil {
		t.Fatalf("OpenVideo failed: %v", err)
	}
	if v.Width() != 32 || v.Height() != 24 {
		t.Errorf("geometry = %dx%d, want 32x24", v.Width(), v.Height())
	}
	if math.Abs(v.FPS()-float64(e.FPS())) > 0.5 {
		t.Errorf("FPS() = %.2f, want %d", v.FPS(), e.FPS())
	}
	if math.Abs(v.Duration()-1.0) > 0.1 {
		t.Errorf("Duration() = %.3f, want 1.0", v.Duration())
	}

	strip, err := v.TimelineStrip(3, 16, 12)
	if err != nil || len(strip) != 3 {
		t.Fatalf("TimelineStrip = %d thumbnails, %v", len(strip), err)
	}
	pix, err := v.ExactFrame(0.5, 32, 24)
	if err != nil {
		t.Fatalf("ExactFrame failed: %v", err)
	}
	if pix[0] < 170 || pix[1] > 80 {
		t.Errorf("pixel = %v, want reddish", pix[:3])
	}
	if _, err := v.Keyframe(0.5, 8, 6); err != nil {
		t.Errorf("Keyframe failed: %v", err)
	}

	_, err = OpenVideo(testaudio.Generate(t, testaudio.Options{}))
	if !errors.Is(err, media.ErrNoSuitableTrack) || !strings.Contains(err.Error(), "video") {
		t.Errorf("audio-only error = %v, want ErrNoSuitableTrack", err)
	}
}

func TestVideoClipRender(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	e, err := NewExporter(src, 64, 48, 25)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	frame := bytes.Repeat([]byte{200, 40, 40}, 64*48)
	for i := 0; i < 25; i++ {
		if err := e.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	v, err := OpenVideo(src)
	if err != nil {
		t.Fatalf("OpenVideo failed: %v", err)
	}

	var frames int64
	n, err := v.Frames(0, 0.4, 25, 16, 12, func(index int64, rgb []byte) error {
		if len(rgb) != 16*12*3 {
			t.Errorf("frame %d is %d bytes", index, len(rgb))
		}
		frames++
		return nil
	})
	if err != nil || n != 10 || frames != 10 {
		t.Fatalf("Frames = %d (%d seen), %v; want 10", n, frames, err)
	}

	out := filepath.Join(dir, "out.mp4")
	white := bytes.Repeat([]byte{255, 255, 255, 255}, 16*16)
	var lastDone, lastTotal int64
	written, err := v.Render(context.Background(), out, RenderOptions{
		End:      0.4,
		FPS:      25,
		Contrast: 1.0,
		Overlay:  &Overlay{Pix: white, Width: 16, Height: 16, Opacity: 1.0},
	}, func(done, total int64) {
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if written != 10 || lastDone != 10 || lastTotal != 10 {
		t.Errorf("written=%d progress=%d/%d, want 10/10", written, lastDone, lastTotal)
	}

	r, err := OpenVideo(out)
	if err != nil {
		t.Fatalf("OpenVideo(render) failed: %v", err)
	}
	if r.Width() != 64 || r.Height() != 48 {
		t.Errorf("render geometry = %dx%d, want 64x48", r.Width(), r.Height())
	}
	pix, err := r.ExactFrame(0.2, 64, 48)
	if err != nil {
		t.Fatalf("ExactFrame failed: %v", err)
	}
	corner := pix[(4*64+4)*3:]
	if corner[0] < 220 || corner[1] < 220 || corner[2] < 220 {
		t.Errorf("overlay pixel = %v, want near white", corner[:3])
	}
	far := pix[(40*64+56)*3:]
	if far[0] < 170 || far[1] > 80 {
		t.Errorf("background pixel = %v, want reddish", far[:3])
	}
}

func TestVideoClipRenderCancel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	e, err := NewExporter(src, 32, 24, 25)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	frame := bytes.Repeat([]byte{40, 120, 200}, 32*24)
	for i := 0; i < 50; i++ {
		if err := e.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	v, err := OpenVideo(src)
	if err != nil {
		t.Fatalf("OpenVideo failed: %v", err)
	}

	const stopAfter = 5
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := filepath.Join(dir, "partial.mp4")
	written, err := v.Render(ctx, out, RenderOptions{End: 1.0, FPS: 25, Contrast: 1.0}, func(done, total int64) {
		if total != 25 {
			t.Errorf("total = %d, want 25", total)
		}
		if done == stopAfter {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Render error = %v, want context.Canceled", err)
	}
	if written != stopAfter {
		t.Errorf("written = %d, want %d", written, stopAfter)
	}

	// the partial file must be finalised and decodable
	r, err := OpenVideo(out)
	if err != nil {
		t.Fatalf("OpenVideo(partial) failed: %v", err)
	}
	var n int64
	if _, err := r.Frames(0, 0, 25, 32, 24, func(int64, []byte) error {
		n++
		return nil
	}); err != nil {
		t.Fatalf("Frames(partial) failed: %v", err)
	}
	// container timing may add or drop a frame at the boundary
	if n < stopAfter-1 || n > stopAfter+1 {
		t.Errorf("partial render holds %d frames, want about %d", n, stopAfter)
	}
}
