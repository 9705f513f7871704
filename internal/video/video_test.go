package video

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/linuxmatters/jivecut/internal/extract"
	"github.com/linuxmatters/jivecut/internal/media"
	"github.com/linuxmatters/jivecut/internal/testaudio"
)

const (
	testW   = 64
	testH   = 48
	testFPS = 25
)

// grey returns the level of picture i in the generated clip.
func grey(i int) byte {
	return byte(i * 20)
}

// writeTestVideo encodes n flat grey pictures whose level steps by 20.
func writeTestVideo(t *testing.T, n int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "steps.mp4")
	enc, err := NewEncoder(path, testW, testH, testFPS)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	for i := 0; i < n; i++ {
		if err := enc.WriteFrame(bytes.Repeat([]byte{grey(i)}, testW*testH*3)); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if enc.FrameCount() != int64(n) {
		t.Errorf("FrameCount() = %d, want %d", enc.FrameCount(), n)
	}
	if err := enc.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	return path
}

func meanLevel(pix []byte) float64 {
	var sum float64
	for _, p := range pix {
		sum += float64(p)
	}
	return sum / float64(len(pix))
}

func TestEncoderRoundTrip(t *testing.T) {
	path := writeTestVideo(t, 10)

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	info := d.Info()
	if info.Width != testW || info.Height != testH {
		t.Errorf("geometry = %dx%d, want %dx%d", info.Width, info.Height, testW, testH)
	}
	if math.Abs(info.FrameRate-testFPS) > 0.5 {
		t.Errorf("FrameRate = %.2f, want %d", info.FrameRate, testFPS)
	}
	if math.Abs(info.Duration()-0.4) > 0.05 {
		t.Errorf("Duration() = %.3f, want 0.4", info.Duration())
	}

	t.Run("exact_frame", func(t *testing.T) {
		pix, err := extract.Exact(d, 0.2, testW, testH)
		if err != nil {
			t.Fatalf("Exact failed: %v", err)
		}
		if len(pix) != testW*testH*3 {
			t.Fatalf("got %d bytes, want %d", len(pix), testW*testH*3)
		}
		if got := meanLevel(pix); math.Abs(got-float64(grey(5))) > 9 {
			t.Errorf("mean level = %.1f, want about %d (picture 5)", got, grey(5))
		}
	})

	t.Run("keyframe", func(t *testing.T) {
		pix, err := extract.Keyframe(d, 0.2, 32, 24)
		if err != nil {
			t.Fatalf("Keyframe failed: %v", err)
		}
		if len(pix) != 32*24*3 {
			t.Errorf("got %d bytes, want %d", len(pix), 32*24*3)
		}
	})

	t.Run("strip", func(t *testing.T) {
		thumbs, err := extract.Strip(d, 4, 16, 12)
		if err != nil {
			t.Fatalf("Strip failed: %v", err)
		}
		if len(thumbs) != 4 {
			t.Fatalf("got %d thumbnails, want 4", len(thumbs))
		}
		for i, th := range thumbs {
			if len(th) != 16*12*3 {
				t.Errorf("thumbnail %d has %d bytes, want %d", i, len(th), 16*12*3)
			}
		}
	})

	t.Run("exact_past_end", func(t *testing.T) {
		_, err := extract.Exact(d, 5.0, testW, testH)
		if !errors.Is(err, media.ErrFrameNotFound) {
			t.Errorf("error = %v, want ErrFrameNotFound", err)
		}
	})
}

func TestEncoderValidation(t *testing.T) {
	t.Run("odd_geometry", func(t *testing.T) {
		_, err := NewEncoder(filepath.Join(t.TempDir(), "odd.mp4"), 63, 48, testFPS)
		if !errors.Is(err, media.ErrInvalidBufferSize) {
			t.Errorf("error = %v, want ErrInvalidBufferSize", err)
		}
	})

	t.Run("wrong_buffer_size", func(t *testing.T) {
		enc, err := NewEncoder(filepath.Join(t.TempDir(), "short.mp4"), testW, testH, testFPS)
		if err != nil {
			t.Fatalf("NewEncoder failed: %v", err)
		}
		defer enc.Finish()

		err = enc.WriteFrame(make([]byte, testW*testH*3-1))
		if !errors.Is(err, media.ErrInvalidBufferSize) {
			t.Errorf("error = %v, want ErrInvalidBufferSize", err)
		}
		if enc.FrameCount() != 0 {
			t.Errorf("rejected frame was counted")
		}
	})

	t.Run("finish_twice", func(t *testing.T) {
		enc, err := NewEncoder(filepath.Join(t.TempDir(), "twice.mp4"), testW, testH, testFPS)
		if err != nil {
			t.Fatalf("NewEncoder failed: %v", err)
		}
		if err := enc.Finish(); err != nil {
			t.Fatalf("first Finish failed: %v", err)
		}
		if err := enc.Finish(); err != nil {
			t.Errorf("second Finish = %v, want nil", err)
		}
	})
}

func TestOpenErrors(t *testing.T) {
	t.Run("missing_file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing.mp4"))
		if !errors.Is(err, media.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("audio_only", func(t *testing.T) {
		wav := testaudio.Generate(t, testaudio.Options{ToneFreq: 440, ToneLevel: -12})
		_, err := Open(wav)
		if !errors.Is(err, media.ErrNoSuitableTrack) {
			t.Errorf("error = %v, want ErrNoSuitableTrack", err)
		}
	})
}
