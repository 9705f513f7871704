package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linuxmatters/jivecut/internal/config"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, dir, suffix string
		want               string
	}{
		{"/rec/show.mp4", "", "-frame.png", "/rec/show-frame.png"},
		{"/rec/show.mp4", "/out", "-strip-01.png", "/out/show-strip-01.png"},
		{"take.two.wav", "", "-jivecut.wav", "take.two-jivecut.wav"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.input, tt.dir, tt.suffix); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.input, tt.dir, tt.suffix, got, tt.want)
		}
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault(0, 10); got != 10 {
		t.Errorf("orDefault(0, 10) = %d, want 10", got)
	}
	if got := orDefault(-1, 10); got != 10 {
		t.Errorf("orDefault(-1, 10) = %d, want 10", got)
	}
	if got := orDefault(4, 10); got != 4 {
		t.Errorf("orDefault(4, 10) = %d, want 4", got)
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	rgb := []byte{255, 0, 0, 0, 255, 0}
	if err := writePNG(path, rgb, 2, 1); err != nil {
		t.Fatalf("writePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r, g, _, _ := img.At(1, 0).RGBA(); r != 0 || g != 0xffff {
		t.Errorf("pixel (1,0) = r%d g%d, want green", r, g)
	}

	if err := writePNG(path, rgb, 3, 1); err == nil {
		t.Error("writePNG with a short buffer succeeded")
	}
}

func TestLoadOverlay(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	src.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})

	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"native", 0, 0, 8, 4},
		{"width_only", 4, 0, 4, 2},
		{"height_only", 0, 2, 4, 2},
		{"both", 2, 2, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &RenderCmd{Overlay: path, OverlayWidth: tt.width, OverlayHeight: tt.height, X: 3, Y: 1, Opacity: 0.5}
			ov, err := c.loadOverlay()
			if err != nil {
				t.Fatalf("loadOverlay failed: %v", err)
			}
			if ov.Width != tt.wantW || ov.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", ov.Width, ov.Height, tt.wantW, tt.wantH)
			}
			if len(ov.Pix) != ov.Width*ov.Height*4 {
				t.Errorf("len(Pix) = %d, want %d", len(ov.Pix), ov.Width*ov.Height*4)
			}
			if ov.X != 3 || ov.Y != 1 || ov.Opacity != 0.5 {
				t.Errorf("placement = (%d,%d) opacity %v", ov.X, ov.Y, ov.Opacity)
			}
		})
	}

	t.Run("native_pixels", func(t *testing.T) {
		ov, err := (&RenderCmd{Overlay: path}).loadOverlay()
		if err != nil {
			t.Fatal(err)
		}
		if got := ov.Pix[:4]; got[0] != 10 || got[1] != 20 || got[2] != 30 || got[3] != 128 {
			t.Errorf("first pixel = %v, want [10 20 30 128]", got)
		}
	})
}

func TestAnalyzeRejectsNegativeOverrides(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name    string
		cmd     AnalyzeCmd
		wantErr string
	}{
		{"volume", AnalyzeCmd{Volume: &neg}, "effects.volume"},
		{"fade_in", AnalyzeCmd{FadeIn: &neg}, "effects.fade_in"},
		{"fade_out", AnalyzeCmd{FadeOut: &neg}, "effects.fade_out"},
		{"min_duration", AnalyzeCmd{MinDuration: &neg}, "min_duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmd.Plain = true
			tt.cmd.Files = []string{filepath.Join(t.TempDir(), "unused.wav")}
			err := tt.cmd.Run(&globals{cfg: config.DefaultConfig()})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Run() = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}

	t.Run("overrides_merge", func(t *testing.T) {
		vol, fade := 0.5, 2.0
		c := AnalyzeCmd{Volume: &vol, FadeOut: &fade}
		opts := c.options(&globals{cfg: config.DefaultConfig()})
		if opts.Effects.Volume != 0.5 || opts.Effects.FadeOut != 2 || opts.Effects.FadeIn != 0 {
			t.Errorf("effects = %+v", opts.Effects)
		}
		if err := opts.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})
}
