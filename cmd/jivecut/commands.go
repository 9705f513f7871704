package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/linuxmatters/jivecut/internal/audio"
	"github.com/linuxmatters/jivecut/internal/cli"
	"github.com/linuxmatters/jivecut/internal/clip"
	"github.com/linuxmatters/jivecut/internal/compositor"
	"github.com/linuxmatters/jivecut/internal/logging"
	"github.com/linuxmatters/jivecut/internal/media"
	"github.com/linuxmatters/jivecut/internal/ui"
	"github.com/linuxmatters/jivecut/internal/video"
)

// InfoCmd prints stream details for each file.
type InfoCmd struct {
	Files []string `arg:"" name:"files" help:"Media files to inspect" type:"existingfile"`
}

func (c *InfoCmd) Run(g *globals) error {
	for _, path := range c.Files {
		contentType, err := media.ContentType(path)
		if err != nil {
			return err
		}
		if !media.IsMediaType(contentType) {
			return fmt.Errorf("%s: %w (%s)", filepath.Base(path), media.ErrNoSuitableTrack, contentType)
		}
		a, err := probeTrack(audio.Probe, path)
		if err != nil {
			return err
		}
		v, err := probeTrack(video.Probe, path)
		if err != nil {
			return err
		}
		logging.DisplayInfo(os.Stdout, path, contentType, a, v)
	}
	return nil
}

// probeTrack returns nil, not an error, when the file simply lacks that
// kind of track.
func probeTrack(probe func(string) (media.Info, error), path string) (*media.Info, error) {
	info, err := probe(path)
	if errors.Is(err, media.ErrNoSuitableTrack) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &info, nil
}

// WAVCmd exports the audio track of one file.
type WAVCmd struct {
	Input  string `arg:"" name:"input" help:"Audio or video file" type:"existingfile"`
	Output string `arg:"" name:"output" optional:"" help:"Destination WAV (default: <name>-jivecut.wav)"`
}

func (c *WAVCmd) Run(g *globals) error {
	out := c.Output
	if out == "" {
		out = outputPath(c.Input, "", "-jivecut.wav")
	}
	a, err := clip.OpenAudio(c.Input)
	if err != nil {
		return err
	}
	msg, err := a.ExportWAV(out)
	if err != nil {
		return err
	}
	cli.PrintSuccess(msg)
	return nil
}

// StripCmd writes a row of evenly spaced thumbnails.
type StripCmd struct {
	Input     string `arg:"" name:"input" help:"Video file" type:"existingfile"`
	Count     int    `short:"n" help:"Number of thumbnails (default from config)"`
	Width     int    `help:"Thumbnail width (default from config)"`
	Height    int    `help:"Thumbnail height (default from config)"`
	OutputDir string `short:"o" type:"existingdir" help:"Directory for the PNGs (default: next to the input)"`
}

func (c *StripCmd) Run(g *globals) error {
	count := orDefault(c.Count, g.cfg.Thumbnails.Count)
	width := orDefault(c.Width, g.cfg.Thumbnails.Width)
	height := orDefault(c.Height, g.cfg.Thumbnails.Height)

	v, err := clip.OpenVideo(c.Input)
	if err != nil {
		return err
	}
	frames, err := v.TimelineStrip(count, width, height)
	if err != nil {
		return err
	}
	for i, rgb := range frames {
		path := outputPath(c.Input, c.OutputDir, fmt.Sprintf("-strip-%02d.png", i+1))
		if err := writePNG(path, rgb, width, height); err != nil {
			return err
		}
	}
	cli.PrintSuccess(fmt.Sprintf("Wrote %d thumbnail(s) of %dx%d", len(frames), width, height))
	return nil
}

// FrameCmd writes the frame at one timestamp.
type FrameCmd struct {
	Input  string  `arg:"" name:"input" help:"Video file" type:"existingfile"`
	Output string  `arg:"" name:"output" optional:"" help:"Destination PNG (default: <name>-frame.png)"`
	At     float64 `help:"Timestamp in seconds" default:"0"`
	Exact  bool    `help:"Decode forward to the exact frame instead of the nearest keyframe"`
	Width  int     `help:"Output width (default: source width)"`
	Height int     `help:"Output height (default: source height)"`
}

func (c *FrameCmd) Run(g *globals) error {
	v, err := clip.OpenVideo(c.Input)
	if err != nil {
		return err
	}
	width, height := c.Width, c.Height
	if width <= 0 || height <= 0 {
		width, height = v.Width(), v.Height()
	}

	grab := v.Keyframe
	if c.Exact {
		grab = v.ExactFrame
	}
	rgb, err := grab(c.At, width, height)
	if err != nil {
		return err
	}

	out := c.Output
	if out == "" {
		out = outputPath(c.Input, "", "-frame.png")
	}
	if err := writePNG(out, rgb, width, height); err != nil {
		return err
	}
	cli.PrintSuccess("Wrote " + out)
	return nil
}

// RenderCmd re-encodes a span of video with optional overlay artwork.
type RenderCmd struct {
	Input  string `arg:"" name:"input" help:"Video file" type:"existingfile"`
	Output string `arg:"" name:"output" help:"Destination video (container from extension)"`

	Start  float64 `help:"Start of the span in seconds" default:"0"`
	End    float64 `help:"End of the span in seconds (0 = end of clip)" default:"0"`
	FPS    int     `help:"Output frame rate (default from config, then locale)"`
	Width  int     `help:"Output width (default: source width)"`
	Height int     `help:"Output height (default: source height)"`

	Overlay       string  `type:"existingfile" help:"PNG, JPEG, WebP or BMP artwork to blend onto every frame"`
	OverlayWidth  int     `help:"Scale the overlay to this width"`
	OverlayHeight int     `help:"Scale the overlay to this height"`
	X             int     `help:"Overlay left edge in pixels"`
	Y             int     `help:"Overlay top edge in pixels"`
	Opacity       float64 `help:"Overlay opacity, 0 to 1" default:"1"`

	Brightness float64 `help:"Offset added to every channel value, -255 to 255" default:"0"`
	Contrast   float64 `help:"Contrast around mid-grey, -255 to 255 (1 = unchanged)" default:"1"`

	Plain bool `help:"Print the result without the interactive progress display"`
}

func (c *RenderCmd) Run(g *globals) error {
	opts := clip.RenderOptions{
		Start:      c.Start,
		End:        c.End,
		FPS:        orDefault(c.FPS, g.cfg.ExportFPS()),
		Width:      c.Width,
		Height:     c.Height,
		Brightness: c.Brightness,
		Contrast:   c.Contrast,
	}
	if c.Overlay != "" {
		ov, err := c.loadOverlay()
		if err != nil {
			return err
		}
		opts.Overlay = ov
	}

	v, err := clip.OpenVideo(c.Input)
	if err != nil {
		return err
	}

	if c.Plain {
		n, err := v.Render(context.Background(), c.Output, opts, nil)
		if err != nil {
			return err
		}
		cli.PrintSuccess(fmt.Sprintf("Rendered %d frame(s) to %s", n, c.Output))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(ui.NewTaskModel())
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		p.Send(ui.TaskStartMsg{Title: "Rendering", FilePath: c.Input})
		n, err := v.Render(ctx, c.Output, opts, func(done, total int64) {
			// one update per frame would flood the program
			if done%10 != 0 && done != total {
				return
			}
			var progress float64
			detail := fmt.Sprintf("frame %d", done)
			if total > 0 {
				progress = float64(done) / float64(total)
				detail = fmt.Sprintf("frame %d/%d", done, total)
			}
			p.Send(ui.TaskProgressMsg{Progress: progress, Detail: detail})
		})
		p.Send(ui.TaskCompleteMsg{
			Summary: fmt.Sprintf("Rendered %d frame(s) to %s", n, c.Output),
			Error:   err,
		})
	}()

	final, err := p.Run()
	// stop encoding and let Render finalise what it has written
	cancel()
	<-rendered
	if err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	m, ok := final.(ui.TaskModel)
	if !ok || !m.Done {
		return fmt.Errorf("render interrupted, %s holds the frames written so far", c.Output)
	}
	return m.Error
}

// loadOverlay decodes the overlay artwork, scaling it when either overlay
// dimension is given. A single dimension keeps the aspect ratio.
func (c *RenderCmd) loadOverlay() (*clip.Overlay, error) {
	f, err := os.Open(c.Overlay)
	if err != nil {
		return nil, fmt.Errorf("failed to open overlay: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode overlay %s: %w", filepath.Base(c.Overlay), err)
	}

	w, h := c.OverlayWidth, c.OverlayHeight
	if w > 0 || h > 0 {
		b := img.Bounds()
		switch {
		case w <= 0:
			w = max(1, b.Dx()*h/b.Dy())
		case h <= 0:
			h = max(1, b.Dy()*w/b.Dx())
		}
		img, err = compositor.ScaleRGBA(img, w, h)
		if err != nil {
			return nil, err
		}
	}

	pix, width, height := compositor.RGBAFromImage(img)
	return &clip.Overlay{
		Pix:     pix,
		Width:   width,
		Height:  height,
		X:       c.X,
		Y:       c.Y,
		Opacity: c.Opacity,
	}, nil
}

// writePNG encodes packed RGB24 to path.
func writePNG(path string, rgb []byte, width, height int) error {
	img, err := compositor.ImageFromRGB(rgb, width, height)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// outputPath derives <dir>/<name><suffix> from input. An empty dir means
// the input's own directory.
func outputPath(input, dir, suffix string) string {
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+suffix)
}

// orDefault returns flag when it was set, otherwise the configured fallback.
func orDefault(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}
