package clip

import (
	"github.com/linuxmatters/jivecut/internal/extract"
	"github.com/linuxmatters/jivecut/internal/media"
	"github.com/linuxmatters/jivecut/internal/video"
)

// VideoClip is a video file that answers thumbnail and frame queries.
type VideoClip struct {
	info media.Info
}

// OpenVideo probes path.
func OpenVideo(path string) (*VideoClip, error) {
	info, err := video.Probe(path)
	if err != nil {
		return nil, err
	}
	return &VideoClip{info: info}, nil
}

func (c *VideoClip) Info() media.Info  { return c.info }
func (c *VideoClip) Path() string      { return c.info.Path }
func (c *VideoClip) Width() int        { return c.info.Width }
func (c *VideoClip) Height() int       { return c.info.Height }
func (c *VideoClip) Duration() float64 { return c.info.Duration() }
func (c *VideoClip) FPS() float64      { return c.info.FrameRate }

func (c *VideoClip) withDecoder(fn func(d *video.Decoder) error) error {
	d, err := video.Open(c.info.Path)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d)
}

// TimelineStrip returns count evenly spaced RGB24 thumbnails.
func (c *VideoClip) TimelineStrip(count, width, height int) ([][]byte, error) {
	var out [][]byte
	err := c.withDecoder(func(d *video.Decoder) error {
		var err error
		out, err = extract.Strip(d, count, width, height)
		return err
	})
	return out, err
}

// Keyframe returns the picture at the nearest keyframe before seconds.
func (c *VideoClip) Keyframe(seconds float64, width, height int) ([]byte, error) {
	var out []byte
	err := c.withDecoder(func(d *video.Decoder) error {
		var err error
		out, err = extract.Keyframe(d, seconds, width, height)
		return err
	})
	return out, err
}

// ExactFrame returns the first picture presented at or after seconds.
func (c *VideoClip) ExactFrame(seconds float64, width, height int) ([]byte, error) {
	var out []byte
	err := c.withDecoder(func(d *video.Decoder) error {
		var err error
		out, err = extract.Exact(d, seconds, width, height)
		return err
	})
	return out, err
}
