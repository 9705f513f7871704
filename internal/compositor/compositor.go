// Package compositor implements the pixel transforms used when rendering:
// alpha overlay of RGBA artwork onto RGB frames and brightness/contrast.
// Every function returns a new buffer and leaves its inputs untouched.
package compositor

import (
	"fmt"
	"math"

	"github.com/linuxmatters/jivecut/internal/media"
)

// Overlay source-over blends an fgWidth-wide RGBA image onto an
// bgWidth-wide RGB frame with its top-left corner at (x, y). Each pixel's
// alpha is scaled by opacity; pixels with no effective alpha and pixels
// falling outside the background are skipped.
func Overlay(bg []byte, bgWidth int, fg []byte, fgWidth, fgHeight, x, y int, opacity float64) ([]byte, error) {
	if bgWidth <= 0 || len(bg) == 0 || len(bg)%(bgWidth*3) != 0 {
		return nil, fmt.Errorf("%w: background is %d bytes for width %d", media.ErrInvalidBufferSize, len(bg), bgWidth)
	}
	if fgWidth < 0 || fgHeight < 0 || len(fg) != fgWidth*fgHeight*4 {
		return nil, fmt.Errorf("%w: foreground is %d bytes for %dx%d", media.ErrInvalidBufferSize, len(fg), fgWidth, fgHeight)
	}

	bgHeight := len(bg) / (bgWidth * 3)
	out := make([]byte, len(bg))
	copy(out, bg)

	if opacity <= 0 || math.IsNaN(opacity) {
		return out, nil
	}

	for fy := 0; fy < fgHeight; fy++ {
		by := y + fy
		if by < 0 || by >= bgHeight {
			continue
		}
		for fx := 0; fx < fgWidth; fx++ {
			bx := x + fx
			if bx < 0 || bx >= bgWidth {
				continue
			}

			fi := (fy*fgWidth + fx) * 4
			alpha := float64(fg[fi+3]) / 255.0 * opacity
			if alpha <= 0 {
				continue
			}
			if alpha > 1 {
				alpha = 1
			}

			bi := (by*bgWidth + bx) * 3
			for c := 0; c < 3; c++ {
				v := float64(fg[fi+c])*alpha + float64(out[bi+c])*(1-alpha)
				out[bi+c] = clampByte(v)
			}
		}
	}
	return out, nil
}

// ColorAdjust adds brightness to every channel and then, unless contrast is
// exactly 1, stretches around mid-grey with the classic
// 259(c+255)/(255(259-c)) factor. Results clamp to [0, 255].
func ColorAdjust(frame []byte, brightness, contrast float64) []byte {
	out := make([]byte, len(frame))
	if brightness == 0 && contrast == 1.0 {
		copy(out, frame)
		return out
	}

	applyContrast := contrast != 1.0
	factor := 259 * (contrast + 255) / (255 * (259 - contrast))
	for i, p := range frame {
		v := float64(p) + brightness
		if applyContrast {
			v = factor*(v-128) + 128
		}
		out[i] = clampByte(v)
	}
	return out
}

// clampByte truncates v into a byte. NaN maps to mid-grey.
func clampByte(v float64) byte {
	switch {
	case math.IsNaN(v):
		return 128
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
