package compositor

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/linuxmatters/jivecut/internal/media"
)

// RGBFromImage flattens img to packed RGB24, dropping alpha.
func RGBFromImage(img image.Image) (pix []byte, width, height int) {
	rgba := toNRGBA(img)
	b := rgba.Bounds()
	width, height = b.Dx(), b.Dy()
	pix = make([]byte, 0, width*height*3)
	for y := 0; y < height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
		for x := 0; x < width; x++ {
			pix = append(pix, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return pix, width, height
}

// RGBAFromImage returns img as packed, non-premultiplied RGBA.
func RGBAFromImage(img image.Image) (pix []byte, width, height int) {
	rgba := toNRGBA(img)
	b := rgba.Bounds()
	width, height = b.Dx(), b.Dy()
	return media.PackRows(rgba.Pix, rgba.Stride, width*4, height), width, height
}

// ImageFromRGB wraps packed RGB24 as an opaque image for encoding to PNG.
func ImageFromRGB(pix []byte, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height*3 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", media.ErrInvalidBufferSize, len(pix), width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(pix); i, j = i+3, j+4 {
		img.Pix[j] = pix[i]
		img.Pix[j+1] = pix[i+1]
		img.Pix[j+2] = pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// ScaleRGBA resizes overlay artwork with Catmull-Rom resampling.
func ScaleRGBA(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", media.ErrInvalidBufferSize, width, height)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
