// Package raster maps fixed-size byte blocks onto RGB pixel grids and
// carries those grids through lossless image formats.
//
// A block of W*H*3 bytes is read row-major, three bytes per pixel in
// R, G, B order. The alpha channel is always opaque; any decoded pixel
// that is not fully opaque means the image was not produced here.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

// Channels is the number of payload bytes carried per pixel.
const Channels = 3

var errTranslucent = errors.New("image contains translucent pixels")

// Raster is a W x H grid of RGB pixels. Pix holds Width*Height*3 bytes,
// row-major.
type Raster struct {
	Width  int
	Height int
	Pix    []byte
}

// Bytes returns the block the raster reinterprets. The slice is shared,
// not copied.
func (r *Raster) Bytes() []byte { return r.Pix }

// Image returns the raster as an opaque RGBA image.
func (r *Raster) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	src, dst := r.Pix, img.Pix
	for i, j := 0, 0; i < len(src); i, j = i+3, j+4 {
		dst[j] = src[i]
		dst[j+1] = src[i+1]
		dst[j+2] = src[i+2]
		dst[j+3] = 0xff
	}
	return img
}

// FromImage extracts the RGB payload of img. Images with any translucent
// pixel are rejected as corrupt.
func FromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &Raster{Width: w, Height: h, Pix: make([]byte, w*h*Channels)}

	switch m := img.(type) {
	case *image.RGBA:
		if err := copyOpaque(out.Pix, m.Pix, m.Stride, w, h); err != nil {
			return nil, err
		}
	case *image.NRGBA:
		if err := copyOpaque(out.Pix, m.Pix, m.Stride, w, h); err != nil {
			return nil, err
		}
	default:
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
				if c.A != 0xffff {
					return nil, &fault.CorruptContainerError{Err: errTranslucent}
				}
				out.Pix[i] = uint8(c.R >> 8)
				out.Pix[i+1] = uint8(c.G >> 8)
				out.Pix[i+2] = uint8(c.B >> 8)
				i += 3
			}
		}
	}
	return out, nil
}

// copyOpaque copies the RGB bytes of an 8-bit RGBA-layout pixel buffer.
// For opaque pixels premultiplied and straight alpha agree.
func copyOpaque(dst, src []byte, stride, w, h int) error {
	i := 0
	for y := 0; y < h; y++ {
		row := src[y*stride : y*stride+w*4]
		for x := 0; x < len(row); x += 4 {
			if row[x+3] != 0xff {
				return &fault.CorruptContainerError{Err: errTranslucent}
			}
			dst[i] = row[x]
			dst[i+1] = row[x+1]
			dst[i+2] = row[x+2]
			i += 3
		}
	}
	return nil
}

func (r *Raster) String() string {
	return fmt.Sprintf("raster %dx%d", r.Width, r.Height)
}
