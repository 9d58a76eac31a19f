package raster

import (
	"errors"
	"fmt"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

// Default geometry: a 2000x2000 raster holds 12,000,000 bytes per block.
const (
	DefaultWidth  = 2000
	DefaultHeight = 2000
)

// MaxDimension bounds each side of a raster.
const MaxDimension = 1 << 15

// Codec converts between blocks, rasters and encoded images. Writer and
// reader must agree on every field; changing any of them invalidates
// previously written groups.
type Codec struct {
	Width  int
	Height int
	Format Format
}

// NewCodec validates the geometry and format.
func NewCodec(width, height int, format Format) (Codec, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return Codec{}, fmt.Errorf("%w: %dx%d", fault.ErrInvalidDimensions, width, height)
	}
	f, err := ParseFormat(string(format))
	if err != nil {
		return Codec{}, err
	}
	return Codec{Width: width, Height: height, Format: f}, nil
}

// BlockSize returns the pixel-byte capacity of one raster.
func (c Codec) BlockSize() int {
	return c.Width * c.Height * Channels
}

// ToRaster reinterprets a block as a raster. The block must be exactly
// BlockSize bytes; the raster shares its memory.
func (c Codec) ToRaster(block []byte) (*Raster, error) {
	if len(block) != c.BlockSize() {
		return nil, fmt.Errorf("%w: block is %d bytes, raster holds %d",
			fault.ErrBlockSizeMismatch, len(block), c.BlockSize())
	}
	return &Raster{Width: c.Width, Height: c.Height, Pix: block}, nil
}

// EncodeImage encodes the raster in the codec's lossless format.
func (c Codec) EncodeImage(r *Raster) ([]byte, error) {
	if r.Width != c.Width || r.Height != c.Height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d",
			fault.ErrRasterSizeMismatch, r.Width, r.Height, c.Width, c.Height)
	}
	if len(r.Pix) != c.BlockSize() {
		return nil, fmt.Errorf("%w: raster carries %d bytes, want %d",
			fault.ErrBlockSizeMismatch, len(r.Pix), c.BlockSize())
	}
	return c.Format.encode(r.Image())
}

// DecodeImage recovers a raster from encoded image bytes. Undecodable
// input is a corrupt container; a well-formed image of the wrong size is a
// configuration error. Nothing is truncated or padded.
func (c Codec) DecodeImage(data []byte) (*Raster, error) {
	img, err := c.Format.decode(data)
	if err != nil {
		if errors.Is(err, fault.ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, &fault.CorruptContainerError{Err: fmt.Errorf("undecodable %s image: %w", c.Format, err)}
	}
	b := img.Bounds()
	if b.Dx() != c.Width || b.Dy() != c.Height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d",
			fault.ErrRasterSizeMismatch, b.Dx(), b.Dy(), c.Width, c.Height)
	}
	return FromImage(img)
}

// EncodeBlock runs a block through ToRaster and EncodeImage.
func (c Codec) EncodeBlock(block []byte) ([]byte, error) {
	r, err := c.ToRaster(block)
	if err != nil {
		return nil, err
	}
	return c.EncodeImage(r)
}

// DecodeBlock is the inverse of EncodeBlock.
func (c Codec) DecodeBlock(data []byte) ([]byte, error) {
	r, err := c.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return r.Bytes(), nil
}
