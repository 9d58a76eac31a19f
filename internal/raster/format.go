package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

// Format names a lossless image encoding.
type Format string

// supported formats
const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ParseFormat accepts a format name case-insensitively. Lossy formats are
// never accepted.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatPNG, FormatBMP, FormatTIFF:
		return f, nil
	case "":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: %q", fault.ErrUnsupportedFormat, name)
	}
}

// Extension returns the file extension used for the asset, without dot.
func (f Format) Extension() string {
	return string(f)
}

// MimeType returns the content type recorded in the container.
func (f Format) MimeType() string {
	switch f {
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

func (f Format) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = pngEncoder.Encode(&buf, img)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return nil, fmt.Errorf("%w: %q", fault.ErrUnsupportedFormat, string(f))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", f, err)
	}
	return buf.Bytes(), nil
}

func (f Format) decode(data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch f {
	case FormatPNG:
		return png.Decode(r)
	case FormatBMP:
		return bmp.Decode(r)
	case FormatTIFF:
		return tiff.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %q", fault.ErrUnsupportedFormat, string(f))
	}
}
