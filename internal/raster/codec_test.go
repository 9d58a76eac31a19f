package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

func randomBlock(t *testing.T, n int, seed int64) []byte {
	t.Helper()
	block := make([]byte, n)
	_, err := rand.New(rand.NewSource(seed)).Read(block)
	require.NoError(t, err)
	return block
}

func TestRasterIsRowMajorRGB(t *testing.T) {
	c, err := NewCodec(2, 2, FormatPNG)
	require.NoError(t, err)

	block := []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	r, err := c.ToRaster(block)
	require.NoError(t, err)

	img := r.Image()
	assert.Equal(t, color.RGBA{4, 5, 6, 0xff}, img.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{7, 8, 9, 0xff}, img.RGBAAt(0, 1))
	assert.Equal(t, block, r.Bytes())
}

func TestCodecInverseLaw(t *testing.T) {
	for _, format := range []Format{FormatPNG, FormatBMP, FormatTIFF} {
		t.Run(string(format), func(t *testing.T) {
			c, err := NewCodec(8, 3, format)
			require.NoError(t, err)
			require.Equal(t, 72, c.BlockSize())

			blocks := [][]byte{
				make([]byte, c.BlockSize()),
				bytes.Repeat([]byte{0xff}, c.BlockSize()),
				randomBlock(t, c.BlockSize(), 1),
				randomBlock(t, c.BlockSize(), 2),
			}
			for _, block := range blocks {
				r, err := c.ToRaster(block)
				require.NoError(t, err)

				encoded, err := c.EncodeImage(r)
				require.NoError(t, err)

				decoded, err := c.DecodeImage(encoded)
				require.NoError(t, err)
				assert.Equal(t, r, decoded)
				assert.Equal(t, block, decoded.Bytes())
			}
		})
	}
}

func TestNewCodecBoundsDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 4}, {4, -1}, {MaxDimension + 1, 1}, {1, MaxDimension + 1}} {
		_, err := NewCodec(dims[0], dims[1], FormatPNG)
		assert.True(t, errors.Is(err, fault.ErrInvalidDimensions), "%dx%d", dims[0], dims[1])
	}
	c, err := NewCodec(MaxDimension, 1, FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, MaxDimension*3, c.BlockSize())
}

func TestCodecRejectsWrongBlockSize(t *testing.T) {
	c, err := NewCodec(4, 4, FormatPNG)
	require.NoError(t, err)

	for _, n := range []int{0, 47, 49} {
		_, err := c.ToRaster(make([]byte, n))
		assert.True(t, errors.Is(err, fault.ErrBlockSizeMismatch), "length %d", n)
	}
}

func TestDecodeMalformedImageIsCorrupt(t *testing.T) {
	for _, format := range []Format{FormatPNG, FormatBMP, FormatTIFF} {
		c, err := NewCodec(4, 4, format)
		require.NoError(t, err)

		_, err = c.DecodeImage([]byte("definitely not an image"))
		assert.True(t, errors.Is(err, fault.ErrCorrupt), "format %s: %v", format, err)
	}
}

func TestDecodeWrongDimensionsIsConfigurationError(t *testing.T) {
	writer, err := NewCodec(8, 3, FormatPNG)
	require.NoError(t, err)
	reader, err := NewCodec(4, 6, FormatPNG)
	require.NoError(t, err)
	require.Equal(t, writer.BlockSize(), reader.BlockSize())

	encoded, err := writer.EncodeBlock(randomBlock(t, writer.BlockSize(), 3))
	require.NoError(t, err)

	_, err = reader.DecodeBlock(encoded)
	assert.True(t, errors.Is(err, fault.ErrRasterSizeMismatch))
	var ce fault.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestDecodeTranslucentImageIsCorrupt(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetNRGBA(1, 1, color.NRGBA{10, 20, 30, 0x80})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	c, err := NewCodec(2, 2, FormatPNG)
	require.NoError(t, err)
	_, err = c.DecodeImage(buf.Bytes())
	assert.True(t, errors.Is(err, fault.ErrCorrupt))
}

func TestFromImageGenericPath(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 7})
	img.SetGray(1, 0, color.Gray{Y: 200})

	r, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7, 7, 200, 200, 200}, r.Pix)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PNG")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	_, err = ParseFormat("jpeg")
	assert.True(t, errors.Is(err, fault.ErrUnsupportedFormat))

	_, err = NewCodec(0, 10, FormatPNG)
	assert.True(t, errors.Is(err, fault.ErrInvalidDimensions))
}
