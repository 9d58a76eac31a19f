package container

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaywantadh/PixelVault/internal/fault"
	"github.com/jaywantadh/PixelVault/internal/raster"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	p := NewPacker(raster.FormatPNG, 4, 4)
	assert.Equal(t, "word/media/image1.png", p.Key())

	image := []byte("\x89PNG fake but opaque payload")
	doc, err := p.Pack(image)
	require.NoError(t, err)

	got, err := p.Unpack(doc)
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestPackProducesDocumentParts(t *testing.T) {
	doc, err := NewPacker(raster.FormatBMP, 2000, 2000).Pack([]byte("BM"))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	require.NoError(t, err)

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = string(data)
	}

	require.Contains(t, files, "[Content_Types].xml")
	require.Contains(t, files, "_rels/.rels")
	require.Contains(t, files, "word/document.xml")
	require.Contains(t, files, "word/_rels/document.xml.rels")
	require.Contains(t, files, "word/media/image1.bmp")

	assert.Contains(t, files["[Content_Types].xml"], `Extension="bmp" ContentType="image/bmp"`)
	assert.Contains(t, files["word/_rels/document.xml.rels"], `Target="media/image1.bmp"`)
	assert.Contains(t, files["word/document.xml"], `cx="19050000"`)
	assert.Contains(t, files["word/document.xml"], `r:embed="rIdImage1"`)
}

func TestUnpackNotAnArchive(t *testing.T) {
	_, err := Unpack([]byte("plain text, no zip here"), AssetKey(raster.FormatPNG))
	assert.True(t, errors.Is(err, fault.ErrCorrupt))
	assert.ErrorContains(t, err, "not a zip archive")
}

func TestUnpackMissingAsset(t *testing.T) {
	doc, err := NewPacker(raster.FormatPNG, 1, 1).Pack([]byte("png"))
	require.NoError(t, err)

	_, err = Unpack(doc, AssetKey(raster.FormatTIFF))
	assert.True(t, errors.Is(err, fault.ErrCorrupt))
	assert.ErrorContains(t, err, "word/media/image1.tiff")
}

func TestPackRejectsKeyOutsideMedia(t *testing.T) {
	_, err := Pack([]byte("x"), Asset{Key: "image1.png", Format: raster.FormatPNG})
	assert.Error(t, err)
}
