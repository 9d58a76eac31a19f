// Package container wraps one encoded raster as the only picture of a
// minimal Office Open XML word-processing document, and pulls it back out.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/jaywantadh/PixelVault/internal/fault"
	"github.com/jaywantadh/PixelVault/internal/raster"
)

// MimeType is the content type of a packed container.
const MimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Extension is the external file extension of a packed container.
const Extension = ".docx"

const mediaDir = "word/media/"

// emuPerPixel converts pixels at 96 DPI to English Metric Units.
const emuPerPixel = 9525

var (
	errNotArchive   = errors.New("not a zip archive")
	errAssetMissing = errors.New("asset not found")
	errAssetKey     = errors.New("asset key must live under " + mediaDir)
)

// AssetKey returns the well-known location of the raster image inside a
// container for the given image format.
func AssetKey(format raster.Format) string {
	return mediaDir + "image1." + format.Extension()
}

// Asset describes the image embedded in a container.
type Asset struct {
	Key    string
	Format raster.Format
	Width  int
	Height int
}

// Packer builds containers holding one image at a fixed key.
type Packer struct {
	asset Asset
}

// NewPacker returns a packer for images of the given format and pixel size.
func NewPacker(format raster.Format, width, height int) *Packer {
	return &Packer{asset: Asset{
		Key:    AssetKey(format),
		Format: format,
		Width:  width,
		Height: height,
	}}
}

// Key returns the internal asset key used by Pack.
func (p *Packer) Key() string { return p.asset.Key }

// Pack embeds image as the sole media part of a fresh document.
func (p *Packer) Pack(image []byte) ([]byte, error) {
	return Pack(image, p.asset)
}

// Unpack extracts the image from a container produced by Pack.
func (p *Packer) Unpack(doc []byte) ([]byte, error) {
	return Unpack(doc, p.asset.Key)
}

// Pack writes a document whose only picture is image, stored at
// asset.Key.
func Pack(image []byte, asset Asset) ([]byte, error) {
	if !strings.HasPrefix(asset.Key, mediaDir) || asset.Key == mediaDir {
		return nil, fmt.Errorf("%w: %q", errAssetKey, asset.Key)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name   string
		data   []byte
		method uint16
	}{
		{"[Content_Types].xml", contentTypes(asset), zip.Deflate},
		{"_rels/.rels", []byte(packageRels), zip.Deflate},
		{"word/document.xml", document(asset), zip.Deflate},
		{"word/_rels/document.xml.rels", documentRels(asset), zip.Deflate},
		// image formats carry their own compression; store as-is
		{asset.Key, image, zip.Store},
	}

	for _, part := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: part.name, Method: part.method})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish container: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack returns the bytes stored at key inside doc.
func Unpack(doc []byte, key string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, &fault.CorruptContainerError{Err: fmt.Errorf("%w: %v", errNotArchive, err)}
	}

	for _, f := range zr.File {
		if f.Name != key {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &fault.CorruptContainerError{Err: fmt.Errorf("failed to open %s: %w", key, err)}
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, &fault.CorruptContainerError{Err: fmt.Errorf("failed to read %s: %w", key, err)}
		}
		return data, nil
	}
	return nil, &fault.CorruptContainerError{Err: fmt.Errorf("%w: %s", errAssetMissing, key)}
}
