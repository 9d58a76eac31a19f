// Package manifest defines the parameter record stamped on every group.
//
// The manifest is uploaded after the last container and acts as the
// group's seal: it records the codec parameters the containers were
// written with, the exact source length and a digest per container.
// Readers validate it before fetching any container.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/jaywantadh/PixelVault/internal/chunker"
	"github.com/jaywantadh/PixelVault/internal/fault"
	"github.com/jaywantadh/PixelVault/internal/raster"
)

// Name is the reserved object name of a group's manifest.
const Name = "manifest.cbor"

// Version is the current manifest format version.
const Version = 1

var errDigestMismatch = errors.New("container digest does not match manifest")

// Manifest describes one encode run.
type Manifest struct {
	Version          int      `cbor:"1,keyasint"`
	RunID            string   `cbor:"2,keyasint"`
	FileName         string   `cbor:"3,keyasint"`
	Width            int      `cbor:"4,keyasint"`
	Height           int      `cbor:"5,keyasint"`
	Channels         int      `cbor:"6,keyasint"`
	Format           string   `cbor:"7,keyasint"`
	AssetKey         string   `cbor:"8,keyasint"`
	BlockSize        int      `cbor:"9,keyasint"`
	TotalLength      int64    `cbor:"10,keyasint"`
	BlockCount       int      `cbor:"11,keyasint"`
	FinalBlockLength int      `cbor:"12,keyasint"`
	Digests          [][]byte `cbor:"13,keyasint"`
	CreatedAt        int64    `cbor:"14,keyasint"`
	// Converted is set when the store rebuilds containers on the way back,
	// so their bytes never match the recorded digests.
	Converted bool `cbor:"15,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("manifest: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("manifest: CBOR decoder initialization failed: " + err.Error())
	}
}

// New returns a manifest for a source of the given length written with
// codec. Digests are filled in by the caller as containers are packed.
func New(runID, fileName string, codec raster.Codec, assetKey string, length int64) *Manifest {
	blockSize := codec.BlockSize()
	count := chunker.BlockCount(length, blockSize)
	return &Manifest{
		Version:          Version,
		RunID:            runID,
		FileName:         fileName,
		Width:            codec.Width,
		Height:           codec.Height,
		Channels:         raster.Channels,
		Format:           string(codec.Format),
		AssetKey:         assetKey,
		BlockSize:        blockSize,
		TotalLength:      length,
		BlockCount:       count,
		FinalBlockLength: chunker.FinalBlockLength(length, blockSize),
		Digests:          make([][]byte, count),
		CreatedAt:        time.Now().Unix(),
	}
}

// Digest returns the BLAKE2b-256 digest of a packed container.
func Digest(container []byte) []byte {
	sum := blake2b.Sum256(container)
	return sum[:]
}

// Marshal encodes m with CBOR Core Deterministic Encoding.
func Marshal(m *Manifest) ([]byte, error) {
	data, err := encMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// Unmarshal decodes and validates a manifest. Undecodable bytes are a
// corrupt container; an unknown version is a configuration error.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, fault.Corrupt(Name, fmt.Errorf("decoding manifest: %w", err))
	}
	if m.Version != Version {
		return nil, fmt.Errorf("%w: %d", fault.ErrManifestVersion, m.Version)
	}
	if err := m.Validate(); err != nil {
		return nil, fault.Corrupt(Name, err)
	}
	return &m, nil
}

// Validate checks that the manifest is internally consistent.
func (m *Manifest) Validate() error {
	if m.Width <= 0 || m.Height <= 0 || m.Width > raster.MaxDimension || m.Height > raster.MaxDimension {
		return fmt.Errorf("dimensions %dx%d are invalid", m.Width, m.Height)
	}
	if m.Channels != raster.Channels {
		return fmt.Errorf("channel count %d is invalid (want %d)", m.Channels, raster.Channels)
	}
	if m.BlockSize != m.Width*m.Height*m.Channels {
		return fmt.Errorf("block size %d does not match %dx%dx%d", m.BlockSize, m.Width, m.Height, m.Channels)
	}
	if m.TotalLength < 0 {
		return fmt.Errorf("total length %d is negative", m.TotalLength)
	}
	if want := chunker.BlockCount(m.TotalLength, m.BlockSize); m.BlockCount != want {
		return fmt.Errorf("block count %d, expected %d for %d bytes", m.BlockCount, want, m.TotalLength)
	}
	if want := chunker.FinalBlockLength(m.TotalLength, m.BlockSize); m.FinalBlockLength != want {
		return fmt.Errorf("final block length %d, expected %d", m.FinalBlockLength, want)
	}
	if len(m.Digests) != m.BlockCount {
		return fmt.Errorf("%d digests for %d blocks", len(m.Digests), m.BlockCount)
	}
	for i, d := range m.Digests {
		if len(d) != blake2b.Size256 {
			return fmt.Errorf("digest %d has length %d", i, len(d))
		}
	}
	return nil
}

// CheckCodec fails with a configuration error when the manifest was not
// written with codec and assetKey.
func (m *Manifest) CheckCodec(codec raster.Codec, assetKey string) error {
	switch {
	case m.Width != codec.Width || m.Height != codec.Height:
		return fmt.Errorf("%w: group raster is %dx%d, reader uses %dx%d",
			fault.ErrManifestMismatch, m.Width, m.Height, codec.Width, codec.Height)
	case m.Format != string(codec.Format):
		return fmt.Errorf("%w: group format is %s, reader uses %s",
			fault.ErrManifestMismatch, m.Format, codec.Format)
	case m.AssetKey != assetKey:
		return fmt.Errorf("%w: group asset key is %s, reader uses %s",
			fault.ErrManifestMismatch, m.AssetKey, assetKey)
	}
	return nil
}

// CheckStore fails with a configuration error when the reader's store
// disagrees with the writer's about rewriting containers.
func (m *Manifest) CheckStore(rewrites bool) error {
	if m.Converted == rewrites {
		return nil
	}
	if m.Converted {
		return fmt.Errorf("%w: group was written as converted documents, reader fetches them unconverted",
			fault.ErrManifestMismatch)
	}
	return fmt.Errorf("%w: group was written unconverted, reader expects converted documents",
		fault.ErrManifestMismatch)
}

// Verify compares a fetched container against the recorded digest.
func (m *Manifest) Verify(index int, name string, container []byte) error {
	if index < 0 || index >= len(m.Digests) {
		return fault.Corrupt(name, fmt.Errorf("index %d outside manifest", index))
	}
	if !bytes.Equal(Digest(container), m.Digests[index]) {
		return fault.Corrupt(name, errDigestMismatch)
	}
	return nil
}

// RealLength returns the number of source bytes carried by block index.
func (m *Manifest) RealLength(index int) int {
	if index == m.BlockCount-1 {
		return m.FinalBlockLength
	}
	return m.BlockSize
}
