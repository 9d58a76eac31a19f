package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaywantadh/PixelVault/internal/fault"
	"github.com/jaywantadh/PixelVault/internal/raster"
)

func testManifest(t *testing.T, length int64) (*Manifest, raster.Codec) {
	t.Helper()
	codec, err := raster.NewCodec(4, 4, raster.FormatPNG)
	require.NoError(t, err)
	m := New("run-1", "notes.txt", codec, "word/media/image1.png", length)
	for i := range m.Digests {
		m.Digests[i] = Digest([]byte{byte(i)})
	}
	return m, codec
}

func TestNewRecordsLengths(t *testing.T) {
	tests := []struct {
		length     int64
		wantBlocks int
		wantFinal  int
	}{
		{0, 1, 0},
		{1, 1, 1},
		{48, 1, 48},
		{2*48 + 17, 3, 17},
	}
	for _, tt := range tests {
		m, _ := testManifest(t, tt.length)
		assert.Equal(t, tt.wantBlocks, m.BlockCount, "length %d", tt.length)
		assert.Equal(t, tt.wantFinal, m.FinalBlockLength, "length %d", tt.length)
		assert.Equal(t, tt.wantFinal, m.RealLength(m.BlockCount-1))
		assert.NoError(t, m.Validate())
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	m, _ := testManifest(t, 2*48+17)

	data, err := Marshal(m)
	require.NoError(t, err)

	again, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding is deterministic")

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	m.Converted = true
	data, err = Marshal(m)
	require.NoError(t, err)
	got, err = Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, got.Converted)
}

func TestUnmarshalGarbageIsCorrupt(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0x00, 0x13})
	var cc *fault.CorruptContainerError
	require.True(t, errors.As(err, &cc))
	assert.Equal(t, Name, cc.Name)
}

func TestUnmarshalUnknownVersion(t *testing.T) {
	m, _ := testManifest(t, 5)
	m.Version = 2
	data, err := Marshal(m)
	require.NoError(t, err)

	_, err = Unmarshal(data)
	assert.True(t, errors.Is(err, fault.ErrManifestVersion))
}

func TestValidateCatchesInconsistency(t *testing.T) {
	m, _ := testManifest(t, 100)
	m.FinalBlockLength = 3
	assert.Error(t, m.Validate())

	m, _ = testManifest(t, 100)
	m.Digests = m.Digests[:1]
	assert.Error(t, m.Validate())

	m, _ = testManifest(t, 100)
	m.BlockSize = 47
	assert.Error(t, m.Validate())
}

func TestOversizedDimensionsAreCorrupt(t *testing.T) {
	m, _ := testManifest(t, 100)
	// the product wraps to the recorded block size on 64-bit ints
	m.Width = 1 << 32
	m.Height = 1 << 32
	m.Channels = 3
	m.BlockSize = 0
	assert.Error(t, m.Validate())

	m, _ = testManifest(t, 100)
	m.Width = raster.MaxDimension + 1
	assert.Error(t, m.Validate())

	data, err := Marshal(m)
	require.NoError(t, err)
	_, err = Unmarshal(data)
	assert.True(t, errors.Is(err, fault.ErrCorrupt))
}

func TestCheckStore(t *testing.T) {
	m, _ := testManifest(t, 10)
	assert.NoError(t, m.CheckStore(false))
	assert.True(t, errors.Is(m.CheckStore(true), fault.ErrManifestMismatch))

	m.Converted = true
	assert.NoError(t, m.CheckStore(true))
	err := m.CheckStore(false)
	var ce fault.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestCheckCodec(t *testing.T) {
	m, codec := testManifest(t, 10)
	assert.NoError(t, m.CheckCodec(codec, "word/media/image1.png"))

	other, err := raster.NewCodec(8, 2, raster.FormatPNG)
	require.NoError(t, err)
	assert.True(t, errors.Is(m.CheckCodec(other, "word/media/image1.png"), fault.ErrManifestMismatch))

	bmp, err := raster.NewCodec(4, 4, raster.FormatBMP)
	require.NoError(t, err)
	assert.True(t, errors.Is(m.CheckCodec(bmp, "word/media/image1.png"), fault.ErrManifestMismatch))
	assert.True(t, errors.Is(m.CheckCodec(codec, "word/media/image1.bmp"), fault.ErrManifestMismatch))
}

func TestVerify(t *testing.T) {
	m, _ := testManifest(t, 100)
	assert.NoError(t, m.Verify(1, "0000000001.docx", []byte{1}))

	err := m.Verify(1, "0000000001.docx", []byte{2})
	var cc *fault.CorruptContainerError
	require.True(t, errors.As(err, &cc))
	assert.Equal(t, "0000000001.docx", cc.Name)

	assert.Error(t, m.Verify(5, "0000000005.docx", []byte{5}))
}
