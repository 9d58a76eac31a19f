package fault

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationErrorIsComparable(t *testing.T) {
	err := fmt.Errorf("splitting: %w", ErrInvalidBlockSize)
	assert.True(t, errors.Is(err, ErrInvalidBlockSize))

	var ce ConfigurationError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "block size must be positive", ce.Error())
}

func TestCorruptFillsMissingName(t *testing.T) {
	inner := &CorruptContainerError{Err: io.ErrUnexpectedEOF}
	err := Corrupt("0000000002.docx", inner)

	var cc *CorruptContainerError
	if assert.True(t, errors.As(err, &cc)) {
		assert.Equal(t, "0000000002.docx", cc.Name)
	}
	assert.True(t, errors.Is(err, ErrCorrupt))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	// an existing name is kept
	named := Corrupt("other.docx", err)
	assert.True(t, errors.As(named, &cc))
	assert.Equal(t, "0000000002.docx", cc.Name)
}

func TestInvalidName(t *testing.T) {
	err := fmt.Errorf("sorting: %w", &InvalidNameError{Name: "notes.txt"})
	assert.True(t, errors.Is(err, ErrInvalidName))
	assert.Contains(t, err.Error(), "notes.txt")
}

func TestTransportPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transport("upload", cause)
	assert.True(t, errors.Is(err, cause))

	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "upload", te.Op)

	assert.Same(t, err, Transport("fetch", err))
	assert.Nil(t, Transport("noop", nil))
}
