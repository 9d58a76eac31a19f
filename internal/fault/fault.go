// Package fault holds the error taxonomy shared by the codec, the
// container packer and the pipeline. Callers match with errors.Is and
// errors.As; every value here aborts the current run.
package fault

import (
	"errors"
	"fmt"
)

// ConfigurationError signals a build or deployment defect: block sizes
// that do not line up, codec parameters that differ between writer and
// reader. Never retried.
type ConfigurationError string

func (e ConfigurationError) Error() string { return string(e) }

// common configuration errors
var (
	ErrInvalidBlockSize   = ConfigurationError("block size must be positive")
	ErrInvalidDimensions  = ConfigurationError("raster dimensions must be between 1 and 32768")
	ErrUnsupportedFormat  = ConfigurationError("unsupported image format")
	ErrBlockSizeMismatch  = ConfigurationError("block size does not match raster capacity")
	ErrRasterSizeMismatch = ConfigurationError("decoded raster dimensions do not match codec")
	ErrNotRestartable     = ConfigurationError("source cannot be restarted")
	ErrManifestMismatch   = ConfigurationError("group manifest parameters do not match codec")
	ErrManifestVersion    = ConfigurationError("unsupported manifest version")
)

// Configurationf builds an ad hoc ConfigurationError.
func Configurationf(format string, args ...interface{}) error {
	return ConfigurationError(fmt.Sprintf(format, args...))
}

// ErrCorrupt is the sentinel every CorruptContainerError matches via
// errors.Is.
var ErrCorrupt = errors.New("corrupt container")

// CorruptContainerError reports a container whose bytes cannot be turned
// back into a block: bad archive, missing asset, undecodable image or a
// digest that disagrees with the manifest.
type CorruptContainerError struct {
	Name string
	Err  error
}

func (e *CorruptContainerError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("corrupt container: %v", e.Err)
	}
	return fmt.Sprintf("corrupt container %q: %v", e.Name, e.Err)
}

func (e *CorruptContainerError) Unwrap() error { return e.Err }

func (e *CorruptContainerError) Is(target error) bool { return target == ErrCorrupt }

// Corrupt wraps err as a CorruptContainerError. When err already is one
// the name is filled in if it was unknown at the point of failure.
func Corrupt(name string, err error) error {
	var cc *CorruptContainerError
	if errors.As(err, &cc) {
		if cc.Name == "" {
			return &CorruptContainerError{Name: name, Err: cc.Err}
		}
		return err
	}
	return &CorruptContainerError{Name: name, Err: err}
}

// ErrInvalidName is matched by every InvalidNameError.
var ErrInvalidName = errors.New("invalid container name")

// InvalidNameError reports an object in a group whose name is outside
// the generated format.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid container name %q", e.Name)
}

func (e *InvalidNameError) Is(target error) bool { return target == ErrInvalidName }

// TransportError wraps a failure of the remote store. The underlying
// error is preserved for errors.As / errors.Is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err unless it already carries a TransportError.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
