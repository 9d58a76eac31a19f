// Package pipeline drives files through the block, raster and container
// stages into a store, and reverses the process.
package pipeline

import (
	"io"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/jaywantadh/PixelVault/internal/container"
	"github.com/jaywantadh/PixelVault/internal/raster"
	"github.com/jaywantadh/PixelVault/internal/storage"
)

// DefaultWindow bounds the number of decoded blocks held in memory while
// fetching in parallel.
const DefaultWindow = 4

// Options configures a Pipeline.
type Options struct {
	Codec raster.Codec
	// Workers is the number of concurrent encode workers. Zero picks
	// NumCPU/2.
	Workers int
	// Window is the number of containers fetched ahead of the ordered
	// writer during decode. Zero picks DefaultWindow.
	Window int
	Logger logrus.FieldLogger
}

// Pipeline encodes files into groups of containers and decodes them back.
// It holds no per-run state and may run several encodes or decodes at once.
type Pipeline struct {
	store   storage.Store
	codec   raster.Codec
	packer  *container.Packer
	workers int
	window  int
	log     logrus.FieldLogger
}

// New validates opts and returns a pipeline bound to store.
func New(store storage.Store, opts Options) (*Pipeline, error) {
	codec, err := raster.NewCodec(opts.Codec.Width, opts.Codec.Height, opts.Codec.Format)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() / 2
	}
	if workers < 1 {
		workers = 1
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}

	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		logger = l
	}

	return &Pipeline{
		store:   store,
		codec:   codec,
		packer:  container.NewPacker(codec.Format, codec.Width, codec.Height),
		workers: workers,
		window:  window,
		log:     logger,
	}, nil
}

// rewrites reports whether the store hands back containers that differ
// from the uploaded bytes.
func rewrites(s storage.Store) bool {
	rw, ok := s.(storage.Rewriter)
	return ok && rw.RewritesContainers()
}

// Codec returns the codec the pipeline writes and expects.
func (p *Pipeline) Codec() raster.Codec { return p.codec }
