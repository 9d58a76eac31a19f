package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jaywantadh/PixelVault/internal/chunker"
	"github.com/jaywantadh/PixelVault/internal/fault"
	"github.com/jaywantadh/PixelVault/internal/manifest"
	"github.com/jaywantadh/PixelVault/internal/ordering"
	"github.com/jaywantadh/PixelVault/internal/progress"
	"github.com/jaywantadh/PixelVault/internal/storage"
)

// EncodeRequest describes one upload.
type EncodeRequest struct {
	Source io.Reader
	// Size is the expected source length, used for progress and checked
	// once the source is drained. Negative when unknown.
	Size     int64
	FileName string
	// GroupKey names the group; FileName is used when empty.
	GroupKey string
}

// EncodeResult describes a sealed group.
type EncodeResult struct {
	Group      storage.GroupHandle
	Manifest   *manifest.Manifest
	Containers int
}

// EncodeFile uploads the file at path. The group key defaults to the
// file's base name.
func (p *Pipeline) EncodeFile(ctx context.Context, path, groupKey string) (*EncodeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return p.Encode(ctx, EncodeRequest{
		Source:   f,
		Size:     info.Size(),
		FileName: filepath.Base(path),
		GroupKey: groupKey,
	})
}

// Encode splits the source into blocks, turns every block into a
// container and uploads it, then seals the group with its manifest. Any
// failure aborts the run; containers already uploaded stay in the group,
// which remains unsealed.
func (p *Pipeline) Encode(ctx context.Context, req EncodeRequest) (*EncodeResult, error) {
	key := req.GroupKey
	if key == "" {
		key = req.FileName
	}
	if key == "" {
		return nil, errors.New("group key or file name is required")
	}

	splitter, err := chunker.NewSplitter(req.Source, p.codec.BlockSize())
	if err != nil {
		return nil, err
	}

	group, err := p.store.CreateGroup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create group %q: %w", key, err)
	}

	log := p.log.WithFields(logrus.Fields{"group": group.ID, "key": key})
	log.Infof("🚀 encoding %s into %dx%d %s rasters", req.FileName, p.codec.Width, p.codec.Height, p.codec.Format)

	expected := 0
	if req.Size >= 0 {
		expected = chunker.BlockCount(req.Size, p.codec.BlockSize())
	}
	tracker := progress.NewTracker("encode", req.FileName, expected, req.Size, log)

	digests, blocks, err := p.encodeBlocks(ctx, splitter, group, log, tracker)
	if err != nil {
		tracker.Finish(err)
		log.Warn("⚠️ group left unsealed")
		return nil, err
	}

	length := splitter.BytesRead()
	if req.Size >= 0 && length != req.Size {
		err := fmt.Errorf("source changed while reading: expected %d bytes, read %d", req.Size, length)
		tracker.Finish(err)
		return nil, err
	}

	m := manifest.New(uuid.NewString(), req.FileName, p.codec, p.packer.Key(), length)
	m.Converted = rewrites(p.store)
	if m.BlockCount != blocks {
		err := fault.Configurationf("produced %d blocks, manifest expects %d", blocks, m.BlockCount)
		tracker.Finish(err)
		return nil, err
	}
	for i := range m.Digests {
		m.Digests[i] = digests[i]
	}

	if err := p.seal(ctx, group, m); err != nil {
		tracker.Finish(err)
		return nil, err
	}
	tracker.Finish(nil)

	return &EncodeResult{Group: group, Manifest: m, Containers: blocks}, nil
}

// encodeBlocks fans blocks out to the worker pool. Indices come from the
// splitter, so workers may finish in any order.
func (p *Pipeline) encodeBlocks(
	ctx context.Context,
	splitter *chunker.Splitter,
	group storage.GroupHandle,
	log logrus.FieldLogger,
	tracker *progress.Tracker,
) (map[int][]byte, int, error) {
	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan chunker.Block, p.workers*2)

	var mu sync.Mutex
	digests := make(map[int][]byte)
	produced := 0

	g.Go(func() error {
		defer close(tasks)
		for {
			block, err := splitter.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			produced++
			select {
			case tasks <- block:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for block := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}
				name, digest, err := p.encodeOne(gctx, group, block)
				if err != nil {
					return fmt.Errorf("block %d: %w", block.Index, err)
				}
				log.WithFields(logrus.Fields{"container": name, "index": block.Index}).Debug("uploaded container")

				mu.Lock()
				digests[block.Index] = digest
				mu.Unlock()
				tracker.Advance(int64(block.Real))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return digests, produced, nil
}

// encodeOne runs a single block through raster, image and container
// encoding and hands the container to the store.
func (p *Pipeline) encodeOne(ctx context.Context, group storage.GroupHandle, block chunker.Block) (string, []byte, error) {
	name, err := ordering.NameFor(ordering.Index(block.Index))
	if err != nil {
		return "", nil, err
	}
	image, err := p.codec.EncodeBlock(block.Data)
	if err != nil {
		return name, nil, err
	}
	doc, err := p.packer.Pack(image)
	if err != nil {
		return name, nil, err
	}
	if err := p.store.UploadContainer(ctx, group, name, doc); err != nil {
		return name, nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return name, manifest.Digest(doc), nil
}

func (p *Pipeline) seal(ctx context.Context, group storage.GroupHandle, m *manifest.Manifest) error {
	data, err := manifest.Marshal(m)
	if err != nil {
		return err
	}
	if err := p.store.UploadContainer(ctx, group, manifest.Name, data); err != nil {
		return fmt.Errorf("failed to upload manifest: %w", err)
	}
	return nil
}
