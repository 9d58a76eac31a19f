package pipeline

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jaywantadh/PixelVault/internal/fault"
	"github.com/jaywantadh/PixelVault/internal/manifest"
	"github.com/jaywantadh/PixelVault/internal/ordering"
	"github.com/jaywantadh/PixelVault/internal/progress"
	"github.com/jaywantadh/PixelVault/internal/storage"
)

var (
	errNoManifest     = errors.New("group has no manifest; the upload never completed")
	errDirtyPadding   = errors.New("padding bytes are not zero")
	errLengthMismatch = errors.New("reconstructed length does not match manifest")
)

// DecodeResult describes a completed reconstruction.
type DecodeResult struct {
	Manifest *manifest.Manifest
	Bytes    int64
}

type decodedBlock struct {
	index int
	data  []byte
}

// Decode reconstructs the group's original bytes into sink, strictly in
// sequence order. Bytes reach sink as blocks complete, so a failed decode
// may leave a prefix behind; DecodeFile publishes nothing on failure.
func (p *Pipeline) Decode(ctx context.Context, group storage.GroupHandle, sink io.Writer) (*DecodeResult, error) {
	log := p.log.WithField("group", group.ID)

	refs, err := p.store.ListContainers(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to list group %s: %w", group.ID, err)
	}

	var manifestRef *storage.ContainerRef
	containers := make([]storage.ContainerRef, 0, len(refs))
	for i := range refs {
		if refs[i].Name == manifest.Name {
			manifestRef = &refs[i]
			continue
		}
		containers = append(containers, refs[i])
	}
	if manifestRef == nil {
		return nil, fault.Corrupt(manifest.Name, errNoManifest)
	}

	m, err := p.loadManifest(ctx, *manifestRef)
	if err != nil {
		return nil, err
	}

	entries, err := ordering.Sort(containers, func(r storage.ContainerRef) string { return r.Name })
	if err != nil {
		return nil, err
	}
	if err := ordering.Contiguous(entries, m.BlockCount); err != nil {
		return nil, err
	}

	verify := !m.Converted
	if !verify {
		log.Warn("⚠️ group holds converted documents, skipping digest checks")
	}

	log.WithFields(logrus.Fields{"file": m.FileName, "containers": m.BlockCount}).Info("🔧 reconstructing")
	tracker := progress.NewTracker("decode", m.FileName, m.BlockCount, m.TotalLength, log)

	written, err := p.fetchOrdered(ctx, m, entries, verify, sink, tracker)
	if err == nil && written != m.TotalLength {
		err = fault.Corrupt("", fmt.Errorf("%w: wrote %d, expected %d", errLengthMismatch, written, m.TotalLength))
	}
	tracker.Finish(err)
	if err != nil {
		return nil, err
	}
	return &DecodeResult{Manifest: m, Bytes: written}, nil
}

func (p *Pipeline) loadManifest(ctx context.Context, ref storage.ContainerRef) (*manifest.Manifest, error) {
	data, err := p.store.FetchContainer(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ref.Name, err)
	}
	m, err := manifest.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := m.CheckCodec(p.codec, p.packer.Key()); err != nil {
		return nil, err
	}
	if err := m.CheckStore(rewrites(p.store)); err != nil {
		return nil, err
	}
	return m, nil
}

// fetchOrdered fetches and decodes containers concurrently, at most
// p.window ahead of the writer, and appends blocks to sink in index order.
// The calling goroutine owns the reorder buffer.
func (p *Pipeline) fetchOrdered(
	ctx context.Context,
	m *manifest.Manifest,
	entries []ordering.Entry[storage.ContainerRef],
	verify bool,
	sink io.Writer,
	tracker *progress.Tracker,
) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	slots := make(chan struct{}, p.window)
	results := make(chan decodedBlock, p.window)

	g.Go(func() error {
		for _, e := range entries {
			e := e
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			g.Go(func() error {
				data, err := p.decodeOne(gctx, m, e, verify)
				if err != nil {
					return err
				}
				select {
				case results <- decodedBlock{index: int(e.Index), data: data}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		return nil
	})

	var written int64
	var writeErr error
	pending := make(map[int][]byte, p.window)
	next := 0

drain:
	for next < len(entries) {
		select {
		case r := <-results:
			pending[r.index] = r.data
			for {
				data, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				n, err := sink.Write(data)
				written += int64(n)
				if err != nil {
					writeErr = fmt.Errorf("failed to write block %d: %w", next, err)
					cancel()
					break drain
				}
				tracker.Advance(int64(n))
				next++
				<-slots
			}
		case <-gctx.Done():
			break drain
		}
	}

	err := g.Wait()
	if writeErr != nil {
		return written, writeErr
	}
	if err != nil {
		return written, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && next < len(entries) {
		return written, ctxErr
	}
	return written, nil
}

// decodeOne fetches a container, checks it against the manifest and
// returns the real bytes of its block.
func (p *Pipeline) decodeOne(ctx context.Context, m *manifest.Manifest, e ordering.Entry[storage.ContainerRef], verify bool) ([]byte, error) {
	index := int(e.Index)
	doc, err := p.store.FetchContainer(ctx, e.Item)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", e.Name, err)
	}
	if verify {
		if err := m.Verify(index, e.Name, doc); err != nil {
			return nil, err
		}
	}

	image, err := p.packer.Unpack(doc)
	if err != nil {
		return nil, fault.Corrupt(e.Name, err)
	}
	block, err := p.codec.DecodeBlock(image)
	if err != nil {
		if errors.Is(err, fault.ErrCorrupt) {
			return nil, fault.Corrupt(e.Name, err)
		}
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}

	n := m.RealLength(index)
	for _, b := range block[n:] {
		if b != 0 {
			return nil, fault.Corrupt(e.Name, errDirtyPadding)
		}
	}
	return block[:n], nil
}

// DecodeFile reconstructs the group into outputPath. Data is written to a
// temporary file in the same directory and renamed into place only after
// the whole group decoded; on any failure the temporary file is removed
// and outputPath is left untouched.
func (p *Pipeline) DecodeFile(ctx context.Context, group storage.GroupHandle, outputPath string) (res *DecodeResult, err error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".partial-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary output: %w", err)
	}
	published := false
	defer func() {
		if !published {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriterSize(tmp, 1<<20)
	res, err = p.Decode(ctx, group, w)
	if err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return nil, fmt.Errorf("failed to publish output: %w", err)
	}
	published = true

	p.log.WithFields(logrus.Fields{"group": group.ID, "output": outputPath}).Infof("📝 wrote %d bytes", res.Bytes)
	return res, nil
}

// Verify decodes the group without keeping the output and returns the
// SHA-256 of the reconstruction.
func (p *Pipeline) Verify(ctx context.Context, group storage.GroupHandle) (string, *DecodeResult, error) {
	h := sha256.New()
	res, err := p.Decode(ctx, group, h)
	if err != nil {
		return "", nil, err
	}
	return hex.EncodeToString(h.Sum(nil)), res, nil
}
