package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

func names(refs []ContainerRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Name
	}
	return out
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, "holiday.mov")
	require.NoError(t, err)
	assert.Equal(t, "holiday.mov", g.Key)
	assert.NotEmpty(t, g.ID)

	require.NoError(t, s.UploadContainer(ctx, g, "0000000001.docx", []byte("second")))
	require.NoError(t, s.UploadContainer(ctx, g, "0000000000.docx", []byte("first")))

	refs, err := s.ListContainers(ctx, g)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0000000000.docx", "0000000001.docx"}, names(refs))

	for _, ref := range refs {
		data, err := s.FetchContainer(ctx, ref)
		require.NoError(t, err)
		if ref.Name == "0000000000.docx" {
			assert.Equal(t, []byte("first"), data)
		} else {
			assert.Equal(t, []byte("second"), data)
		}
	}

	_, err = s.FetchContainer(ctx, ContainerRef{Name: "x", Handle: g.ID + "/0000000009.docx"})
	var te *fault.TransportError
	assert.True(t, errors.As(err, &te))

	lister, ok := s.(GroupLister)
	require.True(t, ok)
	groups, err := lister.ListGroups(ctx)
	require.NoError(t, err)
	assert.Contains(t, groups, g)
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "groups"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(ListAscending))
}

func TestLocalStoreHidesBookkeepingFiles(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStore(base)
	require.NoError(t, err)

	ctx := context.Background()
	g, err := s.CreateGroup(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(base, g.ID, ".upload-123"), []byte("partial"), 0644))
	require.NoError(t, s.UploadContainer(ctx, g, "0000000000.docx", []byte("x")))

	refs, err := s.ListContainers(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"0000000000.docx"}, names(refs))
}

func TestLocalStoreRejectsBadInput(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	var te *fault.TransportError
	_, err = s.ListContainers(ctx, GroupHandle{ID: "../../etc"})
	assert.True(t, errors.As(err, &te))

	g, err := s.CreateGroup(ctx, "k")
	require.NoError(t, err)
	err = s.UploadContainer(ctx, g, "../escape.docx", []byte("x"))
	assert.True(t, errors.As(err, &te))
}

func TestMemoryStoreListOrders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ListReverse)
	g, err := s.CreateGroup(ctx, "k")
	require.NoError(t, err)
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, s.UploadContainer(ctx, g, n, []byte(n)))
	}
	refs, err := s.ListContainers(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, names(refs))

	require.NoError(t, s.Replace(g, "b", []byte("B")))
	data, err := s.FetchContainer(ctx, ContainerRef{Handle: g.ID + "/b"})
	require.NoError(t, err)
	assert.Equal(t, []byte("B"), data)

	s.Delete(g, "b")
	refs, err = s.ListContainers(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, names(refs))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore(ListAscending).CreateGroup(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
