package metadata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog"))
	require.NoError(t, err, "failed to open catalog")
	t.Cleanup(func() { catalog.Close() })
	return catalog
}

func TestCatalogCRUD(t *testing.T) {
	catalog := openTestCatalog(t)

	rec := NewGroupRecord("a1b2", "testfile.txt", "local", "testfile.txt", 12345, 3, "run-1")
	require.NoError(t, catalog.Put(rec))

	got, err := catalog.Get("a1b2")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	byKey, err := catalog.FindByKey("testfile.txt")
	require.NoError(t, err)
	assert.Equal(t, rec, byKey)

	_, err = catalog.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = catalog.FindByKey("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogLatestUploadOwnsKey(t *testing.T) {
	catalog := openTestCatalog(t)

	first := NewGroupRecord("g1", "report.pdf", "drive", "report.pdf", 10, 1, "run-1")
	first.CreatedAt = 100
	second := NewGroupRecord("g2", "report.pdf", "drive", "report.pdf", 20, 1, "run-2")
	second.CreatedAt = 200
	require.NoError(t, catalog.Put(first))
	require.NoError(t, catalog.Put(second))

	got, err := catalog.Resolve("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "g2", got.GroupID)

	got, err = catalog.Resolve("g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GroupID)

	all, err := catalog.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "g2", all[0].GroupID)
	assert.Equal(t, "g1", all[1].GroupID)
}

func TestCatalogRejectsMissingID(t *testing.T) {
	catalog := openTestCatalog(t)
	assert.Error(t, catalog.Put(GroupRecord{GroupKey: "x"}))
}
