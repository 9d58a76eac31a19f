package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Raster.Width)
	assert.Equal(t, 2000, cfg.Raster.Height)
	assert.Equal(t, "png", cfg.Raster.Format)
	assert.Equal(t, 2, cfg.ParallelismRatio)
	assert.Equal(t, 4, cfg.DecodeWindow)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "./data/groups", cfg.Storage.Path)
	assert.Equal(t, "./data/catalog", cfg.CatalogPath)
	assert.Equal(t, "token.json", cfg.Drive.TokenFile)
	assert.False(t, cfg.Drive.ConvertToDocs)
	assert.GreaterOrEqual(t, cfg.Workers(), 1)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
raster:
  width: 640
  height: 480
  format: tiff
storage:
  backend: drive
drive:
  convert_to_docs: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("PIXELVAULT_RASTER_HEIGHT", "360")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Raster.Width)
	assert.Equal(t, 360, cfg.Raster.Height)
	assert.Equal(t, "tiff", cfg.Raster.Format)
	assert.Equal(t, BackendDrive, cfg.Storage.Backend)
	assert.True(t, cfg.Drive.ConvertToDocs)
}

func TestWarningsFlagUnconvertedDrive(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings())

	cfg.Storage.Backend = BackendDrive
	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "quota")

	cfg.Drive.ConvertToDocs = true
	assert.Empty(t, cfg.Warnings())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"zero width":      "raster:\n  width: 0\n",
		"unknown backend": "storage:\n  backend: ftp\n",
		"zero ratio":      "parallelism_ratio: 0\n",
	}
	for name, yaml := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}
