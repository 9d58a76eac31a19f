package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jaywantadh/PixelVault/config"
	"github.com/jaywantadh/PixelVault/internal/metadata"
	"github.com/jaywantadh/PixelVault/internal/pipeline"
	"github.com/jaywantadh/PixelVault/internal/raster"
	"github.com/jaywantadh/PixelVault/internal/storage"
	"github.com/jaywantadh/PixelVault/pkg/logging"
)

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func main() {
	inputPath := flag.String("in", filepath.Join("samples", "ABC.pdf"), "file to round-trip")
	workDir := flag.String("work", "manualtest_out", "scratch directory")
	flag.Parse()

	if _, err := os.Stat(*inputPath); err != nil {
		fmt.Printf("❌ Sample file not found: %v\n", err)
		return
	}

	config.LoadConfig("./config")
	logging.InitLogger(config.Config.Debug)

	origHash, err := sha256File(*inputPath)
	if err != nil {
		fmt.Printf("❌ Failed hashing original: %v\n", err)
		return
	}
	fmt.Printf("📄 Original file: %s\n", *inputPath)
	fmt.Printf("🔑 Original SHA256: %s\n", origHash)

	// Fresh store and catalog
	_ = os.RemoveAll(*workDir)
	store, err := storage.NewLocalStore(filepath.Join(*workDir, "groups"))
	if err != nil {
		fmt.Printf("❌ Storage init failed: %v\n", err)
		return
	}
	catalog, err := metadata.OpenCatalog(filepath.Join(*workDir, "catalog"))
	if err != nil {
		fmt.Printf("❌ Catalog init failed: %v\n", err)
		return
	}
	defer catalog.Close()

	format, err := raster.ParseFormat(config.Config.Raster.Format)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	codec, err := raster.NewCodec(config.Config.Raster.Width, config.Config.Raster.Height, format)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	p, err := pipeline.New(store, pipeline.Options{
		Codec:   codec,
		Workers: config.Config.Workers(),
		Window:  config.Config.DecodeWindow,
		Logger:  logging.Log,
	})
	if err != nil {
		fmt.Printf("❌ Pipeline init failed: %v\n", err)
		return
	}

	ctx := context.Background()
	res, err := p.EncodeFile(ctx, *inputPath, "")
	if err != nil {
		fmt.Printf("❌ Encode failed: %v\n", err)
		return
	}
	m := res.Manifest
	if err := catalog.Put(metadata.NewGroupRecord(res.Group.ID, res.Group.Key, config.BackendLocal, m.FileName, m.TotalLength, m.BlockCount, m.RunID)); err != nil {
		fmt.Printf("❌ Catalog write failed: %v\n", err)
		return
	}
	fmt.Printf("🧩 Containers created: %d | Group: %s\n", res.Containers, res.Group.ID)

	// Decode via the catalog key, as the CLI does
	rec, err := catalog.Resolve(res.Group.Key)
	if err != nil {
		fmt.Printf("❌ Catalog lookup failed: %v\n", err)
		return
	}
	outPath := filepath.Join(*workDir, "restored", filepath.Base(*inputPath))
	if _, err := p.DecodeFile(ctx, storage.GroupHandle{ID: rec.GroupID, Key: rec.GroupKey}, outPath); err != nil {
		fmt.Printf("❌ Decode failed: %v\n", err)
		return
	}

	reHash, err := sha256File(outPath)
	if err != nil {
		fmt.Printf("❌ Failed hashing restored file: %v\n", err)
		return
	}
	fmt.Printf("📦 Restored file: %s\n", outPath)
	fmt.Printf("🔑 Restored SHA256: %s\n", reHash)

	if reHash == origHash {
		fmt.Println("✅ SUCCESS: Restored file matches original")
	} else {
		fmt.Println("❌ MISMATCH: Restored file differs from original")
	}
}
