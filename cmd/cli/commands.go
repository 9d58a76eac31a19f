package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/jaywantadh/PixelVault/config"
	"github.com/jaywantadh/PixelVault/internal/drive"
	"github.com/jaywantadh/PixelVault/internal/metadata"
	"github.com/jaywantadh/PixelVault/internal/pipeline"
	"github.com/jaywantadh/PixelVault/internal/raster"
	"github.com/jaywantadh/PixelVault/internal/storage"
	"github.com/jaywantadh/PixelVault/pkg/logging"
)

func openStore(ctx context.Context, cfg *config.AppConfig) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendDrive:
		oauthCfg, err := drive.OAuthConfig(cfg.Drive.CredentialsFile)
		if err != nil {
			return nil, err
		}
		ts, err := drive.TokenSource(ctx, oauthCfg, cfg.Drive.TokenFile, os.Stdin, os.Stdout)
		if err != nil {
			return nil, err
		}
		svc, err := drive.Dial(ctx, ts)
		if err != nil {
			return nil, err
		}
		return drive.New(svc, drive.Options{ConvertToDocs: cfg.Drive.ConvertToDocs, Logger: logging.Log}), nil
	default:
		return storage.NewLocalStore(cfg.Storage.Path)
	}
}

func newPipeline(cfg *config.AppConfig, store storage.Store) (*pipeline.Pipeline, error) {
	format, err := raster.ParseFormat(cfg.Raster.Format)
	if err != nil {
		return nil, err
	}
	codec, err := raster.NewCodec(cfg.Raster.Width, cfg.Raster.Height, format)
	if err != nil {
		return nil, err
	}
	return pipeline.New(store, pipeline.Options{
		Codec:   codec,
		Workers: cfg.Workers(),
		Window:  cfg.DecodeWindow,
		Logger:  logging.Log,
	})
}

func openPipeline(c *cli.Context) (*pipeline.Pipeline, error) {
	store, err := openStore(c.Context, config.Config)
	if err != nil {
		return nil, err
	}
	return newPipeline(config.Config, store)
}

// resolveGroup maps a group ID or key to a handle through the catalog.
// References the catalog has never seen are used as backend IDs as-is.
func resolveGroup(cfg *config.AppConfig, ref string) (storage.GroupHandle, error) {
	catalog, err := metadata.OpenCatalog(cfg.CatalogPath)
	if err != nil {
		return storage.GroupHandle{}, err
	}
	defer catalog.Close()

	rec, err := catalog.Resolve(ref)
	if errors.Is(err, metadata.ErrNotFound) {
		logging.Log.Debugf("%q not in catalog, using it as a group id", ref)
		return storage.GroupHandle{ID: ref}, nil
	}
	if err != nil {
		return storage.GroupHandle{}, err
	}
	if rec.Backend != cfg.Storage.Backend {
		logging.Log.Warnf("⚠️ group %s was uploaded to %s, current backend is %s", rec.GroupID, rec.Backend, cfg.Storage.Backend)
	}
	return storage.GroupHandle{ID: rec.GroupID, Key: rec.GroupKey}, nil
}

func uploadAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: pixelvault upload <file> [--group key]", 2)
	}
	p, err := openPipeline(c)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := p.EncodeFile(c.Context, c.Args().First(), c.String("group"))
	if err != nil {
		return err
	}

	catalog, err := metadata.OpenCatalog(config.Config.CatalogPath)
	if err != nil {
		return err
	}
	defer catalog.Close()
	m := res.Manifest
	rec := metadata.NewGroupRecord(res.Group.ID, res.Group.Key, config.Config.Storage.Backend, m.FileName, m.TotalLength, m.BlockCount, m.RunID)
	if err := catalog.Put(rec); err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}

	logging.Log.Infof("✅ uploaded %s (%s) as %d containers in %s",
		m.FileName, humanize.Bytes(uint64(m.TotalLength)), res.Containers, time.Since(start).Round(time.Millisecond))
	fmt.Println(res.Group.ID)
	return nil
}

func downloadAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: pixelvault download <group-id|group-key> <output>", 2)
	}
	group, err := resolveGroup(config.Config, c.Args().Get(0))
	if err != nil {
		return err
	}
	p, err := openPipeline(c)
	if err != nil {
		return err
	}

	res, err := p.DecodeFile(c.Context, group, c.Args().Get(1))
	if err != nil {
		return err
	}
	logging.Log.Infof("✅ restored %s (%s)", res.Manifest.FileName, humanize.Bytes(uint64(res.Bytes)))
	return nil
}

func listAction(c *cli.Context) error {
	store, err := openStore(c.Context, config.Config)
	if err != nil {
		return err
	}
	lister, ok := store.(storage.GroupLister)
	if !ok {
		return fmt.Errorf("backend %s cannot list groups", config.Config.Storage.Backend)
	}
	groups, err := lister.ListGroups(c.Context)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("No groups found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKEY")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\n", g.ID, g.Key)
	}
	return w.Flush()
}

func historyAction(c *cli.Context) error {
	catalog, err := metadata.OpenCatalog(config.Config.CatalogPath)
	if err != nil {
		return err
	}
	defer catalog.Close()

	records, err := catalog.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No uploads recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tKEY\tBACKEND\tSIZE\tCONTAINERS\tUPLOADED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.GroupID, r.GroupKey, r.Backend, humanize.Bytes(uint64(r.FileSize)), r.BlockCount,
			humanize.Time(time.Unix(r.CreatedAt, 0)))
	}
	return w.Flush()
}

func verifyAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: pixelvault verify <group-id|group-key> [--expect sha256]", 2)
	}
	group, err := resolveGroup(config.Config, c.Args().First())
	if err != nil {
		return err
	}
	p, err := openPipeline(c)
	if err != nil {
		return err
	}

	sum, res, err := p.Verify(c.Context, group)
	if err != nil {
		return err
	}
	if want := c.String("expect"); want != "" && !strings.EqualFold(want, sum) {
		return fmt.Errorf("digest mismatch: got %s, expected %s", sum, want)
	}
	logging.Log.Infof("✅ %s decodes cleanly (%s)", res.Manifest.FileName, humanize.Bytes(uint64(res.Bytes)))
	fmt.Printf("%s  %s\n", sum, res.Manifest.FileName)
	return nil
}
