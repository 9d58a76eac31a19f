package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/jaywantadh/PixelVault/config"
	"github.com/jaywantadh/PixelVault/pkg/env"
	"github.com/jaywantadh/PixelVault/pkg/logging"
)

func main() {
	env.LoadEnv()
	logging.InitLogger(false)

	app := &cli.App{
		Name:  "pixelvault",
		Usage: "Store arbitrary files as sequences of image-bearing documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "directory containing config.yaml",
				Value: env.GetEnv("PIXELVAULT_CONFIG_DIR", "./config"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "storage backend override (local|drive)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:        "upload",
				Aliases:     []string{"u"},
				Usage:       "Encode a file and upload it as a new group",
				Description: "On the drive backend containers count against the storage quota unless drive.convert_to_docs is set.",
				ArgsUsage:   "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "group key (defaults to the file name)"},
				},
				Action: uploadAction,
			},
			{
				Name:      "download",
				Aliases:   []string{"d"},
				Usage:     "Reconstruct a group into a file",
				ArgsUsage: "<group-id|group-key> <output>",
				Action:    downloadAction,
			},
			{
				Name:   "list",
				Usage:  "List the groups known to the backend",
				Action: listAction,
			},
			{
				Name:   "history",
				Usage:  "List uploads recorded in the local catalog",
				Action: historyAction,
			},
			{
				Name:      "verify",
				Usage:     "Decode a group without writing it and print its SHA-256",
				ArgsUsage: "<group-id|group-key>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "expect", Usage: "fail unless the digest matches this hex SHA-256"},
				},
				Action: verifyAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logging.Log.Fatal(err)
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("backend") {
		cfg.Storage.Backend = c.String("backend")
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.Config = cfg

	logging.InitLogger(cfg.Debug)
	for _, w := range cfg.Warnings() {
		logging.Log.Warn("⚠️ " + w)
	}
	logging.Log.Debugf("⚙️ backend=%s raster=%dx%d/%s", cfg.Storage.Backend, cfg.Raster.Width, cfg.Raster.Height, cfg.Raster.Format)
	return nil
}
