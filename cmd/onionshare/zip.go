package main

import (
	"context"
	"fmt"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/onionshare/onionshare/internal/engine/archivers"
)

var zipCommand = &cli.Command{
	Name:      "zip",
	Usage:     "Archive files and directories without a share file",
	ArgsUsage: "PATH...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Archive path (default: onionshare_<random>.zip in a new temporary directory)",
		},
		&cli.IntFlag{
			Name:  "level",
			Value: flate.DefaultCompression,
			Usage: "Deflate level, from -2 (huffman only) to 9 (best compression)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		paths := command.Args().Slice()
		if len(paths) == 0 {
			return fmt.Errorf("no paths provided")
		}

		opts := []archivers.ZipOption{
			archivers.WithLogger(logger.Named("zip")),
			archivers.WithCompressionLevel(int(command.Int("level"))),
		}
		if output := command.String("output"); output != "" {
			opts = append(opts, archivers.WithPath(output))
		}

		archiver, err := archivers.NewZipArchiver(opts...)
		if err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
		defer archiver.Close()

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}

			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}

			if info.IsDir() {
				err = archiver.AddDir(path)
			} else {
				err = archiver.AddFile(path)
			}
			if err != nil {
				return err
			}
		}

		if err := archiver.Close(); err != nil {
			return err
		}

		logger.Debug("archive written", zap.String("path", archiver.Path()), zap.Int("entries", archiver.Entries()))
		fmt.Println(archiver.Path())
		return nil
	},
}
