package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/onionshare/onionshare/internal/engine/sources"
	"github.com/onionshare/onionshare/internal/helpers"
)

var sizeCommand = &cli.Command{
	Name:  "size",
	Usage: "Print the total size of the regular files below a path",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "human",
			Usage: "Print a human-readable size (default when stdout is a terminal)",
		},
		&cli.BoolFlag{
			Name:  "bytes",
			Usage: "Print the size in bytes even on a terminal",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "path",
			UsageText: "The file or directory to measure",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		path := command.StringArg("path")
		if path == "" {
			return fmt.Errorf("no path provided")
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		size := info.Size()
		if info.IsDir() {
			size, err = sources.DirSizeOS(path)
			if err != nil {
				return err
			}
		}

		human := command.Bool("human") || (isInteractive(ctx) && !command.Bool("bytes"))
		if human {
			fmt.Println(helpers.HumanReadableFilesize(size))
		} else {
			fmt.Println(size)
		}
		return nil
	},
}
