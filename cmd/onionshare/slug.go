package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/onionshare/onionshare/internal/helpers"
)

var slugCommand = &cli.Command{
	Name:  "slug",
	Usage: "Print a random two-word slug",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "wordlist-dir",
			Usage: "Directory containing the wordlist file (default: next to the executable)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		res, err := helpers.ResourcesFromExecutable()
		if err != nil {
			return err
		}
		if dir := command.String("wordlist-dir"); dir != "" {
			res.Share = dir
		}

		slug, err := helpers.BuildSlug(afero.NewOsFs(), res, nil)
		if err != nil {
			return fmt.Errorf("failed to build slug: %w", err)
		}

		fmt.Println(slug)
		return nil
	},
}
