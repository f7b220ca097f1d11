package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	v1 "github.com/onionshare/onionshare/apis/v1"
	"github.com/onionshare/onionshare/internal/helpers"
	"github.com/onionshare/onionshare/internal/runner"
)

func allowedEnvFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "allowed-env",
		Usage: "Environment variables allowed in share configuration (can be repeated)",
	}
}

var shareCommand = &cli.Command{
	Name:  "share",
	Usage: "Build the archive described by a share file and publish it",
	Flags: []cli.Flag{
		allowedEnvFlag(),
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "share",
			UsageText: "The share file, or - to read it from stdin",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		filename := command.StringArg("share")
		if filename == "" {
			return fmt.Errorf("no share file provided")
		}
		logger = logger.With(zap.String("share_filename", filename))

		cfg, err := loadShare(logger, filename, command.StringSlice("allowed-env"))
		if err != nil {
			return err
		}

		output := cfg.Spec.Output
		if output != nil && output.Sink != nil && output.Sink.Stdout != nil && isInteractive(ctx) {
			return fmt.Errorf("refusing to write a ZIP archive to a terminal, redirect stdout or pick another sink")
		}

		r, err := runner.New(ctx, logger.Named("runner"), cfg)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		result, err := r.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to run share: %w", err)
		}

		if output == nil || output.Sink == nil || output.Sink.Stdout == nil {
			fmt.Printf("%s (%d files, %s)\n", result.Path, result.Entries, helpers.HumanReadableFilesize(result.Size))
		}

		return nil
	},
}

// loadShare reads, validates and expands a share file.
func loadShare(logger *zap.Logger, filename string, allowedEnv []string) (v1.ShareConfig, error) {
	data, err := readShareFile(filename)
	if err != nil {
		return v1.ShareConfig{}, fmt.Errorf("failed to read share file '%s': %w", filename, err)
	}

	cfg, err := runner.ParseShareConfig(data)
	if err != nil {
		return v1.ShareConfig{}, formatValidationError(err)
	}

	cfg, err = runner.Prepare(logger, afero.NewOsFs(), cfg, allowedEnv)
	if err != nil {
		return v1.ShareConfig{}, err
	}

	return cfg, nil
}

func readShareFile(filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filename)
}
