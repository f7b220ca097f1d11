package main

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/klauspost/compress/flate"
	"github.com/urfave/cli/v3"

	"github.com/onionshare/onionshare/internal/helpers"
)

// Build information populated at init() from debug.ReadBuildInfo().
var (
	Version   = "unknown"
	GoVersion = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
	Modified  bool
)

func init() {
	parseBuildInfo()
}

func parseBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	Version = info.Main.Version
	GoVersion = info.GoVersion

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.time":
			BuildTime = setting.Value
		case "vcs.modified":
			Modified = setting.Value == "true"
		}
	}
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version information",
	Action: func(ctx context.Context, command *cli.Command) error {
		fmt.Printf("onionshare %s\n", Version)
		fmt.Printf("go: %s\n", GoVersion)
		fmt.Printf("platform: %s\n", helpers.Platform())
		fmt.Printf("archive: zip (deflate, zip64), levels %d..%d\n", flate.HuffmanOnly, flate.BestCompression)
		if res, err := helpers.ResourcesFromExecutable(); err == nil {
			fmt.Printf("resources: %s\n", res.Share)
		}
		if Commit != "unknown" {
			if Modified {
				fmt.Printf("commit: %s (dirty)\n", Commit)
			} else {
				fmt.Printf("commit: %s\n", Commit)
			}
		}
		if BuildTime != "unknown" {
			fmt.Printf("built: %s\n", BuildTime)
		}
		return nil
	},
}
