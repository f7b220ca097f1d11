package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	v1 "github.com/onionshare/onionshare/apis/v1"
	"github.com/onionshare/onionshare/internal/engine"
	"github.com/onionshare/onionshare/internal/engine/sinks"
)

// buildSink creates the configured sink. Without an output sink the archive
// stays where it was written and nil is returned.
func buildSink(ctx context.Context, logger *zap.Logger, cfg v1.ShareConfig) (engine.Sink, error) {
	if cfg.Spec.Output == nil || cfg.Spec.Output.Sink == nil {
		return nil, nil
	}
	spec := cfg.Spec.Output.Sink

	switch {
	case spec.Stdout != nil:
		return sinks.NewStreamSink(os.Stdout), nil
	case spec.Filesystem != nil:
		return buildFilesystemSink(spec.Filesystem)
	case spec.S3 != nil:
		return buildS3Sink(ctx, logger, spec.S3)
	}

	return nil, fmt.Errorf("invalid sink configuration: no sink type specified")
}

func buildFilesystemSink(spec *v1.FilesystemSinkSpec) (engine.Sink, error) {
	var path string
	var prefix string

	if spec.Path != nil {
		path = *spec.Path
	}
	if spec.Prefix != nil {
		prefix = *spec.Prefix
	}

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = wd
	}

	return sinks.NewFilesystemSinkFromPath(filepath.Join(path, prefix))
}

func buildS3Sink(ctx context.Context, logger *zap.Logger, spec *v1.S3SinkSpec) (engine.Sink, error) {
	cfg := sinks.S3Config{
		Bucket:         spec.Bucket,
		ForcePathStyle: spec.ForcePathStyle,
	}

	if spec.Region != nil {
		cfg.Region = *spec.Region
	}

	if spec.Endpoint != nil {
		cfg.Endpoint = *spec.Endpoint
	}

	if spec.Prefix != nil {
		cfg.Prefix = *spec.Prefix
	}

	if spec.Credentials != nil {
		cfg.AccessKeyID = spec.Credentials.AccessKeyID
		cfg.SecretAccessKey = spec.Credentials.SecretAccessKey
	}

	return sinks.NewS3Sink(ctx, logger, cfg)
}
