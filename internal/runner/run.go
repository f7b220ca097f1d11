package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	v1 "github.com/onionshare/onionshare/apis/v1"
	"github.com/onionshare/onionshare/internal/engine"
	"github.com/onionshare/onionshare/internal/engine/archivers"
	"github.com/onionshare/onionshare/internal/engine/sources"
	"github.com/onionshare/onionshare/internal/helpers"
)

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// Result describes a finished share.
type Result struct {
	// Path is where the archive was written. A generated path no longer
	// exists once the archive has been published to a sink.
	Path string
	// Entries is the number of files in the archive.
	Entries int
	// Size is the archive size in bytes.
	Size int64
}

type Runner struct {
	logger  *zap.Logger
	cfg     v1.ShareConfig
	fs      afero.Fs
	sink    engine.Sink
	sinkSet bool
}

type Option func(*Runner)

// WithFs sets the filesystem inputs are read from and the archive is written
// to. Defaults to the host filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithSink overrides the sink built from the output configuration. A nil sink
// leaves the archive at its path.
func WithSink(sink engine.Sink) Option {
	return func(r *Runner) {
		r.sink = sink
		r.sinkSet = true
	}
}

// ParseShareConfig parses a YAML or JSON share file and validates it.
func ParseShareConfig(data []byte) (v1.ShareConfig, error) {
	var cfg v1.ShareConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return v1.ShareConfig{}, fmt.Errorf("failed to unmarshal share data: %w", err)
	}

	if err := defaultValidator.Struct(cfg); err != nil {
		return v1.ShareConfig{}, fmt.Errorf("failed to validate share: %w", err)
	}

	return cfg, nil
}

// BuildVariables returns the variables available to templates: the built-in
// SHARE_* values plus every allowed environment variable. SHARE_SLUG is only
// set when slug is not empty. Allowed variables missing from the environment
// are reported together.
func BuildVariables(cfg v1.ShareConfig, allowedEnv []string, slug string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"SHARE_NAME":         cfg.Metadata.Name,
		"SHARE_DATE_ISO8601": date.Format(engine.ISO8601Basic),
		"SHARE_DATE_RFC3339": date.Format(time.RFC3339),
	}
	if slug != "" {
		variables["SHARE_SLUG"] = slug
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// ResolveResources returns the resource directories configured for the share,
// or the ones next to the executable when none are configured.
func ResolveResources(cfg v1.ShareConfig) (helpers.Resources, error) {
	spec := cfg.Spec.Resources
	if spec == nil {
		return helpers.ResourcesFromExecutable()
	}
	return helpers.Resources{
		HTML:   spec.HTML,
		Locale: spec.Locale,
		Share:  spec.Share,
	}, nil
}

// NewSlug builds a two-word slug from the word list, falling back to a random
// base32 string when the word list cannot be used.
func NewSlug(logger *zap.Logger, fs afero.Fs, res helpers.Resources) (string, error) {
	slug, err := helpers.BuildSlug(fs, res, nil)
	if err == nil {
		return slug, nil
	}

	logger.Debug("word list unavailable, using random slug", zap.Error(err))
	return helpers.RandomString(nil, 16, 16)
}

// Prepare expands the templates of a parsed share config. Resource
// directories are expanded first so the word list can be located for
// SHARE_SLUG, which is then available to every other field.
func Prepare(logger *zap.Logger, fs afero.Fs, cfg v1.ShareConfig, allowedEnv []string) (v1.ShareConfig, error) {
	variables, err := BuildVariables(cfg, allowedEnv, "")
	if err != nil {
		return v1.ShareConfig{}, fmt.Errorf("failed to build variables: %w", err)
	}

	resCfg := cfg
	if cfg.Spec.Resources != nil {
		spec := *cfg.Spec.Resources
		if err := ExpandTemplates(&spec, variables); err != nil {
			return v1.ShareConfig{}, fmt.Errorf("failed to expand resources: %w", err)
		}
		resCfg.Spec.Resources = &spec
	}

	res, err := ResolveResources(resCfg)
	if err != nil {
		return v1.ShareConfig{}, err
	}

	slug, err := NewSlug(logger, fs, res)
	if err != nil {
		return v1.ShareConfig{}, fmt.Errorf("failed to build slug: %w", err)
	}
	variables["SHARE_SLUG"] = slug

	if err := ExpandTemplates(&cfg, variables); err != nil {
		return v1.ShareConfig{}, fmt.Errorf("failed to expand templates: %w", err)
	}

	return cfg, nil
}

func New(ctx context.Context, logger *zap.Logger, cfg v1.ShareConfig, opts ...Option) (*Runner, error) {
	logger.Info("creating runner", zap.String("share_name", cfg.Metadata.Name))

	r := &Runner{
		logger: logger,
		cfg:    cfg,
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.sinkSet {
		sink, err := buildSink(ctx, logger.Named("sink"), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build sink: %w", err)
		}
		r.sink = sink
	}

	return r, nil
}

// Run builds the archive from every input and publishes it to the sink. The
// archive is closed on every path, including failures.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	archiver, err := r.buildArchiver()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if err := archiver.Close(); err != nil {
			r.logger.Error("failed to close archive", zap.String("path", archiver.Path()), zap.Error(err))
		}
	}()

	walker := sources.NewWalker(r.fs)
	for _, input := range lo.Uniq(r.cfg.Spec.Inputs) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		info, err := r.fs.Stat(input)
		if err != nil {
			return Result{}, engine.PathError("stat input", input, err)
		}

		if info.IsDir() {
			size, err := sources.DirSize(r.fs, walker, input)
			if err != nil {
				return Result{}, fmt.Errorf("failed to size %s: %w", input, err)
			}
			r.logger.Info("adding directory",
				zap.String("path", input),
				zap.Int64("size", size),
				zap.String("size_human", helpers.HumanReadableFilesize(size)),
			)
			if err := archiver.AddDir(input); err != nil {
				return Result{}, err
			}
			continue
		}

		r.logger.Info("adding file", zap.String("path", input), zap.Int64("size", info.Size()))
		if err := archiver.AddFile(input); err != nil {
			return Result{}, err
		}
	}

	if err := archiver.Close(); err != nil {
		return Result{}, err
	}

	info, err := r.fs.Stat(archiver.Path())
	if err != nil {
		return Result{}, engine.PathError("stat archive", archiver.Path(), err)
	}

	result := Result{
		Path:    archiver.Path(),
		Entries: archiver.Entries(),
		Size:    info.Size(),
	}

	r.logger.Info("archive ready",
		zap.String("path", result.Path),
		zap.Int("entries", result.Entries),
		zap.String("size", helpers.HumanReadableFilesize(result.Size)),
	)

	if err := r.publish(ctx, result.Path); err != nil {
		return Result{}, fmt.Errorf("failed to publish archive: %w", err)
	}

	// A generated archive lives in its own temporary directory, which is not
	// needed once the archive has been published elsewhere.
	if r.sink != nil && !r.hasArchivePath() {
		dir := filepath.Dir(result.Path)
		if err := r.fs.RemoveAll(dir); err != nil {
			r.logger.Warn("failed to remove temporary directory", zap.String("path", dir), zap.Error(err))
		} else {
			r.logger.Debug("removed temporary directory", zap.String("path", dir))
		}
	}

	return result, nil
}

func (r *Runner) hasArchivePath() bool {
	archive := r.cfg.Spec.Archive
	return archive != nil && archive.Path != nil && *archive.Path != ""
}

func (r *Runner) buildArchiver() (*archivers.ZipArchiver, error) {
	opts := []archivers.ZipOption{
		archivers.WithFs(r.fs),
		archivers.WithLogger(r.logger.Named("zip")),
	}

	if r.hasArchivePath() {
		opts = append(opts, archivers.WithPath(*r.cfg.Spec.Archive.Path))
	}
	if archive := r.cfg.Spec.Archive; archive != nil {
		if archive.CompressionLevel != nil {
			opts = append(opts, archivers.WithCompressionLevel(*archive.CompressionLevel))
		}
	}

	return archivers.NewZipArchiver(opts...)
}

func (r *Runner) publish(ctx context.Context, path string) error {
	if r.sink == nil {
		return nil
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return engine.PathError("open archive", path, err)
	}
	defer f.Close()

	if err := r.sink.Write(ctx, filepath.Base(path), f); err != nil {
		return fmt.Errorf("failed to write to %s: %w", r.sink.Name(), err)
	}

	if err := r.sink.Close(ctx); err != nil {
		return fmt.Errorf("failed to close sink: %w", err)
	}

	r.logger.Info("archive published", zap.String("sink", r.sink.Name()), zap.String("kind", r.sink.Kind()))

	return nil
}
