package v1

// ShareConfig describes one share: which files and directories go into the
// archive, where the archive is written, and where it is published.
type ShareConfig struct {
	Kind     string    `yaml:"kind" json:"kind" validate:"required,eq=Share"`
	Metadata Metadata  `yaml:"metadata" json:"metadata" validate:"required"`
	Spec     ShareSpec `yaml:"spec" json:"spec" validate:"required"`
}

type Metadata struct {
	// Name identifies the share. Available to templates as ${SHARE_NAME}.
	Name string `yaml:"name" json:"name" validate:"required"`
}

type ShareSpec struct {
	// Resources overrides the directories bundled resources are read from.
	// When omitted, they are derived from the executable location.
	Resources *ResourcesSpec `yaml:"resources,omitempty" json:"resources,omitempty"`

	// Inputs lists the files and directories to share. Directories keep their
	// own name as the top-level folder inside the archive.
	Inputs []string `yaml:"inputs" json:"inputs" validate:"required,min=1,dive,required" template:""`

	// Archive configures the archive file.
	Archive *ArchiveSpec `yaml:"archive,omitempty" json:"archive,omitempty"`

	// Output configures where the finished archive is published.
	Output *OutputSpec `yaml:"output,omitempty" json:"output,omitempty"`
}

// ResourcesSpec lists resource directories per category.
type ResourcesSpec struct {
	HTML   string `yaml:"html,omitempty" json:"html,omitempty" template:""`
	Locale string `yaml:"locale,omitempty" json:"locale,omitempty" template:""`
	Share  string `yaml:"share,omitempty" json:"share,omitempty" template:""`
}

// ArchiveSpec configures the ZIP archive.
type ArchiveSpec struct {
	// Path is where the archive is written. Defaults to
	// onionshare_<random>.zip in a new temporary directory.
	Path *string `yaml:"path,omitempty" json:"path,omitempty" template:""`

	// CompressionLevel is the deflate level, -2 (huffman only) to 9 (best).
	CompressionLevel *int `yaml:"compression_level,omitempty" json:"compression_level,omitempty" validate:"omitempty,min=-2,max=9"`
}

// OutputSpec configures how the archive is published.
type OutputSpec struct {
	// Sink configures where the archive is published. When omitted, the
	// archive is left at its archive path.
	Sink *SinkSpec `yaml:"sink,omitempty" json:"sink,omitempty"`
}

// SinkSpec configures the output destination (exactly one of the fields should be set).
type SinkSpec struct {
	Stdout     *StdoutSinkSpec     `yaml:"stdout,omitempty" json:"stdout,omitempty" validate:"required_without_all=Filesystem S3,excluded_with=Filesystem S3"`
	Filesystem *FilesystemSinkSpec `yaml:"filesystem,omitempty" json:"filesystem,omitempty" validate:"required_without_all=Stdout S3,excluded_with=Stdout S3"`
	S3         *S3SinkSpec         `yaml:"s3,omitempty" json:"s3,omitempty" validate:"required_without_all=Stdout Filesystem,excluded_with=Stdout Filesystem"`
}

// StdoutSinkSpec streams the archive to standard output (no options currently).
type StdoutSinkSpec struct{}

// FilesystemSinkSpec copies the archive into a directory.
type FilesystemSinkSpec struct {
	// Path is the base directory. Defaults to the current working directory.
	Path *string `yaml:"path,omitempty" json:"path,omitempty" template:""`

	// Prefix is a sub-directory below Path.
	Prefix *string `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
}

// S3SinkSpec uploads the archive to S3-compatible object storage.
type S3SinkSpec struct {
	Bucket         string         `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Region         *string        `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       *string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty" validate:"omitempty,url" template:""`
	Prefix         *string        `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	ForcePathStyle bool           `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
	Credentials    *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`
}

// S3Credentials holds static credentials. When omitted the default AWS
// credential chain is used.
type S3Credentials struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" validate:"required" template:""`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" validate:"required" template:""`
}
