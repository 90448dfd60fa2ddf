package domain

import "fmt"

// BackendType identifies the storage backend of a connection
type BackendType string

const (
	BackendS3     BackendType = "s3"
	BackendGDrive BackendType = "gdrive"
	BackendLocal  BackendType = "local"
)

// IsValid checks if the backend type is a known value
func (t BackendType) IsValid() bool {
	switch t {
	case BackendS3, BackendGDrive, BackendLocal:
		return true
	}
	return false
}

// ListsFullPaths reports whether listings of this backend name entries by
// their full logical path instead of relative to the queried prefix.
func (t BackendType) ListsFullPaths() bool {
	return t == BackendGDrive
}

// Connection is a named, fully resolved backend configuration
type Connection struct {
	// Name is the unique identifier of the logical connection
	Name string `mapstructure:"name" yaml:"name"`

	// Type selects the backend
	Type BackendType `mapstructure:"type" yaml:"type"`

	// EnvPrefix, when set, fills credentials from prefixed environment variables
	EnvPrefix string `mapstructure:"env_prefix" yaml:"env_prefix,omitempty"`

	S3    S3Connection    `mapstructure:"s3" yaml:"s3,omitempty"`
	Drive DriveConnection `mapstructure:"gdrive" yaml:"gdrive,omitempty"`
	Local LocalConnection `mapstructure:"local" yaml:"local,omitempty"`
}

// S3Connection holds S3-compatible object storage settings
type S3Connection struct {
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	Region          string `mapstructure:"region" yaml:"region"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`

	// PathStyle uses path-style addressing (required for MinIO and most S3 clones)
	PathStyle bool `mapstructure:"path_style" yaml:"path_style"`

	// EnsureBucket creates the bucket when the connection is first built
	EnsureBucket bool `mapstructure:"ensure_bucket" yaml:"ensure_bucket"`
}

// DriveConnection holds Google Drive service account settings
type DriveConnection struct {
	ClientEmail string `mapstructure:"client_email" yaml:"client_email"`
	PrivateKey  string `mapstructure:"private_key" yaml:"private_key"`

	// RootFolderID anchors logical paths, "root" (My Drive) when empty
	RootFolderID string `mapstructure:"root_folder_id" yaml:"root_folder_id,omitempty"`

	// Endpoint overrides the Drive API base URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// LocalConnection holds filesystem backend settings
type LocalConnection struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// Validate checks backend-specific required fields
func (c Connection) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: connection name cannot be empty", ErrConfigInvalid)
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: connection %s has invalid type: %q", ErrConfigInvalid, c.Name, c.Type)
	}

	switch c.Type {
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("%w: connection %s requires s3.bucket", ErrConfigInvalid, c.Name)
		}
		if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
			return fmt.Errorf("%w: connection %s requires s3 access key pair", ErrConfigInvalid, c.Name)
		}
		if c.S3.Region == "" {
			return fmt.Errorf("%w: connection %s requires s3.region", ErrConfigInvalid, c.Name)
		}
	case BackendGDrive:
		if c.Drive.ClientEmail == "" || c.Drive.PrivateKey == "" {
			return fmt.Errorf("%w: connection %s requires gdrive client_email and private_key", ErrConfigInvalid, c.Name)
		}
	case BackendLocal:
		if c.Local.Root == "" {
			return fmt.Errorf("%w: connection %s requires local.root", ErrConfigInvalid, c.Name)
		}
	}
	return nil
}
