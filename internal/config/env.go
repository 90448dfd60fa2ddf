package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/Stowage/internal/adapter/gdrive"
	"github.com/Ning0612/Stowage/internal/domain"
)

// Environment variable suffixes read for each backend
const (
	EnvAccessKeyID     = "ACCESS_KEY_ID"
	EnvSecretAccessKey = "SECRET_ACCESS_KEY"
	EnvEndpointURL     = "ENDPOINT_URL"
	EnvRegion          = "REGION"
	EnvBucket          = "BUCKET"

	EnvGoogleClientEmail = "GOOGLE_CLIENT_EMAIL"
	EnvGooglePrivateKey  = "GOOGLE_PRIVATE_KEY"

	EnvLocalRoot = "ROOT"
)

// EnvReader reads required variables sharing a prefix. "MEDIA" reads
// MEDIA_ACCESS_KEY_ID; an empty prefix reads ACCESS_KEY_ID.
type EnvReader struct {
	v      *viper.Viper
	prefix string
}

// NewEnvReader creates a reader for prefix. A trailing underscore is optional.
func NewEnvReader(prefix string) *EnvReader {
	prefix = strings.ToUpper(strings.TrimSuffix(prefix, "_"))

	v := viper.New()
	if prefix != "" {
		v.SetEnvPrefix(prefix)
	}
	v.AutomaticEnv()

	return &EnvReader{v: v, prefix: prefix}
}

// Name returns the full variable name read for key
func (r *EnvReader) Name(key string) string {
	if r.prefix == "" {
		return strings.ToUpper(key)
	}
	return r.prefix + "_" + strings.ToUpper(key)
}

// Require returns the value of key, failing when it is unset or empty
func (r *EnvReader) Require(key string) (string, error) {
	value := r.v.GetString(strings.ToLower(key))
	if value == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrMissingEnv, r.Name(key))
	}
	return value, nil
}

// RequireEnv returns the value of the variable name, failing when it is
// unset or empty.
func RequireEnv(name string) (string, error) {
	return NewEnvReader("").Require(name)
}

// S3FromEnv reads an S3 connection from {prefix}_ACCESS_KEY_ID,
// {prefix}_SECRET_ACCESS_KEY, {prefix}_ENDPOINT_URL, {prefix}_REGION and
// {prefix}_BUCKET. All five are required.
func S3FromEnv(prefix string) (domain.S3Connection, error) {
	r := NewEnvReader(prefix)

	var conn domain.S3Connection
	fields := []struct {
		key string
		dst *string
	}{
		{EnvAccessKeyID, &conn.AccessKeyID},
		{EnvSecretAccessKey, &conn.SecretAccessKey},
		{EnvEndpointURL, &conn.Endpoint},
		{EnvRegion, &conn.Region},
		{EnvBucket, &conn.Bucket},
	}
	for _, f := range fields {
		value, err := r.Require(f.key)
		if err != nil {
			return domain.S3Connection{}, err
		}
		*f.dst = value
	}
	return conn, nil
}

// DriveFromEnv reads a Drive service account from
// {prefix}_GOOGLE_CLIENT_EMAIL and {prefix}_GOOGLE_PRIVATE_KEY. Escaped
// "\n" sequences in the key are turned into newlines.
func DriveFromEnv(prefix string) (domain.DriveConnection, error) {
	r := NewEnvReader(prefix)

	email, err := r.Require(EnvGoogleClientEmail)
	if err != nil {
		return domain.DriveConnection{}, err
	}
	key, err := r.Require(EnvGooglePrivateKey)
	if err != nil {
		return domain.DriveConnection{}, err
	}

	return domain.DriveConnection{
		ClientEmail: email,
		PrivateKey:  gdrive.NormalizePrivateKey(key),
	}, nil
}

// LocalFromEnv reads a filesystem root from {prefix}_ROOT
func LocalFromEnv(prefix string) (domain.LocalConnection, error) {
	root, err := NewEnvReader(prefix).Require(EnvLocalRoot)
	if err != nil {
		return domain.LocalConnection{}, err
	}
	return domain.LocalConnection{Root: ExpandPath(root)}, nil
}

// ApplyEnv fills the credentials of a connection with an env prefix.
// Settings that only exist in the file, such as path_style or
// root_folder_id, are kept.
func ApplyEnv(conn *domain.Connection) error {
	if conn.EnvPrefix == "" {
		return nil
	}

	switch conn.Type {
	case domain.BackendS3:
		s3conn, err := S3FromEnv(conn.EnvPrefix)
		if err != nil {
			return fmt.Errorf("connection %s: %w", conn.Name, err)
		}
		s3conn.PathStyle = conn.S3.PathStyle
		s3conn.EnsureBucket = conn.S3.EnsureBucket
		conn.S3 = s3conn
	case domain.BackendGDrive:
		drive, err := DriveFromEnv(conn.EnvPrefix)
		if err != nil {
			return fmt.Errorf("connection %s: %w", conn.Name, err)
		}
		drive.RootFolderID = conn.Drive.RootFolderID
		drive.Endpoint = conn.Drive.Endpoint
		conn.Drive = drive
	case domain.BackendLocal:
		local, err := LocalFromEnv(conn.EnvPrefix)
		if err != nil {
			return fmt.Errorf("connection %s: %w", conn.Name, err)
		}
		conn.Local = local
	}
	return nil
}
