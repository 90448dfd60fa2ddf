package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/logger"
)

const sampleConfig = `
log:
  level: debug
  format: json
connections:
  - name: media
    type: s3
    s3:
      access_key_id: AKIAEXAMPLE
      secret_access_key: secret
      region: us-east-1
      bucket: media
      endpoint: http://localhost:9000
      path_style: true
  - name: docs
    type: gdrive
    gdrive:
      client_email: bot@example.iam.gserviceaccount.com
      private_key: key
      root_folder_id: folder123
  - name: scratch
    type: local
    local:
      root: /tmp/stowage
`

func TestLoadFromString(t *testing.T) {
	cfg, err := LoadFromString(sampleConfig)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if len(cfg.Connections) != 3 {
		t.Fatalf("got %d connections, want 3", len(cfg.Connections))
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}

	media, err := cfg.GetConnection("media")
	if err != nil {
		t.Fatalf("GetConnection(media) error = %v", err)
	}
	if media.Type != domain.BackendS3 || !media.S3.PathStyle || media.S3.Bucket != "media" {
		t.Errorf("media = %+v", media)
	}

	docs, _ := cfg.GetConnection("docs")
	if docs.Drive.RootFolderID != "folder123" {
		t.Errorf("RootFolderID = %q", docs.Drive.RootFolderID)
	}

	if _, err := cfg.GetConnection("missing"); !errors.Is(err, domain.ErrConnectionNotFound) {
		t.Errorf("GetConnection(missing) error = %v", err)
	}
}

func TestLoadFromString_Defaults(t *testing.T) {
	cfg, err := LoadFromString("connections: []\n")
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("default log = %+v", cfg.Log)
	}
	if cfg.Log.File.MaxSizeMB != 100 || cfg.Log.File.MaxBackups != 3 {
		t.Errorf("default log file = %+v", cfg.Log.File)
	}
}

func TestLoadFromString_EnvOverride(t *testing.T) {
	t.Setenv("STOWAGE_LOG_LEVEL", "warn")

	cfg, err := LoadFromString(sampleConfig)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn from env", cfg.Log.Level)
	}
}

func TestLoadFromString_EnvPrefix(t *testing.T) {
	setS3Env(t, "BACKUP_")

	cfg, err := LoadFromString(`
connections:
  - name: backup
    type: s3
    env_prefix: BACKUP
    s3:
      ensure_bucket: true
`)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	conn := cfg.Connections[0]
	if conn.S3.AccessKeyID != "AKIAEXAMPLE" || conn.S3.Endpoint != "http://minio:9000" {
		t.Errorf("env credentials not applied: %+v", conn.S3)
	}
	if !conn.S3.EnsureBucket {
		t.Error("ensure_bucket from file should be kept")
	}
}

func TestLoadFromString_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "malformed yaml",
			yaml:    "connections: [",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name: "duplicate names",
			yaml: `
connections:
  - {name: a, type: local, local: {root: /tmp}}
  - {name: a, type: local, local: {root: /var}}
`,
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "unknown type",
			yaml:    "connections:\n  - {name: a, type: ftp}\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "s3 without bucket",
			yaml:    "connections:\n  - {name: a, type: s3, s3: {access_key_id: k, secret_access_key: s, region: r}}\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "missing env",
			yaml:    "connections:\n  - {name: a, type: gdrive, env_prefix: STOWAGE_UNSET_PREFIX}\n",
			wantErr: domain.ErrMissingEnv,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadFromString() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Connections) != 3 {
		t.Errorf("got %d connections", len(cfg.Connections))
	}

	_, err = Load(filepath.Join(dir, "absent.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("Load(absent) error = %v, want ErrConfigNotFound", err)
	}
}

func TestLogConfig_LoggerConfig(t *testing.T) {
	lc := LogConfig{Level: "error", Format: "json"}
	got := lc.LoggerConfig()
	if got.Level != logger.LevelError || got.Format != logger.FormatJSON {
		t.Errorf("LoggerConfig() = %+v", got)
	}
	if len(got.Outputs) != 1 || got.File.Enabled {
		t.Errorf("file output should be off without a path: %+v", got)
	}

	lc.File = LogFileConfig{Path: "/var/log/stowage.log", MaxSizeMB: 5}
	got = lc.LoggerConfig()
	if !got.File.Enabled || got.File.MaxSizeMB != 5 || len(got.Outputs) != 2 {
		t.Errorf("LoggerConfig() with file = %+v", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("STOWAGE_TEST_DIR", "/data")

	tests := map[string]string{
		"~":                        home,
		"~/files":                  filepath.Join(home, "files"),
		"$STOWAGE_TEST_DIR/x/../y": filepath.Clean("/data/y"),
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
