package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/logger"
)

// Config represents the complete configuration for stowage
type Config struct {
	// Log configures the global logger
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Connections define the named storage backends
	Connections []domain.Connection `mapstructure:"connections" yaml:"connections"`
}

// LogConfig is the file form of logger.Config
type LogConfig struct {
	Level  string        `mapstructure:"level" yaml:"level"`
	Format string        `mapstructure:"format" yaml:"format"`
	File   LogFileConfig `mapstructure:"file" yaml:"file,omitempty"`
}

// LogFileConfig enables rotating file output when Path is set
type LogFileConfig struct {
	Path       string `mapstructure:"path" yaml:"path,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb,omitempty"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days,omitempty"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups,omitempty"`
	Compress   bool   `mapstructure:"compress" yaml:"compress,omitempty"`
}

// LoggerConfig converts the file settings into a logger.Config.
// Records always go to stderr, and to the file when a path is set.
func (l LogConfig) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(l.Level),
		Format:  logger.ParseFormat(l.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}

	if l.File.Path != "" {
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       ExpandPath(l.File.Path),
			MaxSizeMB:  l.File.MaxSizeMB,
			MaxAgeDays: l.File.MaxAgeDays,
			MaxBackups: l.File.MaxBackups,
			Compress:   l.File.Compress,
		}
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
	}
	return cfg
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	names := make(map[string]bool)
	for _, conn := range c.Connections {
		if err := conn.Validate(); err != nil {
			return err
		}
		if names[conn.Name] {
			return fmt.Errorf("%w: duplicate connection name: %s", domain.ErrConfigInvalid, conn.Name)
		}
		names[conn.Name] = true
	}
	return nil
}

// GetConnection returns a connection by name
func (c *Config) GetConnection(name string) (*domain.Connection, error) {
	for i := range c.Connections {
		if c.Connections[i].Name == name {
			return &c.Connections[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, name)
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	// Expand ~ to home directory
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
