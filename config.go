package sinklog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyp3rd/ewrap"
)

const (
	// DefaultMaxFileSizeMB is the default maximum size in MB for log files before rotation.
	DefaultMaxFileSizeMB = 100
	// DefaultMaxAgeDays is the default retention age for log files.
	DefaultMaxAgeDays = 30
	// DefaultExtension is the extension of plain log files.
	DefaultExtension = ".log"
	// CompressedSuffix is appended to DefaultExtension for compressed files.
	CompressedSuffix = ".gz"
	// LogFilePermissions are the default file permissions for log files.
	LogFilePermissions = 0o644
	// LogDirPermissions are the default permissions for created log directories.
	LogDirPermissions = 0o755

	bytesPerMB = 1024 * 1024
)

// InitSettings are the parameters of one initialization. The supervisor keeps
// the last successful value to support reinitialization.
type InitSettings struct {
	// AppName is the base name of every log file.
	AppName string `mapstructure:"app_name" yaml:"app_name"`
	// Directory is the base directory for log files.
	Directory string `mapstructure:"directory" yaml:"directory"`
	// DateSubdirectories places files under Directory/yyyyMMdd/.
	DateSubdirectories bool `mapstructure:"date_subdirectories" yaml:"date_subdirectories"`
	// EnabledCategories is the global category mask.
	EnabledCategories Category `mapstructure:"enabled_categories" yaml:"enabled_categories"`
	// MaxFileSize is the size in bytes that triggers rotation (0 = unlimited).
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
	// MaxFileCount is the number of files kept by retention (0 = unlimited).
	MaxFileCount int `mapstructure:"max_file_count" yaml:"max_file_count"`
	// MaxAgeDays removes files last written more than this many days ago (0 = unlimited).
	MaxAgeDays int `mapstructure:"max_age_days" yaml:"max_age_days"`
	// DailyRotation starts a new file when the local calendar date changes.
	DailyRotation bool `mapstructure:"daily_rotation" yaml:"daily_rotation"`
	// EnableConsole registers a console sink next to the file sink.
	EnableConsole bool `mapstructure:"enable_console" yaml:"enable_console"`
	// EnableCompression gzips closed log files in the background.
	EnableCompression bool `mapstructure:"enable_compression" yaml:"enable_compression"`
	// AutoFlush syncs the file after every append.
	AutoFlush bool `mapstructure:"auto_flush" yaml:"auto_flush"`
}

// DefaultSettings returns the default settings. AppName and Directory must
// still be provided by the caller.
func DefaultSettings() InitSettings {
	return InitSettings{
		EnabledCategories: CategoryAll,
		MaxFileSize:       DefaultMaxFileSizeMB * bytesPerMB,
		MaxFileCount:      0,
		MaxAgeDays:        DefaultMaxAgeDays,
		DailyRotation:     true,
		EnableConsole:     false,
		EnableCompression: false,
		AutoFlush:         true,
	}
}

// DevelopmentSettings enables the console and every category.
func DevelopmentSettings(appName, directory string) InitSettings {
	settings := DefaultSettings()
	settings.AppName = appName
	settings.Directory = directory
	settings.EnableConsole = true

	return settings
}

// ProductionSettings drops debug and trace output and compresses closed files.
func ProductionSettings(appName, directory string) InitSettings {
	settings := DefaultSettings()
	settings.AppName = appName
	settings.Directory = directory
	settings.EnabledCategories = CategoryAll &^ (CategoryDebug | CategoryTrace)
	settings.EnableCompression = true
	settings.AutoFlush = false

	return settings
}

// Validate checks the settings for configuration errors.
func (s InitSettings) Validate() error {
	name := strings.TrimSpace(s.AppName)
	if name == "" {
		return ErrEmptyAppName
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ewrap.Wrap(ErrInvalidPath, "application name must be a plain file name").
			WithMetadata("app_name", s.AppName)
	}

	if strings.TrimSpace(s.Directory) == "" {
		return ErrEmptyDirectory
	}

	if strings.ContainsRune(s.Directory, 0) {
		return ewrap.Wrap(ErrInvalidPath, "directory contains a NUL byte").
			WithMetadata("directory", s.Directory)
	}

	if s.MaxFileSize < 0 || s.MaxFileCount < 0 || s.MaxAgeDays < 0 {
		return ewrap.New("limits cannot be negative").
			WithMetadata("max_file_size", s.MaxFileSize).
			WithMetadata("max_file_count", s.MaxFileCount).
			WithMetadata("max_age_days", s.MaxAgeDays)
	}

	return nil
}

// CleanDirectory returns the cleaned absolute form of Directory.
func (s InitSettings) CleanDirectory() (string, error) {
	dir, err := filepath.Abs(filepath.Clean(s.Directory))
	if err != nil {
		return "", ewrap.Wrap(err, "resolving log directory").
			WithMetadata("directory", s.Directory)
	}

	return dir, nil
}

// ReportError is the last-resort error handler: it writes one line to stderr.
func ReportError(err error) {
	if err == nil {
		return
	}

	//nolint:errcheck // nowhere left to report a failing stderr.
	fmt.Fprintf(os.Stderr, "sinklog: %v\n", err)
}
