package configloader

import (
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/sinklog"
)

const bytesPerMB = 1024 * 1024

// rawSettings mirrors sinklog.InitSettings with optional fields so that
// absent keys keep their defaults.
type rawSettings struct {
	AppName            string `mapstructure:"app_name" yaml:"app_name"`
	Directory          string `mapstructure:"directory" yaml:"directory"`
	DateSubdirectories *bool  `mapstructure:"date_subdirectories" yaml:"date_subdirectories"`
	EnabledCategories  string `mapstructure:"enabled_categories" yaml:"enabled_categories"`
	MaxFileSize        *int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
	MaxFileSizeMB      *int   `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
	MaxFileCount       *int   `mapstructure:"max_file_count" yaml:"max_file_count"`
	MaxAgeDays         *int   `mapstructure:"max_age_days" yaml:"max_age_days"`
	DailyRotation      *bool  `mapstructure:"daily_rotation" yaml:"daily_rotation"`
	EnableConsole      *bool  `mapstructure:"enable_console" yaml:"enable_console"`
	EnableCompression  *bool  `mapstructure:"enable_compression" yaml:"enable_compression"`
	AutoFlush          *bool  `mapstructure:"auto_flush" yaml:"auto_flush"`
}

func applyRaw(raw rawSettings) (sinklog.InitSettings, error) {
	settings := sinklog.DefaultSettings()

	if raw.AppName != "" {
		settings.AppName = raw.AppName
	}

	if raw.Directory != "" {
		settings.Directory = raw.Directory
	}

	if raw.EnabledCategories != "" {
		categories, err := sinklog.ParseCategory(raw.EnabledCategories)
		if err != nil {
			return sinklog.InitSettings{}, ewrap.Wrap(err, "invalid enabled_categories").
				WithMetadata("value", raw.EnabledCategories)
		}

		settings.EnabledCategories = categories
	}

	if raw.MaxFileSizeMB != nil {
		settings.MaxFileSize = int64(*raw.MaxFileSizeMB) * bytesPerMB
	}

	if raw.MaxFileSize != nil {
		settings.MaxFileSize = *raw.MaxFileSize
	}

	setIfPresent(&settings.MaxFileCount, raw.MaxFileCount)
	setIfPresent(&settings.MaxAgeDays, raw.MaxAgeDays)
	setIfPresent(&settings.DateSubdirectories, raw.DateSubdirectories)
	setIfPresent(&settings.DailyRotation, raw.DailyRotation)
	setIfPresent(&settings.EnableConsole, raw.EnableConsole)
	setIfPresent(&settings.EnableCompression, raw.EnableCompression)
	setIfPresent(&settings.AutoFlush, raw.AutoFlush)

	return settings, nil
}

func setIfPresent[T any](target *T, value *T) {
	if value != nil {
		*target = *value
	}
}

func allKeys() []string {
	return []string{
		"app_name",
		"directory",
		"date_subdirectories",
		"enabled_categories",
		"max_file_size",
		"max_file_size_mb",
		"max_file_count",
		"max_age_days",
		"daily_rotation",
		"enable_console",
		"enable_compression",
		"auto_flush",
	}
}
