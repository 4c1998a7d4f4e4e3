package sinklog

// SettingsBuilder provides a fluent API for constructing InitSettings.
type SettingsBuilder struct {
	settings InitSettings
}

// NewSettingsBuilder creates a new builder seeded with DefaultSettings.
func NewSettingsBuilder() *SettingsBuilder {
	return &SettingsBuilder{settings: DefaultSettings()}
}

// WithAppName sets the base name of the log files.
func (b *SettingsBuilder) WithAppName(name string) *SettingsBuilder {
	b.settings.AppName = name

	return b
}

// WithDirectory sets the base log directory.
func (b *SettingsBuilder) WithDirectory(dir string) *SettingsBuilder {
	b.settings.Directory = dir

	return b
}

// WithDateSubdirectories enables or disables per-day sub-directories.
func (b *SettingsBuilder) WithDateSubdirectories(enable bool) *SettingsBuilder {
	b.settings.DateSubdirectories = enable

	return b
}

// WithCategories sets the global category mask.
// Example: builder.WithCategories(sinklog.CategoryError | sinklog.CategoryWarning).
func (b *SettingsBuilder) WithCategories(categories Category) *SettingsBuilder {
	b.settings.EnabledCategories = categories

	return b
}

// WithMaxFileSize sets the rotation size in bytes.
func (b *SettingsBuilder) WithMaxFileSize(size int64) *SettingsBuilder {
	b.settings.MaxFileSize = size

	return b
}

// WithMaxFileSizeMB sets the rotation size in megabytes.
func (b *SettingsBuilder) WithMaxFileSizeMB(sizeMB int) *SettingsBuilder {
	b.settings.MaxFileSize = int64(sizeMB) * bytesPerMB

	return b
}

// WithRetention sets the count and age limits applied by cleanup.
func (b *SettingsBuilder) WithRetention(maxFileCount, maxAgeDays int) *SettingsBuilder {
	b.settings.MaxFileCount = maxFileCount
	b.settings.MaxAgeDays = maxAgeDays

	return b
}

// WithDailyRotation enables or disables date-based rotation.
func (b *SettingsBuilder) WithDailyRotation(enable bool) *SettingsBuilder {
	b.settings.DailyRotation = enable

	return b
}

// WithConsole enables or disables the console sink.
func (b *SettingsBuilder) WithConsole(enable bool) *SettingsBuilder {
	b.settings.EnableConsole = enable

	return b
}

// WithCompression enables or disables background gzip of closed files.
func (b *SettingsBuilder) WithCompression(enable bool) *SettingsBuilder {
	b.settings.EnableCompression = enable

	return b
}

// WithAutoFlush enables or disables syncing after every append.
func (b *SettingsBuilder) WithAutoFlush(enable bool) *SettingsBuilder {
	b.settings.AutoFlush = enable

	return b
}

// Build returns the constructed settings.
func (b *SettingsBuilder) Build() InitSettings {
	return b.settings
}
