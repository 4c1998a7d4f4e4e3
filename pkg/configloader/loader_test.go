package configloader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyp3rd/sinklog"
)

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_APP_NAME", "billing")
	t.Setenv("APP_DIRECTORY", "/var/log/billing")
	t.Setenv("APP_ENABLED_CATEGORIES", "error|warning")
	t.Setenv("APP_MAX_FILE_SIZE", "40960")
	t.Setenv("APP_MAX_FILE_COUNT", "12")
	t.Setenv("APP_MAX_AGE_DAYS", "7")
	t.Setenv("APP_DAILY_ROTATION", "false")
	t.Setenv("APP_ENABLE_CONSOLE", "true")
	t.Setenv("APP_ENABLE_COMPRESSION", "true")
	t.Setenv("APP_DATE_SUBDIRECTORIES", "true")

	settings, err := FromEnv("app")
	require.NoError(t, err)

	require.Equal(t, "billing", settings.AppName)
	require.Equal(t, "/var/log/billing", settings.Directory)
	require.Equal(t, sinklog.CategoryError|sinklog.CategoryWarning, settings.EnabledCategories)
	require.Equal(t, int64(40960), settings.MaxFileSize)
	require.Equal(t, 12, settings.MaxFileCount)
	require.Equal(t, 7, settings.MaxAgeDays)
	require.False(t, settings.DailyRotation)
	require.True(t, settings.EnableConsole)
	require.True(t, settings.EnableCompression)
	require.True(t, settings.DateSubdirectories)
	require.True(t, settings.AutoFlush, "unset keys keep their defaults")
}

func TestFromEnvDefaultsWhenUnset(t *testing.T) {
	settings, err := FromEnv("sinklog_test_unset")
	require.NoError(t, err)

	require.Equal(t, sinklog.DefaultSettings(), settings)
}

func TestFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.yaml")
	configData := []byte(`
app_name: orders
directory: logs/orders
enabled_categories: all
max_file_size_mb: 5
max_file_count: 3
max_age_days: 14
enable_compression: true
auto_flush: false
`)

	err := os.WriteFile(configPath, configData, 0o600)
	require.NoError(t, err)

	t.Setenv("SINKLOG_MAX_FILE_COUNT", "9")
	t.Setenv("SINKLOG_ENABLE_CONSOLE", "true")

	settings, err := FromFile(configPath)
	require.NoError(t, err)

	require.Equal(t, "orders", settings.AppName)
	require.Equal(t, "logs/orders", settings.Directory)
	require.Equal(t, sinklog.CategoryAll, settings.EnabledCategories)
	require.Equal(t, int64(5*1024*1024), settings.MaxFileSize)
	require.Equal(t, 9, settings.MaxFileCount)
	require.Equal(t, 14, settings.MaxAgeDays)
	require.True(t, settings.EnableCompression)
	require.True(t, settings.EnableConsole)
	require.False(t, settings.AutoFlush)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFromYAMLInvalidCategory(t *testing.T) {
	data := []byte(`
enabled_categories: error|loud
`)

	_, err := FromYAML(data)
	require.Error(t, err)
	require.ErrorIs(t, err, sinklog.ErrInvalidCategory)
}

func TestFromYAMLExplicitSizeWins(t *testing.T) {
	data := []byte(`
max_file_size_mb: 10
max_file_size: 2048
`)

	settings, err := FromYAML(data)
	require.NoError(t, err)
	require.Equal(t, int64(2048), settings.MaxFileSize)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "sinklog.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("app_name: first\n"), 0o600))

	var (
		mu   sync.Mutex
		seen []string
	)

	watcher, err := Watch(configPath, func(settings sinklog.InitSettings, err error) {
		if err != nil {
			return
		}

		mu.Lock()
		seen = append(seen, settings.AppName)
		mu.Unlock()
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	defer watcher.Close()

	require.NoError(t, os.WriteFile(configPath, []byte("app_name: second\n"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(seen) > 0 && seen[len(seen)-1] == "second"
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, watcher.Close())
	require.NoError(t, watcher.Close())
}

func TestWatchRequiresHandler(t *testing.T) {
	_, err := Watch(filepath.Join(t.TempDir(), "x.yaml"), nil)
	require.Error(t, err)
}
