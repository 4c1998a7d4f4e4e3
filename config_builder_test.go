package sinklog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSettingsBuilderDefaults(t *testing.T) {
	builder := NewSettingsBuilder()
	require.NotNil(t, builder)
	require.Equal(t, DefaultSettings(), builder.Build())
}

func TestSettingsBuilderChain(t *testing.T) {
	settings := NewSettingsBuilder().
		WithAppName("orders").
		WithDirectory("/var/log/orders").
		WithDateSubdirectories(true).
		WithCategories(CategoryError | CategorySecurity).
		WithMaxFileSizeMB(5).
		WithRetention(10, 7).
		WithDailyRotation(false).
		WithConsole(true).
		WithCompression(true).
		WithAutoFlush(false).
		Build()

	require.Equal(t, InitSettings{
		AppName:            "orders",
		Directory:          "/var/log/orders",
		DateSubdirectories: true,
		EnabledCategories:  CategoryError | CategorySecurity,
		MaxFileSize:        5 * 1024 * 1024,
		MaxFileCount:       10,
		MaxAgeDays:         7,
		DailyRotation:      false,
		EnableConsole:      true,
		EnableCompression:  true,
		AutoFlush:          false,
	}, settings)

	require.NoError(t, settings.Validate())
}

func TestSettingsBuilderMaxFileSizeBytes(t *testing.T) {
	settings := NewSettingsBuilder().WithMaxFileSize(4096).Build()
	require.Equal(t, int64(4096), settings.MaxFileSize)
}
