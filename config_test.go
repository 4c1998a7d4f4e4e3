package sinklog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	assert.Equal(t, CategoryAll, settings.EnabledCategories)
	assert.Equal(t, int64(100*1024*1024), settings.MaxFileSize)
	assert.Zero(t, settings.MaxFileCount)
	assert.Equal(t, 30, settings.MaxAgeDays)
	assert.True(t, settings.DailyRotation)
	assert.True(t, settings.AutoFlush)
	assert.False(t, settings.EnableConsole)
	assert.False(t, settings.EnableCompression)
	assert.False(t, settings.DateSubdirectories)
	assert.Empty(t, settings.AppName)
	assert.Empty(t, settings.Directory)
}

func TestEnvironmentSettings(t *testing.T) {
	dev := DevelopmentSettings("svc", "/logs")
	assert.Equal(t, "svc", dev.AppName)
	assert.Equal(t, "/logs", dev.Directory)
	assert.True(t, dev.EnableConsole)
	assert.Equal(t, CategoryAll, dev.EnabledCategories)

	prod := ProductionSettings("svc", "/logs")
	assert.False(t, prod.EnabledCategories.Has(CategoryDebug|CategoryTrace))
	assert.True(t, prod.EnabledCategories.Has(CategoryError))
	assert.True(t, prod.EnableCompression)
	assert.False(t, prod.AutoFlush)
}

func TestValidate(t *testing.T) {
	valid := DevelopmentSettings("app", t.TempDir())

	tests := []struct {
		name    string
		mutate  func(*InitSettings)
		wantErr error
	}{
		{name: "valid", mutate: func(*InitSettings) {}},
		{name: "empty app name", mutate: func(s *InitSettings) { s.AppName = "  " }, wantErr: ErrEmptyAppName},
		{name: "app name with separator", mutate: func(s *InitSettings) { s.AppName = "a/b" }, wantErr: ErrInvalidPath},
		{name: "app name dot dot", mutate: func(s *InitSettings) { s.AppName = ".." }, wantErr: ErrInvalidPath},
		{name: "empty directory", mutate: func(s *InitSettings) { s.Directory = "" }, wantErr: ErrEmptyDirectory},
		{name: "nul in directory", mutate: func(s *InitSettings) { s.Directory = "logs\x00" }, wantErr: ErrInvalidPath},
		{name: "negative limits", mutate: func(s *InitSettings) { s.MaxAgeDays = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := valid
			tt.mutate(&settings)

			err := settings.Validate()

			switch {
			case tt.name == "valid":
				require.NoError(t, err)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.Error(t, err)
			}
		})
	}
}

func TestCleanDirectory(t *testing.T) {
	base := t.TempDir()

	settings := InitSettings{Directory: filepath.Join(base, "a", "..", "b") + string(filepath.Separator)}

	dir, err := settings.CleanDirectory()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "b"), dir)

	relative := InitSettings{Directory: "logs"}

	dir, err = relative.CleanDirectory()
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(dir))
}
