// Package log provides the one-call entry point for applications using sinklog.
//
// NewWithDefaults picks settings by environment:
//
// - In non-production environments: every category, console output enabled
// - In production environments: debug and trace dropped, closed files compressed
//
// The returned supervisor is initialized, runs the periodic health check with
// automatic restart, and shuts down when ctx is cancelled.
//
// Usage:
//
//	sup, err := log.NewWithDefaults(ctx, "development", "user-service")
//	if err != nil {
//		panic(err)
//	}
//	defer sup.Shutdown()
//
//	sup.Dispatcher().Write(sinklog.CategoryInformation, "main", "service started")
package log

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/sinklog"
	"github.com/hyp3rd/sinklog/internal/constants"
	"github.com/hyp3rd/sinklog/pkg/supervisor"
)

// DirectoryEnv overrides the log directory chosen by NewWithDefaults.
const DirectoryEnv = "SINKLOG_DIRECTORY"

// Option adjusts NewWithDefaults.
type Option func(*config)

type config struct {
	directory string
	options   supervisor.Options
}

// WithDirectory sets the log directory.
func WithDirectory(dir string) Option {
	return func(c *config) {
		if dir != "" {
			c.directory = dir
		}
	}
}

// WithSupervisorOptions replaces the supervisor options.
func WithSupervisorOptions(opts supervisor.Options) Option {
	return func(c *config) {
		c.options = opts
	}
}

// SettingsFor returns the settings NewWithDefaults uses for environment.
func SettingsFor(environment, app, directory string) sinklog.InitSettings {
	if environment == constants.NonProductionEnvironment {
		return sinklog.DevelopmentSettings(app, directory)
	}

	return sinklog.ProductionSettings(app, directory)
}

// NewWithDefaults creates and initializes a supervisor for app. The log
// directory is taken from WithDirectory, then SINKLOG_DIRECTORY, then
// <tmp>/sinklog/<app>. Cancelling ctx shuts the supervisor down.
func NewWithDefaults(ctx context.Context, environment, app string, opts ...Option) (*supervisor.Supervisor, error) {
	cfg := config{
		directory: os.Getenv(DirectoryEnv),
		options:   supervisor.DefaultOptions(),
	}

	if cfg.directory == "" {
		cfg.directory = filepath.Join(os.TempDir(), "sinklog", app)
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	settings := SettingsFor(environment, app, cfg.directory)

	err := settings.Validate()
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to create logger").
			WithMetadata("environment", environment)
	}

	failures := make(chan error, 1)

	observers := cfg.options.Observers
	if observers == nil {
		observers = sinklog.NewObservers()
		cfg.options.Observers = observers
	}

	observers.OnStatus(func(change sinklog.StatusChange) {
		if change.Status != sinklog.StatusInitializationFailed {
			return
		}

		select {
		case failures <- change.Err:
		default:
		}
	})

	sup := supervisor.New(cfg.options)

	if !sup.Initialize(settings) {
		var initErr error = ewrap.New("initialization failed")

		select {
		case err := <-failures:
			if err != nil {
				initErr = err
			}
		default:
		}

		return nil, ewrap.Wrap(initErr, "failed to create logger").
			WithMetadata("directory", cfg.directory)
	}

	context.AfterFunc(ctx, func() {
		err := sup.Shutdown()
		if err != nil {
			sinklog.ReportError(err)
		}
	})

	return sup, nil
}
