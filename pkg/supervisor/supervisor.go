// Package supervisor owns the lifecycle of a sink set: Initialize builds and
// registers the file sink (plus an optional console sink) from InitSettings,
// Shutdown disposes them, and a periodic health check can reinitialize the
// whole set after a failure.
package supervisor

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/hyp3rd/sinklog"
	"github.com/hyp3rd/sinklog/internal/constants"
	"github.com/hyp3rd/sinklog/internal/output"
	"github.com/hyp3rd/sinklog/pkg/dispatch"
)

var (
	// ErrNoSettings is returned by Reinitialize before any successful Initialize.
	ErrNoSettings = ewrap.New("no settings from a previous initialization")

	// ErrShutdownInProgress is returned when a running shutdown does not finish in time.
	ErrShutdownInProgress = ewrap.New("shutdown in progress")
)

// Supervisor manages initialization, shutdown and health of one sink set.
// Each Supervisor is independent; several can live in one process.
type Supervisor struct {
	opts       Options
	dispatcher *dispatch.Dispatcher

	// lifecycle serializes Initialize and Shutdown. It is a channel so that
	// Initialize can give up after a bounded wait.
	lifecycle chan struct{}

	mu       sync.Mutex
	settings *sinklog.InitSettings
	fileSink *output.FileSink
	owned    []sinklog.Sink
	health   *cron.Cron

	restartCtx     context.Context //nolint:containedctx // cancels delayed restarts on shutdown.
	restartCancel  context.CancelFunc
	restartsOpen   bool
	restartWG      sync.WaitGroup
	restartPending atomic.Bool
	reinit         singleflight.Group

	initialized atomic.Bool
	unhealthy   atomic.Bool
}

// New creates a supervisor. Nothing is written until Initialize succeeds.
func New(opts Options) *Supervisor {
	opts.applyDefaults()

	dispatcher := dispatch.New(dispatch.NewRegistry(),
		dispatch.WithObservers(opts.Observers),
		dispatch.WithErrorHandler(opts.ErrorHandler))

	return &Supervisor{
		opts:          opts,
		dispatcher:    dispatcher,
		lifecycle:     make(chan struct{}, 1),
		restartCancel: func() {},
	}
}

// Dispatcher returns the dispatcher callers log through.
func (s *Supervisor) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Observers returns the observers notified by this supervisor.
func (s *Supervisor) Observers() *sinklog.Observers {
	return s.opts.Observers
}

// Initialized reports whether the last Initialize succeeded and no Shutdown
// followed it.
func (s *Supervisor) Initialized() bool {
	return s.initialized.Load()
}

// Settings returns the settings of the last successful Initialize.
func (s *Supervisor) Settings() (sinklog.InitSettings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		return sinklog.InitSettings{}, false
	}

	return *s.settings, true
}

// Stats returns the counters of the current file sink.
func (s *Supervisor) Stats() sinklog.SinkStats {
	s.mu.Lock()
	fileSink := s.fileSink
	s.mu.Unlock()

	if fileSink == nil {
		return sinklog.SinkStats{}
	}

	return fileSink.Stats()
}

// Initialize tears down any previous sink set and builds a new one from
// settings. It never panics; failures are reported through an
// InitializationFailed status change and a false return, leaving no sink
// registered.
func (s *Supervisor) Initialize(settings sinklog.InitSettings) bool {
	return s.finishInitialize(s.initialize(context.Background(), settings))
}

func (s *Supervisor) finishInitialize(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if err != nil {
		s.opts.Observers.NotifyStatus(sinklog.StatusInitializationFailed, err)
		sinklog.ReportError(err)

		return false
	}

	s.opts.Observers.NotifyStatus(sinklog.StatusInitialized, nil)

	return true
}

// Reinitialize runs Initialize again with the last successful settings.
// Concurrent calls share one run.
func (s *Supervisor) Reinitialize() bool {
	return s.reinitialize(context.Background())
}

// reinitialize is abandoned silently when ctx is cancelled before the
// lifecycle slot is acquired.
func (s *Supervisor) reinitialize(ctx context.Context) bool {
	settings, ok := s.Settings()
	if !ok {
		s.opts.Observers.NotifyStatus(sinklog.StatusInitializationFailed, ErrNoSettings)

		return false
	}

	result, _, _ := s.reinit.Do("reinitialize", func() (any, error) {
		return s.finishInitialize(s.initialize(ctx, settings)), nil
	})

	initialized, _ := result.(bool)

	return initialized
}

// Shutdown disposes the sinks Initialize built, clears the registry and
// forgets the stored settings. Options.Sinks are left open. Pending automatic restarts are cancelled.
func (s *Supervisor) Shutdown() error {
	return s.shutdown(true)
}

// Suspend is Shutdown without forgetting the settings, so a later
// Reinitialize restores the same sink set.
func (s *Supervisor) Suspend() error {
	return s.shutdown(false)
}

func (s *Supervisor) shutdown(clearSettings bool) error {
	s.stopHealthCheck()
	s.cancelRestarts()

	if !s.acquire(constants.ShutdownWaitTimeout) {
		s.opts.Observers.NotifyStatus(sinklog.StatusShutdownFailed, ErrShutdownInProgress)

		return ErrShutdownInProgress
	}

	// A restart that won the race for the slot may have re-armed both.
	s.stopHealthCheck()
	s.closeRestarts()

	err := s.teardownLocked()

	if clearSettings {
		s.mu.Lock()
		s.settings = nil
		s.mu.Unlock()
	}

	s.release()
	s.restartWG.Wait()

	if err != nil {
		s.opts.Observers.NotifyStatus(sinklog.StatusShutdownFailed, err)

		return err
	}

	s.opts.Observers.NotifyStatus(sinklog.StatusShutDown, nil)

	return nil
}

func (s *Supervisor) initialize(ctx context.Context, settings sinklog.InitSettings) error {
	err := settings.Validate()
	if err != nil {
		return ewrap.Wrap(err, "invalid settings")
	}

	directory, err := settings.CleanDirectory()
	if err != nil {
		return err
	}

	if !s.acquire(constants.ShutdownWaitTimeout) {
		return ewrap.Wrap(ErrShutdownInProgress, "initializing")
	}

	defer s.release()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.stopHealthCheck()

	err = s.teardownLocked()
	if err != nil {
		s.opts.ErrorHandler(ewrap.Wrap(err, "tearing down previous initialization"))
	}

	config := output.FileConfigFromSettings(settings, directory)
	config.ErrorHandler = s.opts.ErrorHandler

	fileSink, err := output.NewFileSink(config)
	if err != nil {
		return ewrap.Wrap(err, "creating file sink").WithMetadata("directory", directory)
	}

	owned := []sinklog.Sink{fileSink}

	if settings.EnableConsole {
		owned = append(owned, output.NewConsoleSink(s.opts.ConsoleWriter, s.opts.ConsoleColor, sinklog.CategoryAll))
	}

	s.dispatcher.SetEnabled(settings.EnabledCategories)

	for _, sink := range owned {
		s.dispatcher.AddSink(sink)
	}

	for _, sink := range s.opts.Sinks {
		s.dispatcher.AddSink(sink)
	}

	stored := settings
	stored.Directory = directory

	s.mu.Lock()
	s.settings = &stored
	s.fileSink = fileSink
	s.owned = owned
	s.openRestartsLocked()
	s.mu.Unlock()

	s.initialized.Store(true)

	s.startHealthCheck()

	return nil
}

// teardownLocked unregisters every sink and closes the ones Initialize
// built. Options.Sinks stay open; they are registered again by the next
// Initialize. The caller holds the lifecycle slot.
func (s *Supervisor) teardownLocked() error {
	s.initialized.Store(false)

	s.dispatcher.Registry().Clear()

	s.mu.Lock()
	owned := s.owned
	s.owned = nil
	s.fileSink = nil
	s.mu.Unlock()

	errorGroup := ewrap.NewErrorGroup()

	for _, sink := range owned {
		closer, ok := sink.(io.Closer)
		if !ok {
			continue
		}

		err := closer.Close()
		if err != nil {
			errorGroup.Add(ewrap.Wrap(err, "closing sink"))
		}
	}

	if errorGroup.HasErrors() {
		return errorGroup
	}

	return nil
}

func (s *Supervisor) acquire(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.lifecycle <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Supervisor) release() {
	<-s.lifecycle
}
