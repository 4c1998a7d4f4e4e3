package supervisor

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/robfig/cron/v3"

	"github.com/hyp3rd/sinklog"
)

const healthSource = "sinklog.health"

// ErrHealthCheckFailed is reported with an Unhealthy status.
var ErrHealthCheckFailed = ewrap.New("health check write failed")

// CheckHealth writes a debug event through every registered sink when the
// global mask enables CategoryDebug. The check fails when the supervisor is
// not initialized, no sink accepted the event, or any sink failed it. With
// debug masked out nothing is written; every sink is flushed instead and a
// flush error fails the check. A failure emits an Unhealthy status and,
// with auto-restart on, schedules a delayed Reinitialize. The first success
// after a failure emits Healthy.
func (s *Supervisor) CheckHealth() bool {
	err := s.selfTest()
	if err == nil {
		if s.unhealthy.CompareAndSwap(true, false) {
			s.opts.Observers.NotifyStatus(sinklog.StatusHealthy, nil)
		}

		return true
	}

	s.unhealthy.Store(true)
	s.opts.Observers.NotifyStatus(sinklog.StatusUnhealthy, err)

	if s.opts.HealthCheck.AutoRestart {
		s.scheduleRestart()
	}

	return false
}

func (s *Supervisor) selfTest() error {
	if !s.Initialized() {
		return ewrap.Wrap(ErrHealthCheckFailed, "supervisor is not initialized")
	}

	if !s.dispatcher.IsEnabled(sinklog.CategoryDebug) {
		return s.flushCheck()
	}

	event := sinklog.NewEvent(sinklog.CategoryDebug, sinklog.ProcessIdentity(), healthSource,
		sinklog.CurrentThreadID(), "health check")

	delivered, failed := s.dispatcher.Deliver(event)
	if failed > 0 || delivered == 0 {
		return ewrap.Wrap(ErrHealthCheckFailed, "health event not written").
			WithMetadata("delivered", delivered).
			WithMetadata("failed", failed)
	}

	return nil
}

func (s *Supervisor) flushCheck() error {
	if s.dispatcher.Registry().Count() == 0 {
		return ewrap.Wrap(ErrHealthCheckFailed, "no sink registered")
	}

	err := s.dispatcher.Flush()
	if err != nil {
		return ewrap.Wrap(ErrHealthCheckFailed, "flushing sinks").
			WithMetadata("cause", err.Error())
	}

	return nil
}

// startHealthCheck arms the periodic check. Overlapping runs are skipped and
// a panicking run is recovered.
func (s *Supervisor) startHealthCheck() {
	if !s.opts.HealthCheck.Enabled {
		return
	}

	logger := cronLogger{report: s.opts.ErrorHandler}

	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	scheduler.Schedule(cron.Every(s.opts.HealthCheck.Interval), cron.FuncJob(func() {
		s.CheckHealth()
	}))

	s.mu.Lock()
	s.health = scheduler
	s.mu.Unlock()

	scheduler.Start()
}

// stopHealthCheck stops the scheduler and waits for a running check.
func (s *Supervisor) stopHealthCheck() {
	s.mu.Lock()
	scheduler := s.health
	s.health = nil
	s.mu.Unlock()

	if scheduler == nil {
		return
	}

	<-scheduler.Stop().Done()
}

// scheduleRestart runs Reinitialize after the restart delay on its own
// goroutine. At most one restart is pending at a time.
func (s *Supervisor) scheduleRestart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.restartsOpen || s.settings == nil || !s.restartPending.CompareAndSwap(false, true) {
		return
	}

	ctx := s.restartCtx
	delay := s.opts.HealthCheck.RestartDelay

	s.restartWG.Add(1)

	go func() {
		defer s.restartWG.Done()
		defer s.restartPending.Store(false)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.reinitialize(ctx)
	}()
}

// openRestartsLocked allows restarts again after a successful Initialize.
// The caller holds mu.
func (s *Supervisor) openRestartsLocked() {
	if s.restartsOpen {
		return
	}

	s.restartCtx, s.restartCancel = context.WithCancel(context.Background())
	s.restartsOpen = true
}

// cancelRestarts cancels pending restarts and waits for them to return.
func (s *Supervisor) cancelRestarts() {
	s.closeRestarts()
	s.restartWG.Wait()
}

// closeRestarts cancels pending restarts without waiting for them.
func (s *Supervisor) closeRestarts() {
	s.mu.Lock()
	s.restartsOpen = false
	s.restartCancel()
	s.mu.Unlock()
}

// cronLogger forwards scheduler errors to the supervisor's error handler.
type cronLogger struct {
	report func(error)
}

func (cronLogger) Info(string, ...any) {}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	wrapped := ewrap.Wrap(err, msg)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			wrapped = wrapped.WithMetadata(key, keysAndValues[i+1])
		}
	}

	l.report(wrapped)
}
