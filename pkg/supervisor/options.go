package supervisor

import (
	"io"
	"time"

	"github.com/hyp3rd/sinklog"
	"github.com/hyp3rd/sinklog/internal/constants"
	"github.com/hyp3rd/sinklog/internal/output"
)

// ColorMode selects console coloring.
type ColorMode = output.ColorMode

const (
	// ColorModeAuto colors output only when it is a terminal.
	ColorModeAuto = output.ColorModeAuto
	// ColorModeAlways forces colors.
	ColorModeAlways = output.ColorModeAlways
	// ColorModeNever disables colors.
	ColorModeNever = output.ColorModeNever
)

// HealthCheck configures the periodic self-test.
type HealthCheck struct {
	// Enabled arms the check after every successful Initialize.
	Enabled bool
	// Interval between checks (default 5 minutes, at least one second).
	Interval time.Duration
	// AutoRestart schedules a Reinitialize after a failed check.
	AutoRestart bool
	// RestartDelay is the pause before that Reinitialize (default 3 seconds).
	RestartDelay time.Duration
}

// Options configures a Supervisor.
type Options struct {
	// Observers receives status changes and sink failures. A fresh set is
	// created when nil.
	Observers *sinklog.Observers
	// ConsoleWriter receives console output when EnableConsole is set
	// (default os.Stdout).
	ConsoleWriter io.Writer
	// ConsoleColor selects console coloring.
	ConsoleColor ColorMode
	// Sinks are registered next to the file sink on every Initialize and
	// unregistered on Shutdown. The caller owns them and closes them once
	// the supervisor is shut down.
	Sinks []sinklog.Sink
	// HealthCheck configures the periodic self-test.
	HealthCheck HealthCheck
	// ErrorHandler receives background failures of the file sink and sink
	// failures no OnSinkError handler observed (default sinklog.ReportError).
	ErrorHandler func(error)
}

// DefaultOptions returns options with the health check enabled at its
// default interval and auto-restart on.
func DefaultOptions() Options {
	return Options{
		HealthCheck: HealthCheck{
			Enabled:      true,
			Interval:     constants.HealthCheckInterval,
			AutoRestart:  true,
			RestartDelay: constants.RestartDelay,
		},
	}
}

func (o *Options) applyDefaults() {
	if o.Observers == nil {
		o.Observers = sinklog.NewObservers()
	}

	if o.HealthCheck.Interval <= 0 {
		o.HealthCheck.Interval = constants.HealthCheckInterval
	}

	if o.HealthCheck.RestartDelay <= 0 {
		o.HealthCheck.RestartDelay = constants.RestartDelay
	}

	if o.ErrorHandler == nil {
		o.ErrorHandler = sinklog.ReportError
	}
}
