// Package constants provides the timing and retry defaults shared by the
// sink, dispatcher and supervisor packages.
package constants

import "time"

const (
	// NonProductionEnvironment is the environment name for non-production environments.
	NonProductionEnvironment = "development"

	// RetryAttempts is the total number of attempts for one file operation.
	RetryAttempts = 3
	// RetryBaseDelay is multiplied by the attempt number to get the backoff.
	RetryBaseDelay = 25 * time.Millisecond
	// RetryBudget caps the wall-clock time spent retrying one write.
	RetryBudget = 2 * time.Second

	// CleanupWaitTimeout bounds how long disposal waits for a running cleanup.
	CleanupWaitTimeout = 500 * time.Millisecond
	// CleanupPollInterval is the polling step used while waiting for cleanup.
	CleanupPollInterval = 10 * time.Millisecond
	// CompressionWaitTimeout bounds how long disposal waits for queued compressions.
	CompressionWaitTimeout = 5 * time.Second
	// CompressionQueueSize is the number of closed files that may wait for compression.
	CompressionQueueSize = 64

	// HealthCheckInterval is the default period of the supervisor health check.
	HealthCheckInterval = 5 * time.Minute
	// RestartDelay is the pause before an automatic reinitialize.
	RestartDelay = 3 * time.Second
	// ShutdownWaitTimeout bounds how long Initialize waits for a running shutdown.
	ShutdownWaitTimeout = 5 * time.Second
)
