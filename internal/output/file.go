// Package output provides the sinks that record log events.
//
// FileSink is the durable sink. It writes one tab-separated line per event
// and handles the rest of a file's life:
// - Size and date rotation into {base}_{yyyyMMdd}_{seq}{ext} files
// - Bounded retry with linear backoff on I/O failures
// - Background gzip compression of closed files, resumed after a crash
// - Background retention cleanup by count and by age, one run at a time
//
// ConsoleSink writes coloured lines to a terminal and MemorySink keeps the
// most recent events in a ring buffer. All sinks implement sinklog.Sink and
// are safe for concurrent use.
package output

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/klauspost/compress/gzip"

	"github.com/hyp3rd/sinklog"
	"github.com/hyp3rd/sinklog/internal/constants"
	"github.com/hyp3rd/sinklog/internal/utils"
)

const dateLayout = "20060102"

// FileConfig holds configuration for a FileSink.
type FileConfig struct {
	// Directory is the base directory for log files.
	Directory string
	// BaseName prefixes every file name.
	BaseName string
	// Extension is the plain file extension (default ".log").
	Extension string
	// DateSubdirectories places files under Directory/yyyyMMdd/.
	DateSubdirectories bool
	// MaxSize is the size in bytes that triggers rotation (0 = unlimited).
	MaxSize int64
	// DailyRotation rotates when the event's local date changes.
	DailyRotation bool
	// MaxFileCount keeps at most this many files (0 = unlimited).
	MaxFileCount int
	// MaxAgeDays removes files last written before now minus this many days (0 = unlimited).
	MaxAgeDays int
	// Compress gzips every closed file in the background.
	Compress bool
	// CompressionLevel is the gzip level (0 selects gzip.DefaultCompression).
	CompressionLevel int
	// AutoFlush syncs the file after every append.
	AutoFlush bool
	// FileMode sets the permissions for new log files.
	FileMode os.FileMode
	// EnabledCategories filters the events this sink records.
	EnabledCategories sinklog.Category
	// ErrorHandler receives failures that cannot be returned to a caller.
	ErrorHandler func(error)
	// Now returns the current time for retention decisions (default time.Now).
	Now func() time.Time
}

// FileConfigFromSettings maps supervisor settings to a file sink configuration.
func FileConfigFromSettings(settings sinklog.InitSettings, directory string) FileConfig {
	return FileConfig{
		Directory:          directory,
		BaseName:           settings.AppName,
		Extension:          sinklog.DefaultExtension,
		DateSubdirectories: settings.DateSubdirectories,
		MaxSize:            settings.MaxFileSize,
		DailyRotation:      settings.DailyRotation,
		MaxFileCount:       settings.MaxFileCount,
		MaxAgeDays:         settings.MaxAgeDays,
		Compress:           settings.EnableCompression,
		AutoFlush:          settings.AutoFlush,
		EnabledCategories:  sinklog.CategoryAll,
	}
}

type fileStats struct {
	written           atomic.Uint64
	failed            atomic.Uint64
	retried           atomic.Uint64
	rotations         atomic.Uint64
	compressed        atomic.Uint64
	compressionFailed atomic.Uint64
	filesDeleted      atomic.Uint64
	cleanupRuns       atomic.Uint64
}

// FileSink writes events to rotating log files. The open handle and rotation
// state are owned by the sink and only touched under mu; compression and
// cleanup run on background goroutines and never take mu.
type FileSink struct {
	sinklog.CategoryFilter

	cfg   FileConfig
	retry retryPolicy

	mu       sync.Mutex
	file     *os.File
	path     string
	fileDate string
	seq      int
	size     int64
	closed   bool

	activePath     atomic.Value // string
	compressQ      *taskQueue
	compressing    sync.Map // plain path -> struct{}
	cleanupRunning atomic.Bool
	beforeCleanup  func()
	writeString    func(file *os.File, line string) (int, error)

	stats fileStats
}

// NewFileSink creates a file sink. No file is opened until the first write.
func NewFileSink(config FileConfig) (*FileSink, error) {
	if config.Directory == "" {
		return nil, ewrap.Wrap(sinklog.ErrEmptyDirectory, "creating file sink")
	}

	if config.BaseName == "" {
		return nil, ewrap.Wrap(sinklog.ErrEmptyAppName, "creating file sink")
	}

	if config.Extension == "" {
		config.Extension = sinklog.DefaultExtension
	}

	if config.FileMode == 0 {
		config.FileMode = sinklog.LogFilePermissions
	}

	if config.CompressionLevel == 0 {
		config.CompressionLevel = gzip.DefaultCompression
	}

	if config.ErrorHandler == nil {
		config.ErrorHandler = sinklog.ReportError
	}

	if config.Now == nil {
		config.Now = time.Now
	}

	err := utils.EnsureDir(config.Directory, sinklog.LogDirPermissions)
	if err != nil {
		return nil, err
	}

	sink := &FileSink{
		CategoryFilter: sinklog.CategoryFilter{EnabledCategories: config.EnabledCategories},
		cfg:            config,
		retry:          defaultRetryPolicy(),
	}

	sink.retry.onRetry = func(uint, error) { sink.stats.retried.Add(1) }
	sink.writeString = (*os.File).WriteString
	sink.activePath.Store("")
	sink.compressQ = newTaskQueue(constants.CompressionQueueSize, sink.report)
	sink.recoverInterrupted()

	return sink, nil
}

// Write appends one event. It never panics; it returns false when the event
// could not be written after retries, and the failure goes to the error handler.
func (s *FileSink) Write(event *sinklog.LogEvent) bool {
	if !s.Accepts(event) {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(event)
}

// WriteBatch appends events in order under one lock acquisition.
func (s *FileSink) WriteBatch(events []*sinklog.LogEvent) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0

	for _, event := range events {
		if !s.Accepts(event) {
			continue
		}

		if s.writeLocked(event) {
			written++
		}
	}

	return written
}

// Flush syncs the open file to disk. A closed sink returns
// sinklog.ErrSinkClosed.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ewrap.Wrap(sinklog.ErrSinkClosed, "flushing log file")
	}

	if s.file == nil {
		return nil
	}

	err := s.file.Sync()
	if err != nil {
		return ewrap.Wrapf(err, "syncing log file").WithMetadata("path", s.path)
	}

	return nil
}

// CloseFile closes the open file, if any, and schedules its compression.
// The sink stays usable; the next write opens a file again.
func (s *FileSink) CloseFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeFileLocked(true)
}

// Close disposes the sink: it closes the open file (triggering its final
// compression), waits briefly for a running cleanup, then drains the
// compression queue. Later writes fail with sinklog.ErrSinkClosed.
func (s *FileSink) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	closeErr := s.closeFileLocked(true)

	s.mu.Unlock()

	errorGroup := ewrap.NewErrorGroup()

	if closeErr != nil {
		errorGroup.Add(closeErr)
	}

	if !s.waitForCleanup(constants.CleanupWaitTimeout) {
		errorGroup.Add(ewrap.Wrap(ErrDrainTimeout, "waiting for retention cleanup"))
	}

	err := s.compressQ.Close(constants.CompressionWaitTimeout)
	if err != nil {
		errorGroup.Add(err)
	}

	if errorGroup.HasErrors() {
		return errorGroup
	}

	return nil
}

// Path returns the path of the open file, or "" when none is open.
func (s *FileSink) Path() string {
	path, _ := s.activePath.Load().(string)

	return path
}

// Stats returns a snapshot of the sink's counters.
func (s *FileSink) Stats() sinklog.SinkStats {
	return sinklog.SinkStats{
		Written:            s.stats.written.Load(),
		Failed:             s.stats.failed.Load(),
		Retried:            s.stats.retried.Load(),
		Rotations:          s.stats.rotations.Load(),
		Compressed:         s.stats.compressed.Load(),
		CompressionFailed:  s.stats.compressionFailed.Load(),
		FilesDeleted:       s.stats.filesDeleted.Load(),
		CleanupRuns:        s.stats.cleanupRuns.Load(),
		CompressionPending: s.compressQ.Pending(),
	}
}

func (s *FileSink) writeLocked(event *sinklog.LogEvent) bool {
	if s.closed {
		s.stats.failed.Add(1)
		s.report(ewrap.Wrap(sinklog.ErrSinkClosed, "writing log event"))

		return false
	}

	line := event.Serialize() + "\n"

	err := s.retry.do(func() error {
		openErr := s.ensureOpen(event.Timestamp)
		if openErr != nil {
			return openErr
		}

		return s.appendLine(line)
	})
	if err != nil {
		s.stats.failed.Add(1)
		s.report(ewrap.Wrap(err, "writing log event").
			WithMetadata("path", s.path).
			WithMetadata("source", event.Source))

		return false
	}

	s.stats.written.Add(1)

	return true
}

// ensureOpen makes sure a file suited for the given instant is open,
// rotating the current one when its date or size limit has been crossed.
func (s *FileSink) ensureOpen(at time.Time) error {
	date := at.Local().Format(dateLayout)

	if s.file != nil {
		if !s.needsRotation(date) {
			return nil
		}

		nextSeq := 1
		if date == s.fileDate {
			nextSeq = s.seq + 1
		}

		s.stats.rotations.Add(1)

		err := s.closeFileLocked(true)
		if err != nil {
			s.report(err)
		}

		return s.openLocked(date, nextSeq)
	}

	startSeq := 1
	if date == s.fileDate && s.seq > 0 {
		startSeq = s.seq
	}

	return s.openLocked(date, startSeq)
}

func (s *FileSink) needsRotation(date string) bool {
	if s.cfg.DailyRotation && date != s.fileDate {
		return true
	}

	return s.cfg.MaxSize > 0 && s.size >= s.cfg.MaxSize
}

func (s *FileSink) appendLine(line string) error {
	if s.file == nil {
		return ewrap.New("no open log file")
	}

	offset := s.size

	n, err := s.writeString(s.file, line)
	s.size += int64(n)

	if err == nil && s.cfg.AutoFlush {
		err = s.file.Sync()
	}

	if err != nil {
		if n > 0 {
			s.truncateLocked(offset)
		}

		// Drop the handle so the next attempt reopens the file.
		closeErr := s.closeFileLocked(false)
		if closeErr != nil {
			s.report(closeErr)
		}

		return ewrap.Wrapf(err, "appending to log file").WithMetadata("path", s.path)
	}

	return nil
}

// truncateLocked cuts the open file back to offset so that a retried
// append does not follow a partial or unsynced copy of the same line.
func (s *FileSink) truncateLocked(offset int64) {
	err := s.file.Truncate(offset)
	if err != nil {
		s.report(ewrap.Wrapf(err, "discarding partial line").
			WithMetadata("path", s.path).
			WithMetadata("offset", offset))

		return
	}

	s.size = offset
}

// closeFileLocked flushes and releases the handle. It is a no-op when no
// file is open. With compress set and compression enabled the closed file is
// handed to the compression queue.
func (s *FileSink) closeFileLocked(compress bool) error {
	if s.file == nil {
		return nil
	}

	file, path := s.file, s.path
	s.file = nil
	s.size = 0
	s.activePath.Store("")

	syncErr := file.Sync()
	closeErr := file.Close()

	if compress && s.cfg.Compress {
		s.scheduleCompression(path)
	}

	switch {
	case closeErr != nil:
		return ewrap.Wrapf(closeErr, "closing log file").WithMetadata("path", path)
	case syncErr != nil:
		return ewrap.Wrapf(syncErr, "final sync before close").WithMetadata("path", path)
	default:
		return nil
	}
}

func (s *FileSink) report(err error) {
	if err == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			sinklog.ReportError(err)
		}
	}()

	s.cfg.ErrorHandler(err)
}
