package output

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/sinklog/internal/constants"
	"github.com/hyp3rd/sinklog/internal/utils"
)

type logFile struct {
	path    string
	modTime time.Time
}

// TriggerCleanup starts a retention pass on a background goroutine. It
// returns false without doing anything when retention is disabled or a pass
// is already running; overlapping triggers are coalesced, not queued.
func (s *FileSink) TriggerCleanup() bool {
	if !s.retentionEnabled() || !s.cleanupRunning.CompareAndSwap(false, true) {
		return false
	}

	go func() {
		defer s.cleanupRunning.Store(false)

		s.cleanup()
	}()

	return true
}

// RunCleanup runs a retention pass on the calling goroutine. It returns false
// when another pass is already running.
func (s *FileSink) RunCleanup() bool {
	if !s.cleanupRunning.CompareAndSwap(false, true) {
		return false
	}

	defer s.cleanupRunning.Store(false)

	s.cleanup()

	return true
}

func (s *FileSink) retentionEnabled() bool {
	return s.cfg.MaxFileCount > 0 || s.cfg.MaxAgeDays > 0
}

// waitForCleanup polls until no cleanup is running or timeout elapses.
func (s *FileSink) waitForCleanup(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for s.cleanupRunning.Load() {
		if time.Now().After(deadline) {
			return false
		}

		time.Sleep(constants.CleanupPollInterval)
	}

	return true
}

func (s *FileSink) cleanup() {
	defer func() {
		if r := recover(); r != nil {
			s.report(ewrap.Newf("retention cleanup panicked: %v", r))
		}
	}()

	if s.beforeCleanup != nil {
		s.beforeCleanup()
	}

	s.stats.cleanupRuns.Add(1)

	files, err := s.listLogFiles()
	if err != nil {
		s.report(ewrap.Wrap(err, "listing log files for cleanup").
			WithMetadata("directory", s.cfg.Directory))

		return
	}

	slices.SortFunc(files, func(a, b logFile) int {
		return b.modTime.Compare(a.modTime)
	})

	removed := make(map[string]struct{})
	emptied := make(map[string]struct{})

	remove := func(file logFile) {
		if _, done := removed[file.path]; done || s.protected(file.path) {
			return
		}

		removed[file.path] = struct{}{}

		if s.deleteFile(file.path) {
			emptied[filepath.Dir(file.path)] = struct{}{}
		}
	}

	if s.cfg.MaxFileCount > 0 && len(files) > s.cfg.MaxFileCount {
		for _, file := range files[s.cfg.MaxFileCount:] {
			remove(file)
		}
	}

	if s.cfg.MaxAgeDays > 0 {
		cutoff := s.cfg.Now().AddDate(0, 0, -s.cfg.MaxAgeDays)

		for _, file := range files {
			if file.modTime.Before(cutoff) {
				remove(file)
			}
		}
	}

	s.removeEmptyDirs(emptied)
}

// protected reports whether path is in use by the writer or the compressor.
func (s *FileSink) protected(path string) bool {
	if path == s.Path() {
		return true
	}

	if _, busy := s.compressing.Load(path); busy {
		return true
	}

	_, busy := s.compressing.Load(strings.TrimSuffix(path, s.compressedSuffix()))

	return busy
}

// listLogFiles returns the sink's files in the base directory and, one level
// down, in date sub-directories.
func (s *FileSink) listLogFiles() ([]logFile, error) {
	var files []logFile

	err := s.walkLogDir(s.namePattern(), func(path string, entry fs.DirEntry) error {
		info, err := entry.Info()
		if err != nil {
			if utils.IsNotExist(err) {
				return nil
			}

			return err
		}

		files = append(files, logFile{path: path, modTime: info.ModTime()})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// walkLogDir calls fn for every file whose name matches pattern in the base
// directory and its direct sub-directories.
func (s *FileSink) walkLogDir(pattern *regexp.Regexp, fn func(path string, entry fs.DirEntry) error) error {
	root := filepath.Clean(s.cfg.Directory)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if utils.IsNotExist(err) {
				return nil
			}

			return err
		}

		if entry.IsDir() {
			if path != root && filepath.Dir(path) != root {
				return filepath.SkipDir
			}

			return nil
		}

		if !pattern.MatchString(entry.Name()) {
			return nil
		}

		return fn(path, entry)
	})
	if err != nil {
		return ewrap.Wrapf(err, "walking log directory")
	}

	return nil
}

func (s *FileSink) namePattern() *regexp.Regexp {
	suffix := regexp.QuoteMeta(s.cfg.Extension)
	if s.cfg.Compress {
		suffix += "(" + regexp.QuoteMeta(s.compressedSuffix()) + ")?"
	}

	return s.patternWithSuffix(suffix)
}

func (s *FileSink) stagingPattern() *regexp.Regexp {
	return s.patternWithSuffix(regexp.QuoteMeta(s.cfg.Extension + compressingSuffix))
}

func (s *FileSink) patternWithSuffix(suffix string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(s.cfg.BaseName) + `_\d{8}_\d+` + suffix + "$")
}

// deleteFile removes path with the sink's retry policy, clearing the
// read-only bit first. A file that is already gone is not an error.
func (s *FileSink) deleteFile(path string) bool {
	deleted := false

	err := s.retry.do(func() error {
		err := utils.ClearReadOnly(path)
		if utils.IsNotExist(err) {
			return nil
		}

		if err != nil {
			return err
		}

		err = os.Remove(path)
		if utils.IsNotExist(err) {
			return nil
		}

		if err != nil {
			return err //nolint:wrapcheck // wrapped below.
		}

		deleted = true

		return nil
	})
	if err != nil {
		s.report(ewrap.Wrap(err, "deleting expired log file").WithMetadata("path", path))

		return false
	}

	if deleted {
		s.stats.filesDeleted.Add(1)
	}

	return deleted
}

// removeEmptyDirs removes date sub-directories left empty by a cleanup pass.
func (s *FileSink) removeEmptyDirs(dirs map[string]struct{}) {
	root := filepath.Clean(s.cfg.Directory)

	for dir := range dirs {
		if filepath.Clean(dir) == root {
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}

		err = os.Remove(dir)
		if err != nil && !utils.IsNotExist(err) {
			s.report(ewrap.Wrap(err, "removing empty log directory").WithMetadata("path", dir))
		}
	}
}
