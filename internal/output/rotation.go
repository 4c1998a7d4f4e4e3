package output

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/sinklog"
	"github.com/hyp3rd/sinklog/internal/utils"
)

// maxSequence bounds the search for a usable file name within one day.
const maxSequence = 10000

// FileName returns the on-disk name of the plain file for date and seq:
// {base}_{yyyyMMdd}_{seq}{ext}.
func FileName(baseName, date string, seq int, extension string) string {
	return baseName + "_" + date + "_" + strconv.Itoa(seq) + extension
}

func (s *FileSink) compressedSuffix() string {
	return sinklog.CompressedSuffix
}

func (s *FileSink) dirFor(date string) string {
	if s.cfg.DateSubdirectories {
		return filepath.Join(s.cfg.Directory, date)
	}

	return s.cfg.Directory
}

// openLocked opens the first usable file for date starting at startSeq.
// A name is usable when nothing exists under it, or when a plain file under
// the size limit exists and is not handed to compression. The header is
// written only to a new or empty file.
func (s *FileSink) openLocked(date string, startSeq int) error {
	dir := s.dirFor(date)

	err := utils.EnsureDir(dir, sinklog.LogDirPermissions)
	if err != nil {
		return err
	}

	for seq := max(startSeq, 1); seq <= maxSequence; seq++ {
		path := filepath.Join(dir, FileName(s.cfg.BaseName, date, seq, s.cfg.Extension))

		size, usable, err := s.inspect(path)
		if err != nil {
			return err
		}

		if !usable {
			continue
		}

		//nolint:gosec // G304: the path is built from the sink's own directory and base name.
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, s.cfg.FileMode)
		if err != nil {
			return ewrap.Wrapf(err, "opening log file").WithMetadata("path", path)
		}

		if size == 0 {
			n, writeErr := file.WriteString(sinklog.Header + "\n")
			if writeErr != nil {
				file.Close()

				return ewrap.Wrapf(writeErr, "writing log header").WithMetadata("path", path)
			}

			size = int64(n)
		}

		s.file = file
		s.path = path
		s.fileDate = date
		s.seq = seq
		s.size = size
		s.activePath.Store(path)

		s.TriggerCleanup()

		return nil
	}

	return ewrap.Wrap(ErrSequenceExhausted, "opening log file").
		WithMetadata("directory", dir).
		WithMetadata("date", date)
}

// inspect reports the current size of path and whether the writer may use it.
func (s *FileSink) inspect(path string) (int64, bool, error) {
	if _, busy := s.compressing.Load(path); busy {
		return 0, false, nil
	}

	for _, variant := range []string{path + s.compressedSuffix(), path + compressingSuffix} {
		_, err := os.Stat(variant)
		if err == nil {
			return 0, false, nil
		}

		if !utils.IsNotExist(err) {
			return 0, false, ewrap.Wrapf(err, "checking log file").WithMetadata("path", variant)
		}
	}

	info, err := os.Stat(path)
	if utils.IsNotExist(err) {
		return 0, true, nil
	}

	if err != nil {
		return 0, false, ewrap.Wrapf(err, "checking log file").WithMetadata("path", path)
	}

	if s.cfg.MaxSize > 0 && info.Size() >= s.cfg.MaxSize {
		return info.Size(), false, nil
	}

	return info.Size(), true, nil
}
