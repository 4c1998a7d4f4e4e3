package output

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyp3rd/ewrap"
	"github.com/klauspost/compress/gzip"

	"github.com/hyp3rd/sinklog/internal/utils"
)

const (
	// compressionBufferSize is the copy buffer used while compressing.
	compressionBufferSize = 32 * 1024
	// compressingSuffix marks a closed file that is being compressed.
	compressingSuffix = ".compressing"
)

//nolint:gochecknoglobals // Global variable for the compression buffer pool.
var compressionBufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, compressionBufferSize)

		return &buf
	},
}

// stagingInUse holds the staging paths being compressed by any sink in the
// process, so recovery never touches a live one.
//
//nolint:gochecknoglobals // process-wide by nature.
var stagingInUse sync.Map

// scheduleCompression hands a closed plain file to the compression queue.
// The path stays reserved until the task finishes so that the writer never
// reopens it and cleanup never deletes it.
func (s *FileSink) scheduleCompression(path string) {
	s.compressing.Store(path, struct{}{})

	err := s.compressQ.Submit(func() {
		defer s.compressing.Delete(path)

		s.compressClosedFile(path)
	})
	if err != nil {
		s.compressing.Delete(path)
		s.stats.compressionFailed.Add(1)
		s.report(ewrap.Wrap(err, "scheduling compression").WithMetadata("path", path))
	}
}

// compressClosedFile renames path aside, gzips it into path+".gz", verifies the
// result and removes the renamed original. On failure the original name is
// restored so the plain file stays available for manual recovery.
func (s *FileSink) compressClosedFile(path string) {
	target := path + s.compressedSuffix()
	staging := path + compressingSuffix

	stagingInUse.Store(staging, struct{}{})
	defer stagingInUse.Delete(staging)

	err := os.Rename(path, staging)
	if err != nil {
		s.stats.compressionFailed.Add(1)
		s.report(ewrap.Wrap(ErrCompressionFailed, "renaming closed file").
			WithMetadata("path", path).
			WithMetadata("cause", err.Error()))

		return
	}

	written, err := compressFile(staging, target, filepath.Base(path), s.cfg.CompressionLevel)
	if err == nil {
		err = verifyArchive(target, written)
	}

	if err != nil {
		s.stats.compressionFailed.Add(1)
		removeIfExists(target)

		restoreErr := os.Rename(staging, path)
		if restoreErr != nil {
			err = ewrap.Wrap(err, "restoring plain file failed").
				WithMetadata("staging", staging).
				WithMetadata("restore_error", restoreErr.Error())
		}

		s.report(ewrap.Wrap(err, "compressing log file").
			WithMetadata("path", path).
			WithMetadata("compressed_path", target))

		return
	}

	err = os.Remove(staging)
	if err != nil && !utils.IsNotExist(err) {
		s.report(ewrap.Wrap(err, "removing compressed original").WithMetadata("path", staging))
	}

	s.stats.compressed.Add(1)
}

// recoverInterrupted restores files left in staging by a compression that
// never finished. Each one gets its plain name back, a partial archive is
// removed, and with compression enabled the file is queued again. A staging
// file whose plain name is taken is left alone and reported.
func (s *FileSink) recoverInterrupted() {
	var stale []string

	err := s.walkLogDir(s.stagingPattern(), func(path string, _ fs.DirEntry) error {
		if _, live := stagingInUse.Load(path); !live {
			stale = append(stale, path)
		}

		return nil
	})
	if err != nil {
		s.report(ewrap.Wrap(err, "looking for interrupted compressions"))
	}

	for _, staging := range stale {
		plain := strings.TrimSuffix(staging, compressingSuffix)

		_, err := os.Stat(plain)
		if !utils.IsNotExist(err) {
			s.report(ewrap.Wrap(ErrCompressionFailed, "cannot restore interrupted compression").
				WithMetadata("staging", staging).
				WithMetadata("path", plain))

			continue
		}

		removeIfExists(plain + s.compressedSuffix())

		err = os.Rename(staging, plain)
		if err != nil {
			s.report(ewrap.Wrapf(err, "restoring interrupted compression").WithMetadata("path", staging))

			continue
		}

		if s.cfg.Compress {
			s.scheduleCompression(plain)
		}
	}
}

// compressFile streams source through gzip into target and returns the
// number of plain bytes it consumed.
func compressFile(source, target, originalName string, level int) (int64, error) {
	//nolint:gosec // G304: paths are built by the sink from its own directory.
	src, err := os.Open(source)
	if err != nil {
		return 0, ewrap.Wrapf(err, "opening source file").
			WithMetadata("path", source)
	}

	defer src.Close()

	//nolint:gosec // G304: see above.
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, ewrap.Wrapf(err, "creating compressed file").
			WithMetadata("path", target)
	}

	written, err := gzipInto(dst, src, originalName, level)
	if err != nil {
		dst.Close()

		return 0, ewrap.Wrap(err, "compressing").WithMetadata("path", target)
	}

	syncErr := dst.Sync()
	closeErr := dst.Close()

	if syncErr != nil || closeErr != nil {
		return 0, ewrap.Wrapf(errors.Join(syncErr, closeErr), "finishing compressed file").
			WithMetadata("path", target)
	}

	return written, nil
}

// gzipInto writes the gzip encoding of src to dst through a pooled buffer.
func gzipInto(dst io.Writer, src io.Reader, originalName string, level int) (int64, error) {
	gzipWriter, err := gzip.NewWriterLevel(dst, level)
	if err != nil {
		return 0, ewrap.Wrapf(err, "creating gzip writer").WithMetadata("level", level)
	}

	gzipWriter.Name = originalName

	bufPtr, ok := compressionBufferPool.Get().(*[]byte)
	if !ok {
		buf := make([]byte, compressionBufferSize)
		bufPtr = &buf
	}

	defer compressionBufferPool.Put(bufPtr)

	// Hide WriterTo so the pooled buffer is the one used.
	written, err := io.CopyBuffer(gzipWriter, struct{ io.Reader }{src}, *bufPtr)
	if err != nil {
		gzipWriter.Close()

		return 0, ewrap.Wrapf(err, "copying file content")
	}

	err = gzipWriter.Close()
	if err != nil {
		return 0, ewrap.Wrapf(err, "closing gzip writer")
	}

	return written, nil
}

// verifyArchive decodes the whole archive at path and checks that it holds
// exactly want plain bytes.
func verifyArchive(path string, want int64) error {
	//nolint:gosec // G304: see compressFile.
	file, err := os.Open(path)
	if err != nil {
		return ewrap.Wrapf(err, "opening archive for verification").WithMetadata("path", path)
	}

	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return ewrap.Wrap(ErrCompressionFailed, "archive has no gzip header").
			WithMetadata("path", path).
			WithMetadata("cause", err.Error())
	}

	defer gzipReader.Close()

	got, err := io.Copy(io.Discard, gzipReader)
	if err != nil {
		return ewrap.Wrap(ErrCompressionFailed, "archive does not decode").
			WithMetadata("path", path).
			WithMetadata("cause", err.Error())
	}

	if got != want {
		return ewrap.Wrap(ErrCompressionFailed, "archive size mismatch").
			WithMetadata("path", path).
			WithMetadata("want", want).
			WithMetadata("got", got)
	}

	return nil
}

func removeIfExists(path string) {
	//nolint:errcheck // best effort; the file may never have been created.
	os.Remove(path)
}
