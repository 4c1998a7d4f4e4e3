package output

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyp3rd/sinklog"
)

func touch(t *testing.T, path string, modTime time.Time) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("line\n"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestRetention_ByCount(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	for seq := 1; seq <= 5; seq++ {
		touch(t, filepath.Join(dir, FileName("app", "20260101", seq, ".log")), now.Add(-time.Duration(6-seq)*time.Hour))
	}

	sink, recorder := newTestSink(t, FileConfig{Directory: dir, MaxFileCount: 2})

	require.True(t, sink.RunCleanup())

	for seq := 1; seq <= 3; seq++ {
		assert.NoFileExists(t, filepath.Join(dir, FileName("app", "20260101", seq, ".log")))
	}

	assert.FileExists(t, filepath.Join(dir, FileName("app", "20260101", 4, ".log")))
	assert.FileExists(t, filepath.Join(dir, FileName("app", "20260101", 5, ".log")))

	assert.Equal(t, uint64(3), sink.Stats().FilesDeleted)
	assert.Empty(t, recorder.all())
}

func TestRetention_ByAgeIgnoresCountLimit(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := filepath.Join(dir, FileName("app", "20260101", 1, ".log"))
	recent := filepath.Join(dir, FileName("app", "20260101", 2, ".log"))

	touch(t, old, now.AddDate(0, 0, -31))
	touch(t, recent, now.Add(-time.Hour))

	sink, _ := newTestSink(t, FileConfig{
		Directory:    dir,
		MaxFileCount: 10,
		MaxAgeDays:   30,
		Now:          func() time.Time { return now },
	})

	require.True(t, sink.RunCleanup())

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
}

func TestRetention_OnlyTouchesOwnFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -90)

	foreign := []string{
		filepath.Join(dir, "other_20260101_1.log"),
		filepath.Join(dir, "app.txt"),
		filepath.Join(dir, "app_20260101_1.log.gz"),
		filepath.Join(dir, "app_2026_1.log"),
	}

	for _, path := range foreign {
		touch(t, path, old)
	}

	sink, _ := newTestSink(t, FileConfig{Directory: dir, MaxAgeDays: 1})

	require.True(t, sink.RunCleanup())

	for _, path := range foreign {
		assert.FileExists(t, path, "compressed files are ignored when compression is off")
	}
}

func TestRetention_IncludesCompressedFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)
	path := filepath.Join(dir, "app_20260101_1.log.gz")

	touch(t, path, old)

	sink, _ := newTestSink(t, FileConfig{Directory: dir, MaxAgeDays: 5, Compress: true})

	require.True(t, sink.RunCleanup())
	assert.NoFileExists(t, path)
}

func TestRetention_RemovesEmptiedDateDirectories(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)

	stale := filepath.Join(dir, "20260101", "app_20260101_1.log")
	keptDir := filepath.Join(dir, "20260102")
	kept := filepath.Join(keptDir, "app_20260102_1.log")

	touch(t, stale, old)
	touch(t, kept, time.Now())

	sink, _ := newTestSink(t, FileConfig{Directory: dir, MaxAgeDays: 5, DateSubdirectories: true})

	require.True(t, sink.RunCleanup())

	assert.NoDirExists(t, filepath.Dir(stale))
	assert.FileExists(t, kept)
	assert.DirExists(t, keptDir)
}

func TestRetention_ReadOnlyFileIsDeleted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app_20260101_1.log")

	touch(t, path, time.Now().AddDate(0, 0, -10))
	require.NoError(t, os.Chmod(path, 0o444))

	sink, _ := newTestSink(t, FileConfig{Directory: dir, MaxAgeDays: 5})

	require.True(t, sink.RunCleanup())
	assert.NoFileExists(t, path)
}

func TestRetention_NeverDeletesActiveFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	newest := filepath.Join(dir, "app_20990101_1.log")
	newer := filepath.Join(dir, "app_20990101_2.log")

	touch(t, newest, now.Add(2*time.Hour))
	touch(t, newer, now.Add(time.Hour))

	sink, _ := newTestSink(t, FileConfig{Directory: dir, MaxFileCount: 1})

	require.True(t, sink.Write(eventAt(now, sinklog.CategoryInformation, "active")))

	active := sink.Path()

	require.Eventually(t, func() bool { return !sink.cleanupRunning.Load() }, time.Second, 5*time.Millisecond)
	sink.RunCleanup()

	assert.FileExists(t, active)
	assert.FileExists(t, newest)
	assert.NoFileExists(t, newer)
}

func TestRetention_CleanupRunsOneAtATime(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "app_20260101_1.log"), time.Now().AddDate(0, 0, -10))

	sink, recorder := newTestSink(t, FileConfig{Directory: dir, MaxAgeDays: 1})

	started := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once

	sink.beforeCleanup = func() {
		once.Do(func() { close(started) })
		<-release
	}

	require.True(t, sink.TriggerCleanup())
	<-started

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)

	for range 10 {
		wg.Go(func() {
			if sink.TriggerCleanup() {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		})
	}

	wg.Wait()

	assert.Zero(t, accepted, "triggers while a cleanup runs are coalesced")
	assert.False(t, sink.RunCleanup())

	close(release)

	require.Eventually(t, func() bool { return !sink.cleanupRunning.Load() }, time.Second, 5*time.Millisecond)

	stats := sink.Stats()
	assert.Equal(t, uint64(1), stats.CleanupRuns)
	assert.Equal(t, uint64(1), stats.FilesDeleted)
	assert.Empty(t, recorder.all())
}

func TestRetention_DisabledDoesNotTrigger(t *testing.T) {
	sink, _ := newTestSink(t, FileConfig{})

	assert.False(t, sink.TriggerCleanup())
}

func TestFileSink_CloseWaitsForCleanup(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "app_20260101_1.log"), time.Now().AddDate(0, 0, -10))

	sink, err := NewFileSink(FileConfig{Directory: dir, BaseName: "app", MaxAgeDays: 1, EnabledCategories: sinklog.CategoryAll})
	require.NoError(t, err)

	sink.beforeCleanup = func() { time.Sleep(50 * time.Millisecond) }

	require.True(t, sink.TriggerCleanup())
	require.NoError(t, sink.Close())

	assert.False(t, sink.cleanupRunning.Load(), "close returns after the running cleanup finished")
}
