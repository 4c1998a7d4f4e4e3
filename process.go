package sinklog

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

//nolint:gochecknoglobals // process start anchors the monotonic microsecond counter.
var processStart = time.Now()

// Microseconds returns the monotonic microseconds elapsed since process start.
func Microseconds() int64 {
	return time.Since(processStart).Microseconds()
}

// ProcessIdentity returns "<executable>:<pid>" for the running process.
func ProcessIdentity() string {
	name := "unknown"

	if exe, err := os.Executable(); err == nil {
		name = filepath.Base(exe)
	} else if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}

	return name + ":" + strconv.Itoa(os.Getpid())
}
