//go:build linux

package sinklog

import "golang.org/x/sys/unix"

// CurrentThreadID returns the id of the OS thread running the caller.
func CurrentThreadID() int {
	return unix.Gettid()
}
