//go:build !linux

package sinklog

// CurrentThreadID returns 0; only Linux exposes a cheap per-thread id.
func CurrentThreadID() int {
	return 0
}
