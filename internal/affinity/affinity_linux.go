//go:build linux

// Package affinity pins the calling OS thread to a CPU core, best-effort,
// backing the reactor's affinity_enable option.
package affinity

import "golang.org/x/sys/unix"

// Pin binds the calling thread to cpu. Intended to be called right after
// runtime.LockOSThread from within the reactor goroutine it should affect.
func Pin(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
