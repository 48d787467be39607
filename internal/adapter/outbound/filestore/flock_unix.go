//go:build !windows

package filestore

import "syscall"

// flockShared acquires a shared (read) advisory lock on fd.
func flockShared(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_SH)
}

// flockExclusive acquires an exclusive (write) advisory lock on fd.
func flockExclusive(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX)
}

// flockUnlock releases an advisory lock on fd.
func flockUnlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
