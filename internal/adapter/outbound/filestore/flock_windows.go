//go:build windows

package filestore

import "golang.org/x/sys/windows"

// flockShared acquires a shared (read) advisory lock on fd, blocking until
// available, matching Unix flock(LOCK_SH) behavior.
func flockShared(fd uintptr) error {
	var ol windows.Overlapped
	return windows.LockFileEx(windows.Handle(fd), 0, 0, 1, 0, &ol)
}

// flockExclusive acquires an exclusive (write) advisory lock on fd.
func flockExclusive(fd uintptr) error {
	var ol windows.Overlapped
	return windows.LockFileEx(windows.Handle(fd), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ol)
}

// flockUnlock releases an advisory lock on fd.
func flockUnlock(fd uintptr) error {
	var ol windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(fd), 0, 1, 0, &ol)
}
