//go:build !windows

package symbolindex

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is the single-writer OS-level lock on the index directory's
// sentinel file (spec.md §4.3). On POSIX this is a straightforward
// exclusive, non-blocking flock.
type fileLock struct {
	f *os.File
}

func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return &fileLock{f: f}, nil
}

// release drops the flock and closes the sentinel file. Unlike Windows,
// POSIX release is immediately visible to a concurrent acquirer, so no
// grace sleep is needed here (spec.md §9 open question 4).
func (l *fileLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	return l.f.Close()
}
