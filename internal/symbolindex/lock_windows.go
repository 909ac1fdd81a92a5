//go:build windows

package symbolindex

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// lockReleaseGrace is the mandated post-release sleep: Windows gives no
// deterministic signal that a LockFileEx handle has fully released to
// other processes, so the indexer must wait before a re-acquire can be
// trusted to observe the release (spec.md §4.3, §9 open question 4,
// resolved: keep the delay, isolated behind this build-tagged file).
const lockReleaseGrace = 100 * time.Millisecond

type fileLock struct {
	f      *os.File
	handle windows.Handle
}

func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	handle := windows.Handle(f.Fd())
	ol := new(windows.Overlapped)
	if err := windows.LockFileEx(handle, windows.LOCKFILE_FAIL_IMMEDIATELY|windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, ol); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return &fileLock{f: f, handle: handle}, nil
}

func (l *fileLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	ol := new(windows.Overlapped)
	_ = windows.UnlockFileEx(l.handle, 0, 1, 0, ol)
	err := l.f.Close()
	time.Sleep(lockReleaseGrace)
	return err
}
