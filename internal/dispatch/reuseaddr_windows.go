//go:build windows

package dispatch

import "syscall"

// setReuseAddr is a no-op on Windows: SO_REUSEADDR there permits multiple
// sockets to bind the same address/port simultaneously rather than just
// bypassing TIME_WAIT, which is not the behavior spec.md §6 wants.
func setReuseAddr(_, _ string, _ syscall.RawConn) error {
	return nil
}
