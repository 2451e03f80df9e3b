//go:build linux

package core

import (
	"time"

	"golang.org/x/sys/unix"
)

// setSockopts disables Nagle and enables TCP keepalive with the given idle
// time.
func setSockopts(fd uintptr, idle time.Duration) error {
	s := int(fd)
	if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return err
	}
	if err := unix.SetsockoptInt(s, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return err
	}
	return unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(idle/time.Second))
}
