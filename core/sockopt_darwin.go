//go:build darwin

package core

import (
	"time"

	"golang.org/x/sys/unix"
)

// setSockopts disables Nagle and enables TCP keepalive with the given idle
// time. Darwin names the idle option TCP_KEEPALIVE.
func setSockopts(fd uintptr, idle time.Duration) error {
	s := int(fd)
	if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return err
	}
	if err := unix.SetsockoptInt(s, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return err
	}
	return unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, int(idle/time.Second))
}
