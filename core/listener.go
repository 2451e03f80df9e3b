package core

import (
	"net"
	"time"
)

// keepAliveIdle is how long an accepted connection may sit idle before the
// kernel starts sending keepalive probes.
const keepAliveIdle = 30 * time.Second

// tunedListener applies socket options to every accepted TCP connection.
type tunedListener struct {
	net.Listener
	keepAlive time.Duration
}

func (l *tunedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		if rc, err := tc.SyscallConn(); err == nil {
			// option failures are not fatal for the connection
			_ = rc.Control(func(fd uintptr) {
				_ = setSockopts(fd, l.keepAlive)
			})
		}
	}
	return conn, nil
}
