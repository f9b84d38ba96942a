//go:build linux

package ioloop

import (
	"net"

	"golang.org/x/sys/unix"
)

// setSockOpts widens the receive buffer for a shard's TLS socket so bursts
// of dispatch traffic (guild create storms on IDENTIFY) don't force extra
// read syscalls. Best effort: failures are ignored, matching SSLClient's
// treatment of setsockopt calls as tuning, not correctness.
func setSockOpts(tc *net.TCPConn) {
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, 1<<20)
	})
}
