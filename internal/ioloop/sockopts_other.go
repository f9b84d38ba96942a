//go:build !linux

package ioloop

import "net"

// setSockOpts is a no-op on platforms where we don't reach for x/sys/unix
// socket tuning; TCP_NODELAY/keepalive are already set through the net
// package before this is called.
func setSockOpts(tc *net.TCPConn) {}
