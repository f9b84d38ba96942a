//go:build linux

package ioloop

import (
	"golang.org/x/sys/unix"
)

// poller multiplexes the shard's TLS socket with an optional custom
// readable/writable fd (the voice UDP socket, per the "custom file
// descriptor" side channel), the way SSLClient::custom_readable_fd lets a
// caller piggyback on the same I/O loop. Grounded on the platform-split
// pattern the pack uses for its own I/O primitive (transport/ipc_unix.go /
// ipc_windows.go): the epoll backend lives behind a build tag, with a
// portable fallback in poller_other.go.
type poller struct {
	epfd int
}

func newPoller() (*poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{epfd: fd}, nil
}

func (p *poller) add(fd int, writable bool) error {
	events := uint32(unix.EPOLLIN)
	if writable {
		events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (p *poller) modify(fd int, writable bool) error {
	events := uint32(unix.EPOLLIN)
	if writable {
		events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (p *poller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks up to timeoutMs and returns the fds that became ready.
func (p *poller) wait(timeoutMs int) ([]int, error) {
	events := make([]unix.EpollEvent, 16)
	n, err := unix.EpollWait(p.epfd, events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ready = append(ready, int(events[i].Fd))
	}
	return ready, nil
}

func (p *poller) close() error {
	return unix.Close(p.epfd)
}
