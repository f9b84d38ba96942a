// Package ioloop implements the L0 layer of the shard runtime: a
// nonblocking duplex TLS stream with a one-second tick and an optional
// custom-fd side channel, so a voice connection's UDP socket can be
// multiplexed into the same cooperative loop as the gateway's TLS socket.
// Grounded on the teacher's SSLClient/DiscordClient split (dpp's
// sslclient.h): SSLClient owns the raw duplex stream and one-second timer,
// DiscordClient layers the gateway state machine on top.
package ioloop

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"shardcore/internal/errs"
)

// Clock is the stream's time source. New sets it to the wall clock and no
// setter is exported; the one-second timer in ReadLoop runs on a real
// time.Ticker and does not consult it.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Stream is a nonblocking duplex byte stream over TLS.
type Stream struct {
	log *zap.Logger

	hostname string
	port     string
	clock    Clock

	conn net.Conn

	obuf   []byte
	obufMu sync.Mutex

	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64

	inbound chan []byte
	readErr chan error

	// HandleBuffer is called with newly received bytes; implementations
	// consume a prefix and are handed back what remains unconsumed.
	HandleBuffer func(buf []byte) []byte

	// OneSecondTimer fires on every full-second boundary of the loop.
	OneSecondTimer func()

	// CustomReadableFD, when non-nil, is polled for read-readiness each
	// loop iteration; CustomReadableReady is invoked when it is ready.
	// This lets another socket ride the same I/O loop as the TLS stream;
	// internal/voice does not use it and reads its UDP socket on its own
	// goroutine.
	CustomReadableFD    func() int
	CustomReadableReady func()

	poller *poller

	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs a Stream bound to hostname:port. Call Connect to dial.
func New(log *zap.Logger, hostname, port string) *Stream {
	if port == "" {
		port = "443"
	}
	return &Stream{
		log:      log,
		hostname: hostname,
		port:     port,
		clock:    realClock{},
		inbound:  make(chan []byte, 64),
		readErr:  make(chan error, 1),
		closed:   make(chan struct{}),
	}
}

// Connect resolves, dials, and performs the TLS handshake.
func (s *Stream) Connect(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: 15 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.hostname, s.port))
	if err != nil {
		return errs.Wrap(errs.KindTransport, errors.Wrap(err, "dial"))
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(30 * time.Second)
		setSockOpts(tc)
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: s.hostname, MinVersion: tls.VersionTLS12})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return errs.Wrap(errs.KindTransport, errors.Wrap(err, "tls handshake"))
	}

	p, err := newPoller()
	if err != nil {
		return errs.Wrap(errs.KindTransport, errors.Wrap(err, "poller init"))
	}

	s.conn = tlsConn
	s.poller = p
	return nil
}

// GetBytesIn returns total bytes received, matching SSLClient::GetBytesIn.
func (s *Stream) GetBytesIn() uint64 { return s.bytesIn.Load() }

// GetBytesOut returns total bytes sent, matching SSLClient::GetBytesOut.
func (s *Stream) GetBytesOut() uint64 { return s.bytesOut.Load() }

// Write appends data to the output buffer. Nonblocking; never drops.
func (s *Stream) Write(data []byte) {
	s.obufMu.Lock()
	s.obuf = append(s.obuf, data...)
	s.obufMu.Unlock()
}

// ReadLoop runs the cooperative I/O loop until the context is cancelled or
// the connection drops. Suspension occurs only at the select statement.
func (s *Stream) ReadLoop(ctx context.Context) error {
	if s.conn == nil {
		return errs.New(errs.KindTransport, "ReadLoop called before Connect")
	}

	go s.readPump()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var unconsumed []byte
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-s.closed:
			return nil
		case err := <-s.readErr:
			return errs.Wrap(errs.KindTransport, err)
		case buf := <-s.inbound:
			s.bytesIn.Add(uint64(len(buf)))
			if s.HandleBuffer != nil {
				unconsumed = s.HandleBuffer(append(unconsumed, buf...))
			}
			s.drainOutput()
			s.pollCustomFD()
		case <-ticker.C:
			s.drainOutput()
			s.pollCustomFD()
			if s.OneSecondTimer != nil {
				s.OneSecondTimer()
			}
		}
	}
}

func (s *Stream) pollCustomFD() {
	if s.CustomReadableFD == nil {
		return
	}
	fd := s.CustomReadableFD()
	if fd < 0 {
		return
	}
	// Registering is repeated every call; once the fd is in the epoll set
	// the add fails with EEXIST, which is expected and ignored.
	_ = s.poller.add(fd, false)
	ready, err := s.poller.wait(0)
	if err != nil {
		return
	}
	for _, rfd := range ready {
		if rfd == fd && s.CustomReadableReady != nil {
			s.CustomReadableReady()
		}
	}
}

func (s *Stream) readPump() {
	buf := make([]byte, 64*1024)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.inbound <- chunk:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			select {
			case s.readErr <- err:
			default:
			}
			return
		}
	}
}

func (s *Stream) drainOutput() {
	s.obufMu.Lock()
	if len(s.obuf) == 0 {
		s.obufMu.Unlock()
		return
	}
	pending := s.obuf
	s.obuf = nil
	s.obufMu.Unlock()

	n, err := s.conn.Write(pending)
	if n > 0 {
		s.bytesOut.Add(uint64(n))
	}
	if err != nil && s.log != nil {
		s.log.Warn("stream write failed", zap.Error(err))
	}
}

// Close terminates the loop; ReadLoop returns once the underlying
// connection is closed.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.poller != nil {
			_ = s.poller.close()
		}
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}
