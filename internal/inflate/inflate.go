// Package inflate implements the L2 layer: a persistent zlib decompression
// context fed with a running byte stream, rather than one zlib stream per
// message. Discord's compressed gateway transport (zlib-stream) never
// resets the compressor between payloads, so the client-side inflater must
// stay open for the life of the connection and only flush a payload when it
// sees the zlib sync-flush marker 0x00 0x00 0xff 0xff at the buffer tail.
package inflate

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"

	"shardcore/internal/errs"
)

var zlibSyncFlush = []byte{0x00, 0x00, 0xff, 0xff}

// Context is a persistent zlib-stream inflater. It is not safe for
// concurrent use; each shard owns exactly one.
type Context struct {
	reader   io.ReadCloser
	pending  *bytes.Buffer
	out      bytes.Buffer
	started  bool
	totalOut uint64
}

// NewContext constructs an unstarted inflate context. The underlying
// zlib.Reader isn't created until the first bytes arrive, because
// zlib.NewReader needs to read the 2-byte header off the stream itself.
func NewContext() *Context {
	return &Context{pending: &bytes.Buffer{}}
}

// Write feeds newly received bytes into the context. If buf ends with the
// zlib sync-flush marker, the accumulated input is a complete payload and
// is decompressed; Write returns it. Otherwise it returns nil, nil and the
// bytes stay buffered until the marker arrives.
func (c *Context) Write(buf []byte) ([]byte, error) {
	c.pending.Write(buf)

	if !endsWithSyncFlush(buf) {
		return nil, nil
	}

	if !c.started {
		r, err := zlib.NewReader(c.pending)
		if err != nil {
			return nil, errs.Wrap(errs.KindProtocol, errors.Wrap(err, "zlib header"))
		}
		c.reader = r
		c.started = true
	}

	// Read only until the flushed input is consumed: reading past the
	// sync-flush marker would hit the end of pending mid-stream, and the
	// zlib reader keeps that error for every later call.
	c.out.Reset()
	var chunk [64 * 1024]byte
	for c.pending.Len() > 0 {
		n, err := c.reader.Read(chunk[:])
		c.out.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindProtocol, errors.Wrap(err, "zlib inflate"))
		}
	}

	c.totalOut += uint64(c.out.Len())
	c.pending.Reset()

	result := make([]byte, c.out.Len())
	copy(result, c.out.Bytes())
	return result, nil
}

// TotalOut returns the cumulative decompressed byte count, for the
// decompressed-bytes metric.
func (c *Context) TotalOut() uint64 { return c.totalOut }

// Close releases the underlying zlib reader.
func (c *Context) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

func endsWithSyncFlush(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	return bytes.Equal(buf[len(buf)-4:], zlibSyncFlush)
}
