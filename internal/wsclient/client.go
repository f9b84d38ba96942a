// Package wsclient is a hand-rolled RFC 6455 websocket client layered on
// top of internal/ioloop's nonblocking TLS stream. It deliberately does not
// use a general-purpose websocket library: HandleBuffer-driven incremental
// frame assembly is part of the layered-transport design this runtime is
// built around, the way original_source/include/dpp/wsclient.h layers
// WSClient directly on SSLClient rather than pulling in a third-party
// websocket stack.
package wsclient

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"shardcore/internal/errs"
	"shardcore/internal/ioloop"
)

type state int

const (
	stateHandshaking state = iota
	stateConnected
	stateClosed
)

// Client is a websocket connection over a TLS stream.
type Client struct {
	log    *zap.Logger
	stream *ioloop.Stream
	url    *url.URL

	state state

	handshakeKey string
	headerBuf    []byte
	frameBuf     []byte

	fragOpcode  Opcode
	fragPayload []byte
	fragActive  bool

	// OnText/OnBinary deliver complete (possibly reassembled) messages.
	OnText   func(payload []byte)
	OnBinary func(payload []byte)
	// OnClose fires with the close code/reason when the peer sends a close
	// frame, or with code 0 and the error text when the HTTP upgrade is
	// rejected. It does not fire when the connection drops without a close
	// frame.
	OnClose func(code uint16, reason string)
	// OnOpen fires once the HTTP upgrade completes and frames may be sent.
	OnOpen func()
	// OnTick fires every second, forwarded from the underlying stream's
	// one-second timer; the gateway layer drives its heartbeat and
	// outbound-queue drain from this.
	OnTick func()
}

// Dial builds a Client for rawURL (ws:// or wss://) but does not yet
// connect; call Run to perform the TCP+TLS dial, HTTP upgrade, and enter
// the read loop.
func Dial(log *zap.Logger, rawURL string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.KindProtocol, errors.Wrap(err, "parse websocket url"))
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}
	c := &Client{
		log:    log,
		url:    u,
		stream: ioloop.New(log, u.Hostname(), port),
	}
	c.stream.HandleBuffer = c.handleBuffer
	c.stream.OneSecondTimer = func() {
		if c.OnTick != nil {
			c.OnTick()
		}
	}
	return c, nil
}

// Run dials, performs the upgrade handshake, and blocks in the read loop
// until ctx is cancelled or the connection drops.
func (c *Client) Run(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	c.sendUpgradeRequest()
	return c.stream.ReadLoop(ctx)
}

func (c *Client) sendUpgradeRequest() {
	keyBytes := make([]byte, 16)
	_, _ = rand.Read(keyBytes)
	c.handshakeKey = base64.StdEncoding.EncodeToString(keyBytes)

	path := c.url.RequestURI()
	if path == "" {
		path = "/"
	}

	req := fmt.Sprintf(
		"GET %s HTTP/1.1\r\n"+
			"Host: %s\r\n"+
			"Upgrade: websocket\r\n"+
			"Connection: Upgrade\r\n"+
			"Sec-WebSocket-Key: %s\r\n"+
			"Sec-WebSocket-Version: 13\r\n"+
			"User-Agent: shardcore/1.0\r\n"+
			"\r\n",
		path, c.url.Host, c.handshakeKey,
	)
	c.stream.Write([]byte(req))
}

// WriteText sends a single-frame text message.
func (c *Client) WriteText(payload []byte) {
	c.writeFrame(OpText, payload)
}

// WriteBinary sends a single-frame binary message.
func (c *Client) WriteBinary(payload []byte) {
	c.writeFrame(OpBinary, payload)
}

// WritePing sends a low-level ping, used by callers that want a websocket
// keepalive independent of any application-layer heartbeat.
func (c *Client) WritePing(payload []byte) {
	c.writeFrame(OpPing, payload)
}

// WriteClose sends a close frame and marks the client closed; the caller
// should still wait for ReadLoop to return before tearing the stream down.
func (c *Client) WriteClose(code uint16, reason string) {
	payload := make([]byte, 2+len(reason))
	payload[0] = byte(code >> 8)
	payload[1] = byte(code)
	copy(payload[2:], reason)
	c.writeFrame(OpClose, payload)
	c.state = stateClosed
}

func (c *Client) writeFrame(opcode Opcode, payload []byte) {
	if c.state == stateClosed {
		return
	}
	var maskKey [4]byte
	_, _ = rand.Read(maskKey[:])
	c.stream.Write(encodeFrame(opcode, payload, maskKey))
}

// Close tears down the underlying TLS stream immediately.
func (c *Client) Close() error {
	c.state = stateClosed
	return c.stream.Close()
}

// handleBuffer is the ioloop.Stream.HandleBuffer hook: it owns
// reassembling HTTP headers, then frames, out of the raw byte stream.
func (c *Client) handleBuffer(buf []byte) []byte {
	if c.state == stateHandshaking {
		c.headerBuf = append(c.headerBuf, buf...)
		idx := bytes.Index(c.headerBuf, []byte("\r\n\r\n"))
		if idx < 0 {
			return nil
		}
		headers := c.headerBuf[:idx]
		remainder := c.headerBuf[idx+4:]
		c.headerBuf = nil

		if err := verifyUpgradeResponse(headers); err != nil {
			if c.log != nil {
				c.log.Error("websocket upgrade rejected", zap.Error(err))
			}
			c.state = stateClosed
			if c.OnClose != nil {
				c.OnClose(0, err.Error())
			}
			return nil
		}

		c.state = stateConnected
		if c.OnOpen != nil {
			c.OnOpen()
		}
		return c.handleBuffer(remainder)
	}

	c.frameBuf = append(c.frameBuf, buf...)
	for {
		fr, n, ok := tryDecodeFrame(c.frameBuf)
		if !ok {
			break
		}
		c.frameBuf = c.frameBuf[n:]
		c.dispatchFrame(fr)
	}
	return nil
}

func (c *Client) dispatchFrame(fr frame) {
	switch fr.opcode {
	case OpContinuation:
		if !c.fragActive {
			return
		}
		c.fragPayload = append(c.fragPayload, fr.payload...)
		if fr.fin {
			c.deliverComplete(c.fragOpcode, c.fragPayload)
			c.fragActive = false
			c.fragPayload = nil
		}
	case OpText, OpBinary:
		if !fr.fin {
			c.fragActive = true
			c.fragOpcode = fr.opcode
			c.fragPayload = append([]byte(nil), fr.payload...)
			return
		}
		c.deliverComplete(fr.opcode, fr.payload)
	case OpPing:
		c.writeFrame(OpPong, fr.payload)
	case OpPong:
		// no-op: callers wanting RTT tracking read gateway-layer ACKs instead.
	case OpClose:
		code, reason := decodeClosePayload(fr.payload)
		if c.OnClose != nil {
			c.OnClose(code, reason)
		}
		_ = c.Close()
	}
}

func (c *Client) deliverComplete(opcode Opcode, payload []byte) {
	switch opcode {
	case OpText:
		if c.OnText != nil {
			c.OnText(payload)
		}
	case OpBinary:
		if c.OnBinary != nil {
			c.OnBinary(payload)
		}
	}
}

func decodeClosePayload(payload []byte) (uint16, string) {
	if len(payload) < 2 {
		return 0, ""
	}
	code := uint16(payload[0])<<8 | uint16(payload[1])
	return code, string(payload[2:])
}

func verifyUpgradeResponse(headers []byte) error {
	lines := strings.Split(string(headers), "\r\n")
	if len(lines) == 0 {
		return errs.New(errs.KindProtocol, "empty upgrade response")
	}
	statusParts := strings.SplitN(lines[0], " ", 3)
	if len(statusParts) < 2 {
		return errs.New(errs.KindProtocol, "malformed status line: "+lines[0])
	}
	code, err := strconv.Atoi(statusParts[1])
	if err != nil || code != 101 {
		return errs.New(errs.KindProtocol, "unexpected upgrade status: "+lines[0])
	}
	return nil
}
