// Package voice implements the L4 layer: establishing a voice connection
// (two-phase handshake: gateway voice-state/voice-server exchange, then a
// voice websocket + UDP IP discovery), sealed RTP audio in both
// directions, and a voice-specific heartbeat mirroring the gateway
// shard's zombie-detection rule. Grounded on spec.md §4.5/§6 with no
// direct original_source file available for this layer (discordvoiceclient.h
// was not part of the retrieval pack) — the shape follows
// internal/gateway/shard.go's HELLO/heartbeat pattern applied to the voice
// opcode set.
package voice

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"shardcore/internal/errs"
	"shardcore/internal/metrics"
	"shardcore/internal/snowflake"
	"shardcore/internal/wsclient"
)

// Config bundles the parameters known before a join begins.
type Config struct {
	GuildID       snowflake.ID
	ChannelID     snowflake.ID
	SelfUserID    snowflake.ID
	SetupDeadline time.Duration
}

// Connection is a single voice connection to one guild's voice channel.
// The cluster owns a map of these keyed by guild id (compare
// original_source/include/dpp/discordclient.h's connecting_voice_channels).
type Connection struct {
	log  *zap.Logger
	mreg *metrics.Registry
	cfg  Config

	mu        sync.Mutex
	sessionID string
	token     string
	endpoint  string

	ws  *wsclient.Client
	udp *net.UDPConn

	ssrc uint32
	key  secretKey

	active atomic.Bool

	heartbeatInterval time.Duration
	lastHeartbeatSent time.Time
	lastHeartbeatAck  time.Time

	ssrcMu    sync.Mutex
	ssrcTable map[uint32]snowflake.ID

	seq       uint16
	timestamp uint32
	speaking  bool

	sendCh chan sendItem

	OnBufferSend  func()
	OnUserTalking func(userID snowflake.ID, talking bool)
	OnReceive     func(userID snowflake.ID, opusPayload []byte)
	OnTrackMarker func(marker string)
}

type sendItem struct {
	frame  []byte // nil means "this is a marker, not audio"
	marker string
}

// New constructs an unconnected voice connection. Call NotifyVoiceState
// and NotifyVoiceServer as the two gateway dispatches arrive, and Connect
// to run the handshake; Connect waits until the session id, token, and
// endpoint are all present before it dials.
func New(log *zap.Logger, mreg *metrics.Registry, cfg Config) *Connection {
	if cfg.SetupDeadline <= 0 {
		cfg.SetupDeadline = 10 * time.Second
	}
	return &Connection{
		log:       log,
		mreg:      mreg,
		cfg:       cfg,
		ssrcTable: make(map[uint32]snowflake.ID),
		sendCh:    make(chan sendItem, 256),
	}
}

// NotifyVoiceState feeds the session_id from a VOICE_STATE_UPDATE dispatch.
func (c *Connection) NotifyVoiceState(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// NotifyVoiceServer feeds the token/endpoint from a VOICE_SERVER_UPDATE
// dispatch.
func (c *Connection) NotifyVoiceServer(token, endpoint string) {
	c.mu.Lock()
	c.token = token
	c.endpoint = endpoint
	c.mu.Unlock()
}

// IsReady reports whether session id, token, and endpoint have all
// arrived (spec.md §4.5's `is_ready`).
func (c *Connection) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID != "" && c.token != "" && c.endpoint != ""
}

// WaitReady blocks, polling at a short interval, until IsReady or the
// connection's setup deadline elapses.
func (c *Connection) WaitReady(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.SetupDeadline)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if c.IsReady() {
			return nil
		}
		if time.Now().After(deadline) {
			return errs.New(errs.KindVoiceSetupIncomplete, "voice state/server update did not both arrive before deadline")
		}
		select {
		case <-ctx.Done():
			return errs.Wrap(errs.KindVoiceSetupIncomplete, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Connect performs the full two-phase handshake once IsReady is true:
// websocket IDENTIFY/READY, UDP IP discovery, SELECT_PROTOCOL, and
// SESSION_DESCRIPTION. On success the connection is ACTIVE and the sender/
// receiver/heartbeat loops are running.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.WaitReady(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	endpoint := c.endpoint
	sessionID := c.sessionID
	token := c.token
	c.mu.Unlock()

	ws, err := wsclient.Dial(c.log, wsURLFor(endpoint))
	if err != nil {
		return errs.Wrap(errs.KindTransport, err)
	}
	c.ws = ws

	readyCh := make(chan voiceReady, 1)
	sessDescCh := make(chan secretKey, 1)

	ws.OnTick = c.onTick
	ws.OnText = func(payload []byte) { c.onFrame(payload, readyCh, sessDescCh) }
	ws.OnBinary = ws.OnText

	// The websocket loop delivers HELLO then READY; send IDENTIFY as soon
	// as the socket is open. wsclient's OnOpen fires from within Run's
	// goroutine, so IDENTIFY is queued there instead of raced here.
	ws.OnOpen = func() {
		c.sendIdentify(token, sessionID)
	}

	go func() {
		_ = ws.Run(ctx)
	}()

	var rdy voiceReady
	select {
	case rdy = <-readyCh:
	case <-time.After(c.cfg.SetupDeadline):
		return errs.New(errs.KindVoiceSetupIncomplete, "voice READY not received before deadline")
	case <-ctx.Done():
		return errs.Wrap(errs.KindVoiceSetupIncomplete, ctx.Err())
	}
	c.ssrc = rdy.SSRC

	udpConn, err := dialVoiceUDP(rdy.IP, rdy.Port)
	if err != nil {
		return errs.Wrap(errs.KindTransport, err)
	}
	c.udp = udpConn

	extIP, extPort, err := c.discoverIP(rdy.SSRC)
	if err != nil {
		return errs.Wrap(errs.KindTransport, err)
	}

	c.sendSelectProtocol(extIP, extPort)

	select {
	case key := <-sessDescCh:
		c.key = key
	case <-time.After(c.cfg.SetupDeadline):
		return errs.New(errs.KindVoiceSetupIncomplete, "voice SESSION_DESCRIPTION not received before deadline")
	case <-ctx.Done():
		return errs.Wrap(errs.KindVoiceSetupIncomplete, ctx.Err())
	}

	c.active.Store(true)
	go c.receiveLoop()
	go c.senderLoop(ctx)

	return nil
}

// Active reports whether the SESSION_DESCRIPTION handshake completed.
func (c *Connection) Active() bool { return c.active.Load() }

func wsURLFor(endpoint string) string {
	return fmt.Sprintf("wss://%s/?v=4", endpoint)
}

type voiceReady struct {
	SSRC uint32
	IP   string
	Port int
}

func (c *Connection) discoverIP(ssrc uint32) (string, int, error) {
	req := buildIPDiscoveryRequest(ssrc)
	if _, err := c.udp.Write(req); err != nil {
		return "", 0, err
	}
	reply := make([]byte, 256)
	_ = c.udp.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := c.udp.Read(reply)
	if err != nil {
		return "", 0, err
	}
	ip, port, err := parseIPDiscoveryReply(reply[:n])
	if err != nil {
		return "", 0, err
	}
	return ip, int(port), nil
}
