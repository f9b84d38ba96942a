// Package gateway implements the L3 shard state machine: HELLO/IDENTIFY/
// RESUME/HEARTBEAT handling, sequence tracking, the priority outbound
// queue, and the reconnect-vs-resume decision on close. Grounded on
// original_source/include/dpp/discordclient.h's DiscordClient, translated
// from a blocking read_loop-on-its-own-thread design into a cooperative
// loop driven by internal/ioloop's one-second timer, per spec.md §9's
// "separates the loop (cooperative) from the thread hosting it".
package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"shardcore/internal/errs"
	"shardcore/internal/events"
	"shardcore/internal/inflate"
	"shardcore/internal/metrics"
	"shardcore/internal/snowflake"
	"shardcore/internal/wsclient"
)

// State is the shard's connection lifecycle state, per spec.md §4.4.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHelloWait
	StateIdentifying
	StateResuming
	StateReady
	StateReconnecting
)

// Config bundles the per-shard identify parameters.
type Config struct {
	Token      string
	ShardIndex int
	ShardCount int
	Intents    uint32
	Compress   bool
	GatewayURL string
}

// Shard owns exactly one gateway websocket connection.
type Shard struct {
	id  int
	cfg Config

	cache    Cache
	log      *zap.Logger
	mreg     *metrics.Registry
	handlers *events.Handlers

	ws       *wsclient.Client
	inflater *inflate.Context
	queue    *outboundQueue
	limiter  *outboundLimiter
	bo       backoff.BackOff

	mu                sync.Mutex
	state             State
	sessionID         string
	lastSequence      *int64
	ready             bool
	selfUserID        snowflake.ID
	heartbeatInterval time.Duration
	lastHeartbeatSent time.Time
	lastHeartbeatAck  time.Time

	resumes    atomic.Uint64
	reconnects atomic.Uint64
	zombies    atomic.Uint64

	closeCode     uint16
	closeReceived bool

	// OnVoiceStateUpdate/OnVoiceServerUpdate let internal/voice observe the
	// two dispatch events it needs to complete a join without the gateway
	// package importing the voice package.
	OnVoiceStateUpdate  func(guildID, userID snowflake.ID, sessionID string)
	OnVoiceServerUpdate func(guildID snowflake.ID, token, endpoint string)
}

// New constructs an unconnected shard.
func New(id int, cfg Config, cache Cache, log *zap.Logger, mreg *metrics.Registry, handlers *events.Handlers) *Shard {
	return &Shard{
		id:       id,
		cfg:      cfg,
		cache:    cache,
		log:      log,
		mreg:     mreg,
		handlers: handlers,
		queue:    newOutboundQueue(),
		limiter:  newOutboundLimiter(),
		bo:       newReconnectBackoff(),
	}
}

func newReconnectBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 60 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run drives the shard's connect/reconnect loop until ctx is cancelled or
// a SessionFatal error occurs.
func (sh *Shard) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := sh.runOnce(ctx)
		if err == nil {
			continue // clean close with a resumable/reidentify decision already queued
		}
		if kind, ok := errs.KindOf(err); ok && kind == errs.KindSessionFatal {
			sh.log.Error("shard fatal, not reconnecting", zap.Int("shard", sh.id), zap.Error(err))
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := sh.bo.NextBackOff()
		sh.log.Warn("shard reconnecting", zap.Int("shard", sh.id), zap.Error(err), zap.Duration("backoff", wait))
		sh.reconnects.Add(1)
		if sh.mreg != nil {
			sh.mreg.Reconnects.WithLabelValues(sh.label()).Inc()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (sh *Shard) label() string { return fmt.Sprintf("%d", sh.id) }

func (sh *Shard) runOnce(ctx context.Context) error {
	sh.mu.Lock()
	sh.state = StateConnecting
	sh.closeReceived = false
	sh.ready = false
	sh.mu.Unlock()

	if sh.cfg.Compress {
		sh.inflater = inflate.NewContext()
	} else {
		sh.inflater = nil
	}

	ws, err := wsclient.Dial(sh.log, sh.cfg.GatewayURL)
	if err != nil {
		return errs.Wrap(errs.KindTransport, err)
	}
	sh.ws = ws

	ws.OnBinary = sh.onRawFrame
	ws.OnText = sh.onRawFrame
	ws.OnTick = sh.onTick
	ws.OnClose = func(code uint16, reason string) {
		sh.mu.Lock()
		sh.closeCode = code
		sh.closeReceived = true
		sh.mu.Unlock()
		sh.log.Info("gateway closed", zap.Int("shard", sh.id), zap.Uint16("code", code), zap.String("reason", reason))
	}

	err = ws.Run(ctx)

	sh.mu.Lock()
	code := sh.closeCode
	received := sh.closeReceived
	sh.mu.Unlock()

	if !received {
		code = 1006 // abnormal closure: the read loop ended without a close frame
	}

	return sh.handleDisconnect(code, err)
}

func (sh *Shard) handleDisconnect(code uint16, transportErr error) error {
	policy := classifyCloseCode(code)
	switch policy {
	case policyFatal:
		return errs.Wrap(errs.KindSessionFatal, fmt.Errorf("close code %d", code))
	case policyReidentify:
		sh.mu.Lock()
		sh.sessionID = ""
		sh.lastSequence = nil
		sh.mu.Unlock()
	case policyResumeIfSession:
		// session_id, if any, is retained; runOnce's next HELLO will decide
		// resume vs identify based on whether it's set.
	}
	if transportErr != nil {
		return errs.Wrap(errs.KindTransport, transportErr)
	}
	return errs.New(errs.KindSessionRecoverable, fmt.Sprintf("close code %d", code))
}

func (sh *Shard) onRawFrame(payload []byte) {
	raw := payload
	if sh.inflater != nil {
		out, err := sh.inflater.Write(payload)
		if err != nil {
			sh.log.Error("inflate error", zap.Int("shard", sh.id), zap.Error(err))
			sh.ws.WriteClose(1002, "inflate error")
			return
		}
		if sh.mreg != nil {
			sh.mreg.DecompressedBytes.WithLabelValues(sh.label()).Add(float64(len(out)))
		}
		if out == nil {
			return // sync-flush marker not yet seen; payload incomplete
		}
		raw = out
	}

	op, seq, eventName := peekEnvelope(raw)

	sh.mu.Lock()
	if seq != nil {
		sh.lastSequence = seq
	}
	sh.mu.Unlock()

	switch op {
	case OpHello:
		sh.handleHello(raw)
	case OpDispatch:
		sh.handleDispatch(eventName, raw)
	case OpHeartbeat:
		sh.sendHeartbeat()
	case OpHeartbeatACK:
		sh.mu.Lock()
		sh.lastHeartbeatAck = time.Now()
		sh.mu.Unlock()
	case OpReconnect:
		sh.ws.WriteClose(4000, "reconnect requested")
	case OpInvalidSession:
		sh.handleInvalidSession(raw)
	}
}

func (sh *Shard) handleHello(raw []byte) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return
	}
	var hello struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	_ = json.Unmarshal(env.D, &hello)

	sh.mu.Lock()
	sh.heartbeatInterval = time.Duration(hello.HeartbeatInterval) * time.Millisecond
	sh.lastHeartbeatAck = time.Now()
	sessionID := sh.sessionID
	seq := sh.lastSequence
	sh.state = StateHelloWait
	sh.mu.Unlock()

	if sessionID != "" {
		sh.mu.Lock()
		sh.state = StateResuming
		sh.mu.Unlock()
		var s int64
		if seq != nil {
			s = *seq
		}
		sh.queue.pushPriority(buildResume(sh.cfg.Token, sessionID, s))
	} else {
		sh.mu.Lock()
		sh.state = StateIdentifying
		sh.mu.Unlock()
		sh.queue.pushPriority(buildIdentify(sh.cfg.Token, sh.cfg.Intents, sh.cfg.ShardIndex, sh.cfg.ShardCount, nil))
	}
}

func (sh *Shard) handleInvalidSession(raw []byte) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return
	}
	var resumable bool
	_ = json.Unmarshal(env.D, &resumable)

	if resumable {
		sh.mu.Lock()
		sessionID := sh.sessionID
		seq := sh.lastSequence
		sh.mu.Unlock()
		var s int64
		if seq != nil {
			s = *seq
		}
		sh.queue.pushPriority(buildResume(sh.cfg.Token, sessionID, s))
		return
	}

	sh.mu.Lock()
	sh.sessionID = ""
	sh.mu.Unlock()

	jitter := time.Duration(1000+rand.Intn(4000)) * time.Millisecond
	time.AfterFunc(jitter, func() {
		sh.queue.pushPriority(buildIdentify(sh.cfg.Token, sh.cfg.Intents, sh.cfg.ShardIndex, sh.cfg.ShardCount, nil))
	})
}

func (sh *Shard) handleDispatch(eventName string, raw []byte) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return
	}

	if eventName == "READY" || eventName == "RESUMED" {
		sh.bo.Reset()
		if eventName == "RESUMED" && sh.mreg != nil {
			sh.mreg.Resumes.WithLabelValues(sh.label()).Inc()
		}
	}

	decoder, ok := lookupDecoder(eventName)
	if !ok {
		return
	}
	rec, dispatch := decoder(sh, env.D)
	if !dispatch {
		sh.log.Debug("dropped dispatch: mandatory reference unresolved", zap.String("event", eventName))
		return
	}
	sh.handlers.Dispatch(rec)
}

// onTick runs on every one-second boundary of the underlying stream. It
// drives the heartbeat loop (§4.4.2) and drains the outbound queue
// respecting the rate limiter (§4.4.3).
func (sh *Shard) onTick() {
	now := time.Now()

	sh.mu.Lock()
	interval := sh.heartbeatInterval
	lastSent := sh.lastHeartbeatSent
	lastAck := sh.lastHeartbeatAck
	sh.mu.Unlock()

	if interval > 0 {
		if now.Sub(lastSent) >= interval {
			sh.sendHeartbeat()
		}
		if lastAck.Before(lastSent.Add(-interval)) && !lastSent.IsZero() {
			sh.zombies.Add(1)
			if sh.mreg != nil {
				sh.mreg.Zombies.WithLabelValues(sh.label()).Inc()
			}
			sh.ws.WriteClose(1000, "zombied connection")
			return
		}
	}

	sh.drainQueue(now)
}

func (sh *Shard) sendHeartbeat() {
	sh.mu.Lock()
	seq := sh.lastSequence
	sh.lastHeartbeatSent = time.Now()
	sh.mu.Unlock()
	sh.queue.pushPriority(buildHeartbeat(seq))
}

func (sh *Shard) drainQueue(now time.Time) {
	const maxPerTick = 5
	for i := 0; i < maxPerTick; i++ {
		msg, priority, ok := sh.queue.pop()
		if !ok {
			return
		}
		if !sh.limiter.allow(now, priority) {
			// Budget exhausted: put it back at the front of its lane and
			// wait for next tick, per §4.4.3's "defer to next tick".
			sh.queue.mu.Lock()
			if priority {
				sh.queue.priority = append([][]byte{msg}, sh.queue.priority...)
			} else {
				sh.queue.normal = append([][]byte{msg}, sh.queue.normal...)
			}
			sh.queue.mu.Unlock()
			return
		}
		sh.ws.WriteText(msg)
		if sh.mreg != nil {
			sh.mreg.BytesOut.WithLabelValues(sh.label()).Add(float64(len(msg)))
			sh.mreg.OutboundQueueLength.WithLabelValues(sh.label()).Set(float64(sh.queue.len()))
		}
	}
}

// SendPresenceUpdate queues a priority presence update.
func (sh *Shard) SendPresenceUpdate(p PresenceUpdate) {
	sh.queue.pushPriority(buildPresenceUpdate(p))
}

// SendVoiceStateUpdate queues a priority voice state update, kicking off
// the voice-connection join sequence described in spec.md §4.5.
func (sh *Shard) SendVoiceStateUpdate(v VoiceStateUpdate) {
	sh.queue.pushPriority(buildVoiceStateUpdate(v))
}

// SendRequestGuildMembers queues a normal-priority member chunk request.
func (sh *Shard) SendRequestGuildMembers(r RequestGuildMembers) {
	sh.queue.pushNormal(buildRequestGuildMembers(r))
}

// SessionID returns the current resumable session id, if any.
func (sh *Shard) SessionID() string {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sessionID
}

// LastSequence returns the last received sequence number, or nil before
// any is seen.
func (sh *Shard) LastSequence() *int64 {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.lastSequence
}

// Resumes, Reconnects, and Zombies expose the shard's lifetime counters
// for the metrics registry / tests.
func (sh *Shard) Resumes() uint64    { return sh.resumes.Load() }
func (sh *Shard) Reconnects() uint64 { return sh.reconnects.Load() }
func (sh *Shard) Zombies() uint64    { return sh.zombies.Load() }

// IsReady reports whether READY or RESUMED has been received on the
// current session.
func (sh *Shard) IsReady() bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.ready
}

// State returns the shard's current lifecycle state.
func (sh *Shard) State() State {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.state
}

// SelfUserID returns the bot's own user id, populated once READY arrives.
func (sh *Shard) SelfUserID() snowflake.ID {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.selfUserID
}
