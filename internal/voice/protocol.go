package voice

import (
	"time"

	"github.com/goccy/go-json"

	"shardcore/internal/snowflake"
)

type voiceEnvelope struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d"`
}

func (c *Connection) onFrame(payload []byte, readyCh chan<- voiceReady, sessDescCh chan<- secretKey) {
	var env voiceEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}

	switch env.Op {
	case OpHello:
		var d struct {
			HeartbeatInterval float64 `json:"heartbeat_interval"`
		}
		_ = json.Unmarshal(env.D, &d)
		c.heartbeatInterval = time.Duration(d.HeartbeatInterval) * time.Millisecond
		c.lastHeartbeatAck = time.Now()

	case OpReady:
		var d struct {
			SSRC uint32 `json:"ssrc"`
			IP   string `json:"ip"`
			Port int    `json:"port"`
		}
		if err := json.Unmarshal(env.D, &d); err == nil {
			readyCh <- voiceReady{SSRC: d.SSRC, IP: d.IP, Port: d.Port}
		}

	case OpSessionDescription:
		var d struct {
			SecretKey []int `json:"secret_key"`
		}
		if err := json.Unmarshal(env.D, &d); err == nil && len(d.SecretKey) == 32 {
			var key secretKey
			for i, b := range d.SecretKey {
				key[i] = byte(b)
			}
			sessDescCh <- key
		}

	case OpHeartbeatACK:
		c.lastHeartbeatAck = time.Now()

	case OpSpeaking:
		var d struct {
			SSRC   uint32       `json:"ssrc"`
			UserID snowflake.ID `json:"user_id"`
			Speaking int        `json:"speaking"`
		}
		if err := json.Unmarshal(env.D, &d); err == nil {
			c.ssrcMu.Lock()
			c.ssrcTable[d.SSRC] = d.UserID
			c.ssrcMu.Unlock()
			if c.OnUserTalking != nil {
				c.OnUserTalking(d.UserID, d.Speaking != 0)
			}
		}
	}
}

func (c *Connection) sendIdentify(token, sessionID string) {
	payload := struct {
		ServerID  snowflake.ID `json:"server_id"`
		UserID    snowflake.ID `json:"user_id"`
		SessionID string       `json:"session_id"`
		Token     string       `json:"token"`
	}{
		ServerID:  c.cfg.GuildID,
		UserID:    c.cfg.SelfUserID,
		SessionID: sessionID,
		Token:     token,
	}
	c.ws.WriteText(wrapVoiceOp(OpIdentify, payload))
}

func (c *Connection) sendSelectProtocol(ip string, port int) {
	payload := struct {
		Protocol string `json:"protocol"`
		Data     struct {
			Address string `json:"address"`
			Port    int    `json:"port"`
			Mode    string `json:"mode"`
		} `json:"data"`
	}{Protocol: "udp"}
	payload.Data.Address = ip
	payload.Data.Port = port
	payload.Data.Mode = "xsalsa20_poly1305"
	c.ws.WriteText(wrapVoiceOp(OpSelectProtocol, payload))
}

// onTick drives the voice heartbeat; liveness rule mirrors the gateway
// shard's zombie detection per spec.md §4.5.3.
func (c *Connection) onTick() {
	if c.heartbeatInterval <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(c.lastHeartbeatSent) >= c.heartbeatInterval {
		c.ws.WriteText(wrapVoiceOp(OpHeartbeat, now.UnixMilli()))
		c.lastHeartbeatSent = now
	}
	if !c.lastHeartbeatSent.IsZero() && c.lastHeartbeatAck.Before(c.lastHeartbeatSent.Add(-c.heartbeatInterval)) {
		c.active.Store(false)
		_ = c.ws.Close()
	}
}

func wrapVoiceOp(op Opcode, d interface{}) []byte {
	raw, err := json.Marshal(struct {
		Op Opcode      `json:"op"`
		D  interface{} `json:"d"`
	}{Op: op, D: d})
	if err != nil {
		panic(err)
	}
	return raw
}

// userIDFor resolves an ssrc to the user id that last sent a SPEAKING
// frame for it; unmapped ssrc reports user_id = 0, per spec.md §4.5.2.
func (c *Connection) userIDFor(ssrc uint32) snowflake.ID {
	c.ssrcMu.Lock()
	defer c.ssrcMu.Unlock()
	return c.ssrcTable[ssrc]
}
