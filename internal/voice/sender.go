package voice

import (
	"context"
	"time"
)

// frameInterval is the fixed Opus frame cadence: 20ms per frame.
const frameInterval = 20 * time.Millisecond

// samplesPerFrame is 960 samples at 48kHz for a 20ms frame, the RTP
// timestamp increment per frame per spec.md §4.5.1.
const samplesPerFrame = 960

// silenceOpusFrame is the standard zero-length Opus silence frame.
var silenceOpusFrame = []byte{0xF8, 0xFF, 0xFE}

// sendBufferLowWatermark below this many queued items, a voice_buffer_send
// event fires so the caller can top up the queue.
const sendBufferLowWatermark = 8

// PushFrame enqueues one Opus (or Opus-encoded PCM) frame for the pacing
// sender to transmit on its next tick.
func (c *Connection) PushFrame(frame []byte) {
	c.sendCh <- sendItem{frame: frame}
}

// PushMarker enqueues an opaque marker; when the sender reaches it, a
// voice_track_marker event fires via OnTrackMarker.
func (c *Connection) PushMarker(marker string) {
	c.sendCh <- sendItem{marker: marker}
}

// senderLoop is the single-threaded pacing sender described in spec.md
// §4.5.1: it sleeps to the next 20ms frame boundary and sends exactly one
// frame (or handles one marker) per tick, except the tick that finds the
// queue empty while speaking, which sends the five wind-down silence frames.
func (c *Connection) senderLoop(ctx context.Context) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.active.Load() {
				continue
			}
			c.tickSend()
		}
	}
}

func (c *Connection) tickSend() {
	select {
	case item, ok := <-c.sendCh:
		if !ok {
			return
		}
		if item.marker != "" {
			if c.OnTrackMarker != nil {
				c.OnTrackMarker(item.marker)
			}
			return
		}
		c.ensureSpeaking()
		c.sendRTPFrame(item.frame)
		if len(c.sendCh) < sendBufferLowWatermark && c.OnBufferSend != nil {
			c.OnBufferSend()
		}
	default:
		if c.speaking {
			c.windDownSpeaking()
		}
	}
}

func (c *Connection) ensureSpeaking() {
	if c.speaking {
		return
	}
	c.ws.WriteText(wrapVoiceOp(OpSpeaking, struct {
		Speaking int `json:"speaking"`
		Delay    int `json:"delay"`
		SSRC     uint32 `json:"ssrc"`
	}{Speaking: 1, Delay: 0, SSRC: c.ssrc}))
	c.speaking = true
}

// windDownSpeaking sends five zero-length silence frames before clearing
// the SPEAKING flag, per spec.md §4.5.1.
func (c *Connection) windDownSpeaking() {
	for i := 0; i < 5; i++ {
		c.sendRTPFrame(silenceOpusFrame)
	}
	c.ws.WriteText(wrapVoiceOp(OpSpeaking, struct {
		Speaking int    `json:"speaking"`
		Delay    int    `json:"delay"`
		SSRC     uint32 `json:"ssrc"`
	}{Speaking: 0, Delay: 0, SSRC: c.ssrc}))
	c.speaking = false
}

func (c *Connection) sendRTPFrame(payload []byte) {
	header := buildRTPHeader(c.seq, c.timestamp, c.ssrc)
	sealed := sealRTP(header, payload, c.key)
	_, _ = c.udp.Write(sealed)
	c.seq++
	c.timestamp += samplesPerFrame
	if c.mreg != nil {
		c.mreg.VoiceRTPSent.WithLabelValues(c.cfg.GuildID.String()).Inc()
	}
}
