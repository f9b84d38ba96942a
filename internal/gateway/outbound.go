package gateway

import (
	"runtime"

	"github.com/goccy/go-json"

	"shardcore/internal/snowflake"
)

type identifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

type identifyPayload struct {
	Token      string             `json:"token"`
	Intents    uint32             `json:"intents"`
	Properties identifyProperties `json:"properties"`
	Compress   bool               `json:"compress"`
	Shard      [2]int             `json:"shard"`
	Presence   *PresenceUpdate    `json:"presence,omitempty"`
}

// PresenceUpdate is the `d` shape for opcode 3.
type PresenceUpdate struct {
	Since      *int64        `json:"since"`
	Activities []interface{} `json:"activities"`
	Status     string        `json:"status"`
	AFK        bool          `json:"afk"`
}

type resumePayload struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

// VoiceStateUpdate is the `d` shape for opcode 4.
type VoiceStateUpdate struct {
	GuildID   snowflake.ID  `json:"guild_id"`
	ChannelID *snowflake.ID `json:"channel_id"`
	SelfMute  bool          `json:"self_mute"`
	SelfDeaf  bool          `json:"self_deaf"`
}

// RequestGuildMembers is the `d` shape for opcode 8.
type RequestGuildMembers struct {
	GuildID   snowflake.ID   `json:"guild_id"`
	Query     string         `json:"query"`
	Limit     int            `json:"limit"`
	Presences bool           `json:"presences,omitempty"`
	UserIDs   []snowflake.ID `json:"user_ids,omitempty"`
	Nonce     string         `json:"nonce,omitempty"`
}

func buildIdentify(token string, intents uint32, shardIdx, shardCount int, presence *PresenceUpdate) []byte {
	payload := identifyPayload{
		Token:   token,
		Intents: intents,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "shardcore",
			Device:  "shardcore",
		},
		Compress: false,
		Shard:    [2]int{shardIdx, shardCount},
		Presence: presence,
	}
	return wrapOp(OpIdentify, payload)
}

func buildResume(token, sessionID string, seq int64) []byte {
	return wrapOp(OpResume, resumePayload{Token: token, SessionID: sessionID, Seq: seq})
}

func buildHeartbeat(seq *int64) []byte {
	return wrapOp(OpHeartbeat, seq)
}

func buildPresenceUpdate(p PresenceUpdate) []byte {
	return wrapOp(OpPresenceUpdate, p)
}

func buildVoiceStateUpdate(v VoiceStateUpdate) []byte {
	return wrapOp(OpVoiceStateUpdate, v)
}

func buildRequestGuildMembers(r RequestGuildMembers) []byte {
	return wrapOp(OpRequestGuildMembers, r)
}

func wrapOp(op Opcode, d interface{}) []byte {
	raw, err := json.Marshal(struct {
		Op Opcode      `json:"op"`
		D  interface{} `json:"d"`
	}{Op: op, D: d})
	if err != nil {
		// d is always one of the payload types above; a marshal failure
		// here means a programmer error in this package, not bad input.
		panic(err)
	}
	return raw
}
