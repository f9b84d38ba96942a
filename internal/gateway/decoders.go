package gateway

import (
	"github.com/goccy/go-json"

	"shardcore/internal/events"
	"shardcore/internal/snowflake"
)

func toEventsGuild(g *Guild) *events.Guild {
	if g == nil {
		return nil
	}
	return &events.Guild{ID: g.ID, Name: g.Name}
}

func toEventsChannel(c *Channel) *events.Channel {
	if c == nil {
		return nil
	}
	return &events.Channel{ID: c.ID, GuildID: c.GuildID, Name: c.Name}
}

func toEventsUser(u *User) *events.User {
	if u == nil {
		return nil
	}
	return &events.User{ID: u.ID, Username: u.Username, Bot: u.Bot}
}

// ReadyData is the decoded shape of the READY dispatch.
type ReadyData struct {
	SessionID string       `json:"session_id"`
	UserID    snowflake.ID `json:"-"`
}

type readyPayload struct {
	SessionID string `json:"session_id"`
	User      struct {
		ID snowflake.ID `json:"id"`
	} `json:"user"`
}

func decodeReady(sh *Shard, d []byte) (*events.Record, bool) {
	var p readyPayload
	if err := json.Unmarshal(d, &p); err != nil {
		return nil, false
	}
	sh.mu.Lock()
	sh.sessionID = p.SessionID
	sh.ready = true
	sh.selfUserID = p.User.ID
	sh.state = StateReady
	sh.mu.Unlock()
	return &events.Record{
		Kind:    events.KindReady,
		ShardID: sh.id,
		RawJSON: d,
		Data:    ReadyData{SessionID: p.SessionID, UserID: p.User.ID},
	}, true
}

func decodeResumed(sh *Shard, d []byte) (*events.Record, bool) {
	sh.mu.Lock()
	sh.ready = true
	sh.state = StateReady
	sh.mu.Unlock()
	sh.resumes.Add(1)
	return &events.Record{Kind: events.KindResumed, ShardID: sh.id, RawJSON: d}, true
}

type guildIDPayload struct {
	ID snowflake.ID `json:"id"`
}

// GuildEventData carries the resolved guild for guild lifecycle events.
type GuildEventData struct {
	Guild *events.Guild
}

func decodeGuildCreate(sh *Shard, d []byte) (*events.Record, bool) {
	var p guildIDPayload
	if err := json.Unmarshal(d, &p); err != nil || p.ID.IsZero() {
		return nil, false
	}
	// A freshly created guild will not yet be in cache; that's expected —
	// only lookups against events referencing a guild that must already
	// exist (updates/deletes) drop on a cache miss.
	g := sh.cache.FindGuild(p.ID)
	return &events.Record{
		Kind: events.KindGuildCreate, ShardID: sh.id, RawJSON: d,
		Data: GuildEventData{Guild: toEventsGuild(g)},
	}, true
}

func decodeGuildUpdate(sh *Shard, d []byte) (*events.Record, bool) {
	return decodeRequireGuild(sh, d, events.KindGuildUpdate)
}

func decodeGuildDelete(sh *Shard, d []byte) (*events.Record, bool) {
	return decodeRequireGuild(sh, d, events.KindGuildDelete)
}

func decodeRequireGuild(sh *Shard, d []byte, kind events.Kind) (*events.Record, bool) {
	var p guildIDPayload
	if err := json.Unmarshal(d, &p); err != nil || p.ID.IsZero() {
		return nil, false
	}
	g := sh.cache.FindGuild(p.ID)
	if g == nil {
		return nil, false // HandlerDropped: mandatory reference absent
	}
	return &events.Record{Kind: kind, ShardID: sh.id, RawJSON: d, Data: GuildEventData{Guild: toEventsGuild(g)}}, true
}

type roleEventPayload struct {
	GuildID snowflake.ID `json:"guild_id"`
	Role    struct {
		ID snowflake.ID `json:"id"`
	} `json:"role"`
}

// RoleEventData carries the resolved guild and role for role events.
type RoleEventData struct {
	Guild *events.Guild
	Role  *Role
}

func decodeGuildRole(kind events.Kind) eventDecoder {
	return func(sh *Shard, d []byte) (*events.Record, bool) {
		var p roleEventPayload
		if err := json.Unmarshal(d, &p); err != nil || p.GuildID.IsZero() {
			return nil, false
		}
		g := sh.cache.FindGuild(p.GuildID)
		if g == nil {
			return nil, false
		}
		role := sh.cache.FindRole(p.Role.ID)
		return &events.Record{
			Kind: kind, ShardID: sh.id, RawJSON: d,
			Data: RoleEventData{Guild: toEventsGuild(g), Role: role},
		}, true
	}
}

type channelIDPayload struct {
	ID      snowflake.ID `json:"id"`
	GuildID snowflake.ID `json:"guild_id"`
}

// ChannelEventData carries the resolved channel for channel events.
type ChannelEventData struct {
	Channel *events.Channel
}

func decodeChannel(kind events.Kind) eventDecoder {
	return func(sh *Shard, d []byte) (*events.Record, bool) {
		var p channelIDPayload
		if err := json.Unmarshal(d, &p); err != nil || p.ID.IsZero() {
			return nil, false
		}
		c := sh.cache.FindChannel(p.ID)
		if c == nil && kind != events.KindChannelCreate {
			return nil, false
		}
		if c == nil {
			c = &Channel{ID: p.ID, GuildID: p.GuildID}
		}
		return &events.Record{Kind: kind, ShardID: sh.id, RawJSON: d, Data: ChannelEventData{Channel: toEventsChannel(c)}}, true
	}
}

type messageAuthorPayload struct {
	ChannelID snowflake.ID `json:"channel_id"`
	GuildID   snowflake.ID `json:"guild_id"`
	Author    struct {
		ID snowflake.ID `json:"id"`
	} `json:"author"`
}

// MessageEventData carries the resolved channel and author for message
// create/update events.
type MessageEventData struct {
	Channel *events.Channel
	Author  *events.User
}

func decodeMessage(kind events.Kind) eventDecoder {
	return func(sh *Shard, d []byte) (*events.Record, bool) {
		var p messageAuthorPayload
		if err := json.Unmarshal(d, &p); err != nil || p.ChannelID.IsZero() {
			return nil, false
		}
		c := sh.cache.FindChannel(p.ChannelID)
		var author *User
		if !p.Author.ID.IsZero() {
			author = sh.cache.FindUser(p.Author.ID)
		}
		return &events.Record{
			Kind: kind, ShardID: sh.id, RawJSON: d,
			Data: MessageEventData{Channel: toEventsChannel(c), Author: toEventsUser(author)},
		}, true
	}
}

// VoiceStateUpdateData is the decoded VOICE_STATE_UPDATE dispatch, feeding
// the voice-connection readiness check in internal/voice.
type VoiceStateUpdateData struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
	SessionID string
}

func decodeVoiceStateUpdate(sh *Shard, d []byte) (*events.Record, bool) {
	var p struct {
		GuildID   snowflake.ID `json:"guild_id"`
		ChannelID snowflake.ID `json:"channel_id"`
		UserID    snowflake.ID `json:"user_id"`
		SessionID string       `json:"session_id"`
	}
	if err := json.Unmarshal(d, &p); err != nil {
		return nil, false
	}
	if sh.OnVoiceStateUpdate != nil {
		sh.OnVoiceStateUpdate(p.GuildID, p.UserID, p.SessionID)
	}
	return &events.Record{
		Kind: events.KindVoiceStateUpdate, ShardID: sh.id, RawJSON: d,
		Data: VoiceStateUpdateData{GuildID: p.GuildID, ChannelID: p.ChannelID, UserID: p.UserID, SessionID: p.SessionID},
	}, true
}

// VoiceServerUpdateData is the decoded VOICE_SERVER_UPDATE dispatch.
type VoiceServerUpdateData struct {
	GuildID  snowflake.ID
	Token    string
	Endpoint string
}

func decodeVoiceServerUpdate(sh *Shard, d []byte) (*events.Record, bool) {
	var p struct {
		GuildID  snowflake.ID `json:"guild_id"`
		Token    string       `json:"token"`
		Endpoint string       `json:"endpoint"`
	}
	if err := json.Unmarshal(d, &p); err != nil {
		return nil, false
	}
	if sh.OnVoiceServerUpdate != nil {
		sh.OnVoiceServerUpdate(p.GuildID, p.Token, p.Endpoint)
	}
	return &events.Record{
		Kind: events.KindVoiceServerUpdate, ShardID: sh.id, RawJSON: d,
		Data: VoiceServerUpdateData{GuildID: p.GuildID, Token: p.Token, Endpoint: p.Endpoint},
	}, true
}

// decodeGeneric handles event kinds whose dispatch carries no mandatory
// cache reference the decoder itself must resolve: the record forwards
// RawJSON so a handler can decode whatever fields it needs.
func decodeGeneric(kind events.Kind) eventDecoder {
	return func(sh *Shard, d []byte) (*events.Record, bool) {
		return &events.Record{Kind: kind, ShardID: sh.id, RawJSON: d}, true
	}
}
