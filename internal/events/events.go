// Package events defines the tagged-union event record dispatched from a
// gateway shard or voice connection up to a cluster's registered handlers.
// The original source's deep event-struct inheritance
// (event_dispatch_t → typed events → further subtyping, e.g.
// button_click_t : interaction_create_t) collapses here into one Record
// type with a shared header and a Kind-specific Data payload, per
// SPEC_FULL.md's design-notes resolution of that inheritance chain.
package events

import "shardcore/internal/snowflake"

// Kind identifies the shape of Record.Data.
type Kind int

const (
	KindReady Kind = iota
	KindResumed
	KindGuildCreate
	KindGuildUpdate
	KindGuildDelete
	KindGuildRoleCreate
	KindGuildRoleUpdate
	KindGuildRoleDelete
	KindGuildEmojisUpdate
	KindGuildIntegrationsUpdate
	KindChannelCreate
	KindChannelUpdate
	KindChannelDelete
	KindChannelPinsUpdate
	KindGuildMemberAdd
	KindGuildMemberUpdate
	KindGuildMemberRemove
	KindGuildMembersChunk
	KindGuildBanAdd
	KindGuildBanRemove
	KindMessageCreate
	KindMessageUpdate
	KindMessageDelete
	KindMessageDeleteBulk
	KindMessageReactionAdd
	KindMessageReactionRemove
	KindMessageReactionRemoveEmoji
	KindMessageReactionRemoveAll
	KindTypingStart
	KindPresenceUpdate
	KindInviteCreate
	KindInviteDelete
	KindVoiceStateUpdate
	KindVoiceServerUpdate
	KindWebhooksUpdate
	KindInteractionCreate
	KindButtonClick
	KindApplicationCommandCreate
	KindApplicationCommandUpdate
	KindApplicationCommandDelete
	KindStageInstanceCreate
	KindStageInstanceDelete
	KindGuildJoinRequestDelete
	KindVoiceBufferSend
	KindVoiceUserTalking
	KindVoiceReady
	KindVoiceReceive
	KindVoiceTrackMarker
)

// Record is the common header hoisted out of every event, plus a
// Kind-specific Data payload. References into the cache are non-owning
// borrows valid only for the duration of the handler call, per the
// single-threaded per-shard dispatch contract.
type Record struct {
	Kind    Kind
	ShardID int
	RawJSON []byte
	Data    interface{}
}

// Guild, User, and Channel mirror internal/gateway.Cache's return shapes
// (Role and Emoji are not mirrored here). Duplicated here (rather than imported) so this package
// has no dependency on internal/gateway or internal/cachebridge — voice
// events need the same header shape without pulling in the gateway state
// machine.
type Guild struct {
	ID   snowflake.ID
	Name string
}

type User struct {
	ID       snowflake.ID
	Username string
	Bot      bool
}

type Channel struct {
	ID      snowflake.ID
	GuildID snowflake.ID
	Name    string
}

// Handlers is the fixed, one-slot-per-event-kind registration surface a
// cluster exposes; spec.md §4.6 calls for "at most one" handler per kind,
// which rules out a generic pub/sub in favor of this struct, matching the
// teacher's single AddHandler-per-purpose registration in bot.New.
type Handlers struct {
	OnReady    func(*Record)
	OnResumed  func(*Record)
	OnGuild    func(*Record) // create/update/delete distinguished by Kind
	OnRole     func(*Record)
	OnEmoji    func(*Record)
	OnChannel  func(*Record)
	OnMember   func(*Record)
	OnBan      func(*Record)
	OnMessage  func(*Record)
	OnReaction func(*Record)
	OnTyping   func(*Record)
	OnPresence func(*Record)
	OnInvite   func(*Record)
	OnVoice    func(*Record)
	OnWebhooks func(*Record)

	OnInteraction        func(*Record)
	OnButtonClick        func(*Record)
	OnApplicationCommand func(*Record)
	OnStageInstance      func(*Record)
	OnGuildJoinRequest   func(*Record)

	OnVoiceBufferSend  func(*Record)
	OnVoiceUserTalking func(*Record)
	OnVoiceReady       func(*Record)
	OnVoiceReceive     func(*Record)
	OnVoiceTrackMarker func(*Record)
}

// Dispatch invokes the slot matching rec.Kind, if any handler is
// registered for it.
func (h *Handlers) Dispatch(rec *Record) {
	if h == nil || rec == nil {
		return
	}
	switch rec.Kind {
	case KindReady:
		call(h.OnReady, rec)
	case KindResumed:
		call(h.OnResumed, rec)
	case KindGuildCreate, KindGuildUpdate, KindGuildDelete, KindGuildIntegrationsUpdate:
		call(h.OnGuild, rec)
	case KindGuildRoleCreate, KindGuildRoleUpdate, KindGuildRoleDelete:
		call(h.OnRole, rec)
	case KindGuildEmojisUpdate:
		call(h.OnEmoji, rec)
	case KindChannelCreate, KindChannelUpdate, KindChannelDelete, KindChannelPinsUpdate:
		call(h.OnChannel, rec)
	case KindGuildMemberAdd, KindGuildMemberUpdate, KindGuildMemberRemove, KindGuildMembersChunk:
		call(h.OnMember, rec)
	case KindGuildBanAdd, KindGuildBanRemove:
		call(h.OnBan, rec)
	case KindMessageCreate, KindMessageUpdate, KindMessageDelete, KindMessageDeleteBulk:
		call(h.OnMessage, rec)
	case KindMessageReactionAdd, KindMessageReactionRemove, KindMessageReactionRemoveEmoji, KindMessageReactionRemoveAll:
		call(h.OnReaction, rec)
	case KindTypingStart:
		call(h.OnTyping, rec)
	case KindPresenceUpdate:
		call(h.OnPresence, rec)
	case KindInviteCreate, KindInviteDelete:
		call(h.OnInvite, rec)
	case KindVoiceStateUpdate, KindVoiceServerUpdate:
		call(h.OnVoice, rec)
	case KindWebhooksUpdate:
		call(h.OnWebhooks, rec)
	case KindInteractionCreate:
		call(h.OnInteraction, rec)
	case KindButtonClick:
		call(h.OnButtonClick, rec)
	case KindApplicationCommandCreate, KindApplicationCommandUpdate, KindApplicationCommandDelete:
		call(h.OnApplicationCommand, rec)
	case KindStageInstanceCreate, KindStageInstanceDelete:
		call(h.OnStageInstance, rec)
	case KindGuildJoinRequestDelete:
		call(h.OnGuildJoinRequest, rec)
	case KindVoiceBufferSend:
		call(h.OnVoiceBufferSend, rec)
	case KindVoiceUserTalking:
		call(h.OnVoiceUserTalking, rec)
	case KindVoiceReady:
		call(h.OnVoiceReady, rec)
	case KindVoiceReceive:
		call(h.OnVoiceReceive, rec)
	case KindVoiceTrackMarker:
		call(h.OnVoiceTrackMarker, rec)
	}
}

func call(fn func(*Record), rec *Record) {
	if fn != nil {
		fn(rec)
	}
}
