package gateway

import (
	"shardcore/internal/events"
)

// eventDecoder reads the `d` object of a Dispatch envelope, resolves any
// referenced snowflakes via the cache, and either returns a populated
// Record or reports ok=false when a mandatory reference didn't resolve —
// in which case the caller must silently drop the event rather than
// invoke a handler with a half-populated record.
type eventDecoder func(sh *Shard, d []byte) (*events.Record, bool)

// dispatchTable is the global, immutable event-name → decoder mapping,
// constructed once at init and never mutated afterward, per spec.md §9
// and grounded on the teacher's slice-built-at-init command registry
// (internal/commands.Commands).
var dispatchTable map[string]eventDecoder

func init() {
	dispatchTable = map[string]eventDecoder{
		"READY":   decodeReady,
		"RESUMED": decodeResumed,

		"GUILD_CREATE":              decodeGuildCreate,
		"GUILD_UPDATE":              decodeGuildUpdate,
		"GUILD_DELETE":              decodeGuildDelete,
		"GUILD_ROLE_CREATE":         decodeGuildRole(events.KindGuildRoleCreate),
		"GUILD_ROLE_UPDATE":         decodeGuildRole(events.KindGuildRoleUpdate),
		"GUILD_ROLE_DELETE":         decodeGuildRole(events.KindGuildRoleDelete),
		"GUILD_EMOJIS_UPDATE":       decodeGeneric(events.KindGuildEmojisUpdate),
		"GUILD_INTEGRATIONS_UPDATE": decodeGeneric(events.KindGuildIntegrationsUpdate),

		"CHANNEL_CREATE":      decodeChannel(events.KindChannelCreate),
		"CHANNEL_UPDATE":      decodeChannel(events.KindChannelUpdate),
		"CHANNEL_DELETE":      decodeChannel(events.KindChannelDelete),
		"CHANNEL_PINS_UPDATE": decodeGeneric(events.KindChannelPinsUpdate),

		"GUILD_MEMBER_ADD":    decodeGeneric(events.KindGuildMemberAdd),
		"GUILD_MEMBER_UPDATE": decodeGeneric(events.KindGuildMemberUpdate),
		"GUILD_MEMBER_REMOVE": decodeGeneric(events.KindGuildMemberRemove),
		"GUILD_MEMBERS_CHUNK": decodeGeneric(events.KindGuildMembersChunk),
		"GUILD_BAN_ADD":       decodeGeneric(events.KindGuildBanAdd),
		"GUILD_BAN_REMOVE":    decodeGeneric(events.KindGuildBanRemove),

		"MESSAGE_CREATE":               decodeMessage(events.KindMessageCreate),
		"MESSAGE_UPDATE":               decodeMessage(events.KindMessageUpdate),
		"MESSAGE_DELETE":               decodeGeneric(events.KindMessageDelete),
		"MESSAGE_DELETE_BULK":          decodeGeneric(events.KindMessageDeleteBulk),
		"MESSAGE_REACTION_ADD":         decodeGeneric(events.KindMessageReactionAdd),
		"MESSAGE_REACTION_REMOVE":      decodeGeneric(events.KindMessageReactionRemove),
		"MESSAGE_REACTION_REMOVE_EMOJI": decodeGeneric(events.KindMessageReactionRemoveEmoji),
		"MESSAGE_REACTION_REMOVE_ALL":  decodeGeneric(events.KindMessageReactionRemoveAll),

		"TYPING_START":     decodeGeneric(events.KindTypingStart),
		"PRESENCE_UPDATE":  decodeGeneric(events.KindPresenceUpdate),
		"INVITE_CREATE":    decodeGeneric(events.KindInviteCreate),
		"INVITE_DELETE":    decodeGeneric(events.KindInviteDelete),
		"WEBHOOKS_UPDATE":  decodeGeneric(events.KindWebhooksUpdate),

		"VOICE_STATE_UPDATE":  decodeVoiceStateUpdate,
		"VOICE_SERVER_UPDATE": decodeVoiceServerUpdate,

		"INTERACTION_CREATE": decodeInteractionCreate,

		"APPLICATION_COMMAND_CREATE": decodeGeneric(events.KindApplicationCommandCreate),
		"APPLICATION_COMMAND_UPDATE": decodeGeneric(events.KindApplicationCommandUpdate),
		"APPLICATION_COMMAND_DELETE": decodeGeneric(events.KindApplicationCommandDelete),

		"STAGE_INSTANCE_CREATE":       decodeGeneric(events.KindStageInstanceCreate),
		"STAGE_INSTANCE_DELETE":       decodeGeneric(events.KindStageInstanceDelete),
		"GUILD_JOIN_REQUEST_DELETE":   decodeGeneric(events.KindGuildJoinRequestDelete),
	}
}

// lookupDecoder is the single read path into dispatchTable; kept as a
// function rather than exposing the map so callers can't accidentally
// mutate it.
func lookupDecoder(eventName string) (eventDecoder, bool) {
	d, ok := dispatchTable[eventName]
	return d, ok
}
