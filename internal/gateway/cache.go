package gateway

import "shardcore/internal/snowflake"

// Guild, User, Channel, Role, and Emoji are the borrowed cache entry
// shapes an event decoder resolves references against. They carry only
// the fields the dispatch layer itself needs; a real embedder's cache
// stores richer objects and returns views satisfying these.
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

type Role struct {
	ID      snowflake.ID
	GuildID snowflake.ID
	Name    string
}

type Emoji struct {
	ID   snowflake.ID
	Name string
}

// Cache is the external collaborator the gateway resolves cache
// references against. Lookups return nil when the entry isn't present;
// event decoders drop dispatch of any record whose mandatory reference
// resolves to nil rather than construct a half-populated record.
type Cache interface {
	FindGuild(id snowflake.ID) *Guild
	FindUser(id snowflake.ID) *User
	FindChannel(id snowflake.ID) *Channel
	FindRole(id snowflake.ID) *Role
	FindEmoji(id snowflake.ID) *Emoji
}
