package gateway

import (
	"testing"

	"go.uber.org/zap"

	"shardcore/internal/events"
	"shardcore/internal/snowflake"
)

// emptyCache never resolves anything, exercising the mandatory-reference
// dropout path (property 6, §8).
type emptyCache struct{}

func (emptyCache) FindGuild(snowflake.ID) *Guild     { return nil }
func (emptyCache) FindUser(snowflake.ID) *User       { return nil }
func (emptyCache) FindChannel(snowflake.ID) *Channel { return nil }
func (emptyCache) FindRole(snowflake.ID) *Role       { return nil }
func (emptyCache) FindEmoji(snowflake.ID) *Emoji     { return nil }

func newTestShard() *Shard {
	return New(0, Config{Token: "T", ShardCount: 1}, emptyCache{}, zap.NewNop(), nil, &events.Handlers{})
}

func TestDecodeGuildUpdateDropsOnCacheMiss(t *testing.T) {
	sh := newTestShard()

	rec, dispatch := decodeGuildUpdate(sh, []byte(`{"id":"123456789012345678"}`))

	if dispatch {
		t.Fatal("expected dispatch=false when the guild is not in cache")
	}
	if rec != nil {
		t.Fatal("expected a nil record on dropout")
	}
}

func TestDecodeGuildCreateDispatchesEvenWithoutCacheEntry(t *testing.T) {
	sh := newTestShard()

	rec, dispatch := decodeGuildCreate(sh, []byte(`{"id":"123456789012345678"}`))

	if !dispatch {
		t.Fatal("GUILD_CREATE must dispatch even on a fresh guild the cache hasn't seen yet")
	}
	data, ok := rec.Data.(GuildEventData)
	if !ok {
		t.Fatalf("rec.Data type = %T, want GuildEventData", rec.Data)
	}
	if data.Guild != nil {
		t.Error("expected a nil Guild borrow since the cache has nothing for this id")
	}
}

func TestDecodeReadySetsShardState(t *testing.T) {
	sh := newTestShard()

	rec, dispatch := decodeReady(sh, []byte(`{"session_id":"abc","user":{"id":"555"}}`))
	if !dispatch {
		t.Fatal("READY must always dispatch")
	}
	if !sh.IsReady() {
		t.Error("shard should be marked ready after READY")
	}
	if sh.State() != StateReady {
		t.Errorf("shard state = %v, want StateReady", sh.State())
	}
	if sh.SessionID() != "abc" {
		t.Errorf("SessionID() = %q, want abc", sh.SessionID())
	}
	if rec.Kind != events.KindReady {
		t.Errorf("rec.Kind = %v, want KindReady", rec.Kind)
	}
}

func TestLookupDecoderUnknownEventName(t *testing.T) {
	if _, ok := lookupDecoder("SOME_FUTURE_EVENT_TYPE"); ok {
		t.Error("lookupDecoder should report false for an unrecognized event name")
	}
}
