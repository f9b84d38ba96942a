package cachebridge

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"shardcore/internal/gateway"
	"shardcore/internal/snowflake"
)

func TestPutThenFindGuildL1Only(t *testing.T) {
	c, err := New(zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id := snowflake.ID(42)
	if err := c.Put(context.Background(), "guild:42", gateway.Guild{ID: id, Name: "Test Guild"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// ristretto admits writes asynchronously via its internal policy; wait
	// for visibility the same way the library's own tests do.
	c.l1.Wait()

	got := c.FindGuild(id)
	if got == nil {
		t.Fatal("FindGuild returned nil after Put")
	}
	if got.Name != "Test Guild" {
		t.Errorf("got.Name = %q, want Test Guild", got.Name)
	}
}

func TestFindMissWithNoL2(t *testing.T) {
	c, err := New(zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := c.FindUser(snowflake.ID(999)); got != nil {
		t.Errorf("expected a cache miss to return nil, got %+v", got)
	}
}
