package gateway

import (
	"testing"
	"time"
)

func TestOutboundLimiterReservesHeadroomForPriority(t *testing.T) {
	l := newOutboundLimiter()
	now := time.Now()

	// Exhaust the non-priority budget (limit - reserved = 118).
	for i := 0; i < l.limit-l.reserved; i++ {
		if !l.allow(now, false) {
			t.Fatalf("non-priority send %d unexpectedly denied", i)
		}
	}

	if l.allow(now, false) {
		t.Error("non-priority send should be denied once its budget is exhausted")
	}

	// Priority sends may still dip into the reserved headroom.
	for i := 0; i < l.reserved; i++ {
		if !l.allow(now, true) {
			t.Fatalf("priority send %d should be allowed from reserved headroom", i)
		}
	}

	if l.allow(now, true) {
		t.Error("priority send should be denied once the reserved headroom is also exhausted")
	}
}

func TestOutboundLimiterEvictsExpiredEntries(t *testing.T) {
	l := newOutboundLimiter()
	base := time.Now()

	for i := 0; i < l.limit; i++ {
		if !l.allow(base, true) {
			t.Fatalf("send %d unexpectedly denied within budget", i)
		}
	}
	if l.allow(base, true) {
		t.Fatal("budget should be exhausted")
	}

	later := base.Add(l.window + time.Second)
	if !l.allow(later, false) {
		t.Error("send after the window has fully elapsed should be allowed")
	}
}
