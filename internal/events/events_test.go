package events

import "testing"

func TestDispatchRoutesByKind(t *testing.T) {
	var gotReady, gotMessage bool

	h := &Handlers{
		OnReady:   func(*Record) { gotReady = true },
		OnMessage: func(*Record) { gotMessage = true },
	}

	h.Dispatch(&Record{Kind: KindReady})
	if !gotReady {
		t.Error("OnReady was not invoked for KindReady")
	}
	if gotMessage {
		t.Error("OnMessage should not fire for KindReady")
	}

	h.Dispatch(&Record{Kind: KindMessageUpdate})
	if !gotMessage {
		t.Error("OnMessage should fire for KindMessageUpdate (message create/update/delete share one slot)")
	}
}

func TestDispatchNilHandlerIsNoop(t *testing.T) {
	h := &Handlers{}
	// Should not panic even though no slot is registered.
	h.Dispatch(&Record{Kind: KindGuildCreate})
}

func TestDispatchNilReceiverIsNoop(t *testing.T) {
	var h *Handlers
	// A nil *Handlers (never configured) must be a safe no-op.
	h.Dispatch(&Record{Kind: KindReady})
}
