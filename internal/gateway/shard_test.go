package gateway

import (
	"encoding/json"
	"testing"
)

// TestHandleHelloIdentifiesWithoutSession covers S1: a fresh shard with no
// prior session queues an IDENTIFY in response to HELLO.
func TestHandleHelloIdentifiesWithoutSession(t *testing.T) {
	sh := newTestShard()
	sh.cfg.Token = "T"
	sh.cfg.Intents = 513
	sh.cfg.ShardCount = 1

	sh.handleHello([]byte(`{"op":10,"d":{"heartbeat_interval":41250}}`))

	if sh.State() != StateIdentifying {
		t.Errorf("state = %v, want StateIdentifying", sh.State())
	}

	msg, priority, ok := sh.queue.pop()
	if !ok || !priority {
		t.Fatal("expected a priority message queued")
	}
	var decoded struct {
		Op Opcode `json:"op"`
	}
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("unmarshal queued message: %v", err)
	}
	if decoded.Op != OpIdentify {
		t.Errorf("queued op = %v, want OpIdentify", decoded.Op)
	}
}

// TestHandleHelloResumesWithSession covers S2: a shard with a prior
// session id queues a RESUME instead of an IDENTIFY.
func TestHandleHelloResumesWithSession(t *testing.T) {
	sh := newTestShard()
	sh.cfg.Token = "T"
	sh.sessionID = "abc"
	seq := int64(42)
	sh.lastSequence = &seq

	sh.handleHello([]byte(`{"op":10,"d":{"heartbeat_interval":41250}}`))

	if sh.State() != StateResuming {
		t.Errorf("state = %v, want StateResuming", sh.State())
	}

	msg, priority, ok := sh.queue.pop()
	if !ok || !priority {
		t.Fatal("expected a priority message queued")
	}
	var decoded struct {
		Op Opcode `json:"op"`
		D  struct {
			SessionID string `json:"session_id"`
			Seq       int64  `json:"seq"`
		} `json:"d"`
	}
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("unmarshal queued message: %v", err)
	}
	if decoded.Op != OpResume {
		t.Errorf("queued op = %v, want OpResume", decoded.Op)
	}
	if decoded.D.SessionID != "abc" || decoded.D.Seq != 42 {
		t.Errorf("resume payload = %+v, want session_id=abc seq=42", decoded.D)
	}
}

// TestHandleInvalidSessionNonResumableClearsSession covers S3.
func TestHandleInvalidSessionNonResumableClearsSession(t *testing.T) {
	sh := newTestShard()
	sh.sessionID = "abc"

	sh.handleInvalidSession([]byte(`{"op":9,"d":false}`))

	if sh.SessionID() != "" {
		t.Errorf("SessionID() = %q, want empty after a non-resumable invalid session", sh.SessionID())
	}
	// The re-identify is queued asynchronously after a jitter delay, so
	// this only asserts the synchronous part of the contract.
}

// TestHandleInvalidSessionResumableKeepsSession covers the resumable half
// of the invalid-session branch: a resume is queued immediately.
func TestHandleInvalidSessionResumableKeepsSession(t *testing.T) {
	sh := newTestShard()
	sh.cfg.Token = "T"
	sh.sessionID = "abc"
	seq := int64(9)
	sh.lastSequence = &seq

	sh.handleInvalidSession([]byte(`{"op":9,"d":true}`))

	if sh.SessionID() != "abc" {
		t.Errorf("SessionID() = %q, want abc to be retained", sh.SessionID())
	}
	msg, priority, ok := sh.queue.pop()
	if !ok || !priority {
		t.Fatal("expected a priority resume queued")
	}
	var decoded struct {
		Op Opcode `json:"op"`
	}
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Op != OpResume {
		t.Errorf("queued op = %v, want OpResume", decoded.Op)
	}
}

func TestHandleDisconnectFatalCloseCode(t *testing.T) {
	sh := newTestShard()

	err := sh.handleDisconnect(4004, nil)
	if err == nil {
		t.Fatal("expected an error for a fatal close code")
	}
}

func TestHandleDisconnectReidentifyClearsSession(t *testing.T) {
	sh := newTestShard()
	sh.sessionID = "abc"
	seq := int64(5)
	sh.lastSequence = &seq

	_ = sh.handleDisconnect(4007, nil)

	if sh.SessionID() != "" {
		t.Error("reidentify close code should clear the session id")
	}
	if sh.LastSequence() != nil {
		t.Error("reidentify close code should clear the last sequence")
	}
}

func TestHandleDisconnectResumeIfSessionKeepsSession(t *testing.T) {
	sh := newTestShard()
	sh.sessionID = "abc"
	seq := int64(5)
	sh.lastSequence = &seq

	_ = sh.handleDisconnect(1006, nil)

	if sh.SessionID() != "abc" {
		t.Error("resume-if-session close code should retain the session id")
	}
}
