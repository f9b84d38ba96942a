package gateway

import "testing"

func TestPeekEnvelope(t *testing.T) {
	raw := []byte(`{"op":0,"s":42,"t":"MESSAGE_CREATE","d":{"content":"hi"}}`)

	op, seq, eventName := peekEnvelope(raw)

	if op != OpDispatch {
		t.Errorf("op = %v, want OpDispatch", op)
	}
	if seq == nil || *seq != 42 {
		t.Errorf("seq = %v, want 42", seq)
	}
	if eventName != "MESSAGE_CREATE" {
		t.Errorf("eventName = %q, want MESSAGE_CREATE", eventName)
	}
}

func TestPeekEnvelopeNilSequence(t *testing.T) {
	raw := []byte(`{"op":11,"s":null,"t":null,"d":null}`)

	op, seq, _ := peekEnvelope(raw)

	if op != OpHeartbeatACK {
		t.Errorf("op = %v, want OpHeartbeatACK", op)
	}
	if seq != nil {
		t.Errorf("seq = %v, want nil", seq)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	raw := []byte(`{"op":10,"d":{"heartbeat_interval":41250}}`)

	env, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if env.Op != OpHello {
		t.Errorf("env.Op = %v, want OpHello", env.Op)
	}
}
