package inflate

import (
	"bytes"
	"compress/zlib"
	"testing"
)

// writeSyncFlush writes payload through w and returns exactly the bytes
// produced by this call, i.e. one "frame" as it would arrive off the wire.
func writeSyncFlush(t *testing.T, w *zlib.Writer, buf *bytes.Buffer, payload []byte) []byte {
	t.Helper()
	before := buf.Len()
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("zlib flush: %v", err)
	}
	return buf.Bytes()[before:]
}

func TestContextDecodesSingleFrame(t *testing.T) {
	var wire bytes.Buffer
	zw := zlib.NewWriter(&wire)

	frame := writeSyncFlush(t, zw, &wire, []byte(`{"op":10,"d":{}}`))

	ctx := NewContext()
	out, err := ctx.Write(frame)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if string(out) != `{"op":10,"d":{}}` {
		t.Errorf("decompressed = %q, want the original payload", out)
	}
}

func TestContextPersistsAcrossMultipleFrames(t *testing.T) {
	var wire bytes.Buffer
	zw := zlib.NewWriter(&wire)

	frame1 := writeSyncFlush(t, zw, &wire, []byte(`{"op":0,"t":"READY"}`))
	frame2 := writeSyncFlush(t, zw, &wire, []byte(`{"op":0,"t":"MESSAGE_CREATE"}`))

	ctx := NewContext()

	out1, err := ctx.Write(frame1)
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if string(out1) != `{"op":0,"t":"READY"}` {
		t.Errorf("first frame decompressed = %q", out1)
	}

	out2, err := ctx.Write(frame2)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if string(out2) != `{"op":0,"t":"MESSAGE_CREATE"}` {
		t.Errorf("second frame decompressed = %q", out2)
	}

	if ctx.TotalOut() != uint64(len(out1)+len(out2)) {
		t.Errorf("TotalOut() = %d, want %d", ctx.TotalOut(), len(out1)+len(out2))
	}
}

func TestContextBuffersUntilSyncFlush(t *testing.T) {
	var wire bytes.Buffer
	zw := zlib.NewWriter(&wire)
	if _, err := zw.Write([]byte(`{"op":10`)); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	// No Flush yet: the compressor may not have emitted a sync-flush
	// marker, so the partial bytes on the wire so far should not decode.
	partial := wire.Bytes()

	ctx := NewContext()
	out, err := ctx.Write(partial)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out != nil {
		t.Error("expected nil output before a sync-flush marker arrives")
	}
}
