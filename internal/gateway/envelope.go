package gateway

import (
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// envelope is the gateway wire envelope `{op, s?, t?, d}`.
type envelope struct {
	Op Opcode          `json:"op"`
	S  *int64          `json:"s"`
	T  string          `json:"t"`
	D  json.RawMessage `json:"d"`
}

// peekEnvelope extracts op/s/t without paying for a full unmarshal of d,
// grounded on the teacher's fdl.ParseFrame peek-before-parse shape. The
// heartbeat and ACK paths never need to touch d at all.
func peekEnvelope(raw []byte) (op Opcode, seq *int64, eventName string) {
	result := gjson.ParseBytes(raw)
	op = Opcode(result.Get("op").Int())
	if s := result.Get("s"); s.Exists() && s.Type != gjson.Null {
		v := s.Int()
		seq = &v
	}
	eventName = result.Get("t").String()
	return op, seq, eventName
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var e envelope
	err := json.Unmarshal(raw, &e)
	return e, err
}
