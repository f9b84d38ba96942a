package gateway

import (
	"encoding/json"
	"errors"
	"testing"

	"shardcore/internal/errs"
)

func TestInteractionResponseRejectsDeprecatedKinds(t *testing.T) {
	for _, kind := range []ResponseKind{IrAcknowledge, IrChannelMessage} {
		resp := InteractionResponse{Kind: kind}
		_, err := resp.MarshalJSON()
		if !errors.Is(err, errs.ErrDeprecatedKind) {
			t.Errorf("kind %v: err = %v, want errs.ErrDeprecatedKind", kind, err)
		}
	}
}

func TestInteractionResponseEncodesSupportedKind(t *testing.T) {
	resp := InteractionResponse{
		Kind: IrChannelMessageWithSource,
		Data: ResponseMessage{Content: "pong"},
	}

	raw, err := resp.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var decoded struct {
		Type int `json:"type"`
		Data struct {
			Content string `json:"content"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != int(IrChannelMessageWithSource) {
		t.Errorf("type = %d, want %d", decoded.Type, IrChannelMessageWithSource)
	}
	if decoded.Data.Content != "pong" {
		t.Errorf("content = %q, want pong", decoded.Data.Content)
	}
}
