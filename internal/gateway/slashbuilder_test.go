package gateway

import (
	"encoding/json"
	"testing"
)

func TestBuildJSONFlatCommand(t *testing.T) {
	cmd := SlashCommand{
		Name:        "ping",
		Description: "replies with pong",
	}

	raw, err := cmd.BuildJSON(false)
	if err != nil {
		t.Fatalf("BuildJSON: %v", err)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["name"] != "ping" {
		t.Errorf("name = %v, want ping", body["name"])
	}
	if _, hasOptions := body["options"]; hasOptions {
		t.Error("a command with no options should not emit an options array")
	}
}

// TestBuildJSONNestedSubcommandsAreDistinct guards against reintroducing
// the source builder's duplicated-push bug: each subcommand under a
// subcommand group must carry its own name, not a copy of the first one.
func TestBuildJSONNestedSubcommandsAreDistinct(t *testing.T) {
	cmd := SlashCommand{
		Name:        "giveaway",
		Description: "manage giveaways",
		Options: []CommandOption{
			{
				Type:        2, // SUB_COMMAND_GROUP
				Name:        "manage",
				Description: "manage a giveaway",
				Options: []CommandOption{
					{Type: 1, Name: "start", Description: "start a giveaway"},
					{Type: 1, Name: "end", Description: "end a giveaway"},
					{Type: 1, Name: "reroll", Description: "reroll a giveaway"},
				},
			},
		},
	}

	raw, err := cmd.BuildJSON(false)
	if err != nil {
		t.Fatalf("BuildJSON: %v", err)
	}

	var body struct {
		Options []struct {
			Options []struct {
				Name string `json:"name"`
			} `json:"options"`
		} `json:"options"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(body.Options) != 1 {
		t.Fatalf("top-level options = %d, want 1", len(body.Options))
	}
	sub := body.Options[0].Options
	if len(sub) != 3 {
		t.Fatalf("nested subcommands = %d, want 3", len(sub))
	}
	wantNames := []string{"start", "end", "reroll"}
	for i, want := range wantNames {
		if sub[i].Name != want {
			t.Errorf("subcommand[%d].name = %q, want %q (bug would duplicate the first entry)", i, sub[i].Name, want)
		}
	}
}
