package gateway

import "github.com/goccy/go-json"

// CommandOptionType mirrors Discord's application command option type
// enum (STRING=3, INTEGER=4, BOOLEAN=5, USER=6, CHANNEL=7, ROLE=8,
// MENTIONABLE=9, NUMBER=10, SUB_COMMAND=1, SUB_COMMAND_GROUP=2).
type CommandOptionType int

// CommandOptionChoice is one static choice presented for an option.
type CommandOptionChoice struct {
	Name  string
	Value interface{}
}

// CommandOption is a single option (or, when Options is non-empty, a
// subcommand/subcommand-group) in a slash command definition.
type CommandOption struct {
	Type        CommandOptionType
	Name        string
	Description string
	Required    bool
	Choices     []CommandOptionChoice
	Options     []CommandOption
}

// SlashCommand is a top-level application command definition.
type SlashCommand struct {
	ID          uint64
	Name        string
	Description string
	Options     []CommandOption
}

// BuildJSON serializes the command to the wire body Discord's
// ApplicationCommandCreate/Update endpoints expect. Nested subcommand
// options are built recursively: original_source/src/dpp/slashcommand.cpp
// builds each subcommand's inner object from the *parent* option's fields
// and then pushes the *outer* object repeatedly instead of the freshly
// built one, so a command with N subcommands under one option serializes
// N duplicate copies of the first entry. This builder instead recurses
// per option and emits a fresh object mirroring that option's own shape
// at every level, matching the documented intent rather than the bug.
func (c SlashCommand) BuildJSON(withID bool) ([]byte, error) {
	body := map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
	}
	if withID && c.ID != 0 {
		body["id"] = c.ID
	}
	if len(c.Options) > 0 {
		opts := make([]interface{}, 0, len(c.Options))
		for _, opt := range c.Options {
			opts = append(opts, buildOption(opt))
		}
		body["options"] = opts
	}
	return json.Marshal(body)
}

func buildOption(opt CommandOption) map[string]interface{} {
	n := map[string]interface{}{
		"name":        opt.Name,
		"description": opt.Description,
		"type":        opt.Type,
		"required":    opt.Required,
	}

	if len(opt.Choices) > 0 {
		choices := make([]interface{}, 0, len(opt.Choices))
		for _, ch := range opt.Choices {
			choices = append(choices, map[string]interface{}{
				"name":  ch.Name,
				"value": ch.Value,
			})
		}
		n["choices"] = choices
	}

	if len(opt.Options) > 0 {
		sub := make([]interface{}, 0, len(opt.Options))
		for _, subcommand := range opt.Options {
			sub = append(sub, buildOption(subcommand))
		}
		n["options"] = sub
	}

	return n
}
