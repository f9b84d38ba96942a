package gateway

import (
	"github.com/goccy/go-json"

	"shardcore/internal/errs"
	"shardcore/internal/events"
	"shardcore/internal/snowflake"
)

// InteractionType is the top-level kind of an inbound interaction.
type InteractionType int

const (
	InteractionPing               InteractionType = 1
	InteractionApplicationCommand InteractionType = 2
	InteractionMessageComponent   InteractionType = 3
	InteractionModalSubmit        InteractionType = 5
)

// ComponentType identifies a message component payload.
type ComponentType int

const (
	ComponentActionRow ComponentType = 1
	ComponentButton    ComponentType = 2
	ComponentSelect    ComponentType = 3
)

// Interaction is the decoded body of an INTERACTION_CREATE dispatch. The
// original's button_click_t : interaction_create_t subtyping collapses
// into this single struct with a Kind on the outer events.Record deciding
// which projection a handler sees it as, per SPEC_FULL.md's design-notes
// resolution of the inheritance chain.
type Interaction struct {
	ID            snowflake.ID
	Type          InteractionType
	GuildID       snowflake.ID
	ChannelID     snowflake.ID
	UserID        snowflake.ID
	Token         string
	ComponentType ComponentType
	CustomID      string
	CommandName   string
	RawData       []byte
}

type interactionPayload struct {
	ID        snowflake.ID    `json:"id"`
	Type      InteractionType `json:"type"`
	GuildID   snowflake.ID    `json:"guild_id"`
	ChannelID snowflake.ID    `json:"channel_id"`
	Token     string          `json:"token"`
	Member    *struct {
		User struct {
			ID snowflake.ID `json:"id"`
		} `json:"user"`
	} `json:"member"`
	User *struct {
		ID snowflake.ID `json:"id"`
	} `json:"user"`
	Data json.RawMessage `json:"data"`
}

type interactionDataPayload struct {
	Name          string        `json:"name"`
	ComponentType ComponentType `json:"component_type"`
	CustomID      string        `json:"custom_id"`
}

func decodeInteractionCreate(sh *Shard, d []byte) (*events.Record, bool) {
	var p interactionPayload
	if err := json.Unmarshal(d, &p); err != nil {
		return nil, false
	}

	var userID snowflake.ID
	switch {
	case p.Member != nil:
		userID = p.Member.User.ID
	case p.User != nil:
		userID = p.User.ID
	}

	var inner interactionDataPayload
	_ = json.Unmarshal(p.Data, &inner)

	ia := Interaction{
		ID:            p.ID,
		Type:          p.Type,
		GuildID:       p.GuildID,
		ChannelID:     p.ChannelID,
		UserID:        userID,
		Token:         p.Token,
		ComponentType: inner.ComponentType,
		CustomID:      inner.CustomID,
		CommandName:   inner.Name,
		RawData:       p.Data,
	}

	kind := events.KindInteractionCreate
	if ia.Type == InteractionMessageComponent && ia.ComponentType == ComponentButton {
		kind = events.KindButtonClick
	}

	return &events.Record{Kind: kind, ShardID: sh.id, RawJSON: d, Data: ia}, true
}

// ResponseKind is the `type` field of an outbound interaction response.
// ir_acknowledge and ir_channel_message are accepted when decoding legacy
// payloads but rejected by the encoder, per spec.md §9's open-question
// resolution.
type ResponseKind int

const (
	IrPong                             ResponseKind = 1
	IrAcknowledge                      ResponseKind = 2 // deprecated
	IrChannelMessage                   ResponseKind = 3 // deprecated
	IrChannelMessageWithSource         ResponseKind = 4
	IrDeferredChannelMessageWithSource ResponseKind = 5
	IrDeferredUpdateMessage            ResponseKind = 6
	IrUpdateMessage                    ResponseKind = 7
)

func (k ResponseKind) deprecated() bool {
	return k == IrAcknowledge || k == IrChannelMessage
}

// ResponseMessage is value-embedded in InteractionResponse rather than
// held behind a pointer: the original's mixed ownership of `message*`
// added heap indirection with no abstraction benefit, per the design
// notes' resolution of that pattern.
type ResponseMessage struct {
	Content string        `json:"content,omitempty"`
	Flags   int           `json:"flags,omitempty"`
	Embeds  []interface{} `json:"embeds,omitempty"`
}

// InteractionResponse is the outbound `{type, data}` body sent back to
// Discord's interaction callback endpoint.
type InteractionResponse struct {
	Kind ResponseKind
	Data ResponseMessage
}

// MarshalJSON rejects the two deprecated response kinds outright, rather
// than silently downgrading them to a supported kind.
func (r InteractionResponse) MarshalJSON() ([]byte, error) {
	if r.Kind.deprecated() {
		return nil, errs.ErrDeprecatedKind
	}
	return json.Marshal(struct {
		Type ResponseKind    `json:"type"`
		Data ResponseMessage `json:"data,omitempty"`
	}{Type: r.Kind, Data: r.Data})
}
