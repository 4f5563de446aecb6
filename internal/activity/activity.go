// Package activity defines the Bot Framework activity envelope and the pure
// text rewriting rules applied to inbound activities.
//
// An Activity is the JSON body the platform delivers once per HTTP turn. It is
// treated as immutable after normalization except for the Text field, which
// Normalize and ApplyKindRules rewrite in place before the inbound bridge
// reads it. The durable residue of an activity is the Reference derived from
// it, which the adapter's reference store keeps for proactive sends.
package activity

import "encoding/json"

// Activity type discriminators
const (
	TypeMessage = "message"
	TypeTrace   = "trace"
)

// Outbound text formats understood by the platform renderer
const (
	FormatMarkdown = "markdown"
	FormatXML      = "xml"
	FormatPlain    = "plain"
)

// AdaptiveCardContentType is the attachment content type for adaptive cards.
const AdaptiveCardContentType = "application/vnd.microsoft.card.adaptive"

// Activity is one platform event, inbound or outbound, on the wire.
type Activity struct {
	Type         string        `json:"type,omitempty"`
	ID           string        `json:"id,omitempty"`
	Text         string        `json:"text,omitempty"`
	TextFormat   string        `json:"textFormat,omitempty"`
	ChannelID    string        `json:"channelId,omitempty"`
	ServiceURL   string        `json:"serviceUrl,omitempty"`
	Conversation *Conversation `json:"conversation,omitempty"`
	From         *Account      `json:"from,omitempty"`
	Recipient    *Account      `json:"recipient,omitempty"`
	ChannelData  *ChannelData  `json:"channelData,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`

	// Trace fields, only set on TypeTrace activities
	Name      string `json:"name,omitempty"`
	Label     string `json:"label,omitempty"`
	ValueType string `json:"valueType,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Conversation identifies the room an activity belongs to.
type Conversation struct {
	ID               string `json:"id,omitempty"`
	ConversationType string `json:"conversationType,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
}

// Account is a user or bot identity on the platform.
type Account struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ChannelData carries Teams-specific room and team identifiers.
type ChannelData struct {
	Channel *ChannelInfo `json:"channel,omitempty"`
	Team    *TeamInfo    `json:"team,omitempty"`
	Tenant  *TenantInfo  `json:"tenant,omitempty"`
}

// ChannelInfo identifies a Teams channel inside a team.
type ChannelInfo struct {
	ID string `json:"id,omitempty"`
}

// TeamInfo identifies a Teams team.
type TeamInfo struct {
	ID string `json:"id,omitempty"`
}

// TenantInfo identifies the Azure AD tenant the event originated from.
type TenantInfo struct {
	ID string `json:"id,omitempty"`
}

// Attachment is a structured, non-text message part such as an adaptive card.
// Content is passed through opaque; the adapter does not validate card schemas.
type Attachment struct {
	ContentType string          `json:"contentType,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

// Reference is the minimal addressable handle needed to resurrect a
// conversation outside its originating turn. Never mutated after derivation;
// the store overwrites entries wholesale.
type Reference struct {
	ConversationID string
	ServiceURL     string
	ChannelID      string
}

// RoomKey returns the store key for the room an activity belongs to:
// the conversation id when present, else the channel id. The same convention
// is used for the normalized message's room so outbound lookups find the
// reference captured here.
func RoomKey(a *Activity) string {
	if a.Conversation != nil && a.Conversation.ID != "" {
		return a.Conversation.ID
	}
	return a.ChannelID
}

// ReferenceFrom derives the durable conversation handle from an activity.
func ReferenceFrom(a *Activity) Reference {
	ref := Reference{
		ServiceURL: a.ServiceURL,
		ChannelID:  a.ChannelID,
	}
	if a.Conversation != nil {
		ref.ConversationID = a.Conversation.ID
	}
	return ref
}
