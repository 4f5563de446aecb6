// Package adapter bridges a generic chat-bot runtime to the Bot Framework
// conversational protocol.
//
// Inbound, it accepts platform activities delivered over HTTP, normalizes
// them into platform-neutral messages and hands them to a Receiver. Outbound,
// it implements the runtime's send/reply contract: each payload string is
// classified as an adaptive card, XML-ish markup, or markdown text, and
// delivered through either the live turn's sink or a conversation resurrected
// from the reference store.
//
// The platform SDK's authentication and transport are behind the
// ProtocolClient boundary; the runtime's command dispatch is behind Receiver.
package adapter

import (
	"context"

	"github.com/keepmind9/teamsbridge/internal/activity"
)

// DeliveryResult is the platform's acknowledgement of one delivered payload.
type DeliveryResult struct {
	// ID is the activity id the platform assigned to the delivery.
	ID string `json:"id"`
}

// TurnContext is the live HTTP turn's reply channel. It stays valid only for
// the duration of the turn it was created for.
type TurnContext interface {
	// Activity returns the inbound activity that opened the turn.
	Activity() *activity.Activity

	// SendActivity delivers an outbound activity through the turn's
	// conversation.
	SendActivity(ctx context.Context, out *activity.Activity) (DeliveryResult, error)

	// SendTrace emits a protocol-level trace record for diagnostics.
	SendTrace(ctx context.Context, name, value, valueType, label string) error
}

// TurnHandler processes one turn. The adapter's inbound bridge is the
// canonical implementation.
type TurnHandler func(ctx context.Context, tc TurnContext) error

// TurnErrorHandler converts a protocol-level turn failure into a user-visible
// notice. It must never panic or re-raise.
type TurnErrorHandler func(ctx context.Context, tc TurnContext, err error)

// ConversationParams describes a proactive conversation to create.
type ConversationParams struct {
	IsGroup    bool
	ChannelID  string // platform room the conversation is anchored to
	TenantID   string
	ServiceURL string
}

// ProtocolClient is the opaque platform transport capability. Implementations
// own credential exchange and wire-level turn processing.
type ProtocolClient interface {
	// Process runs one inbound turn: it wraps the activity in a TurnContext,
	// invokes the handler, and routes handler failures through the registered
	// turn-error handler before returning them.
	Process(ctx context.Context, a *activity.Activity, handler TurnHandler) error

	// SendToConversation delivers an activity to a previously referenced
	// conversation, outside any live turn.
	SendToConversation(ctx context.Context, ref activity.Reference, out *activity.Activity) (DeliveryResult, error)

	// CreateConversation starts a proactive conversation and invokes the
	// callback with the reference the platform reports for it. The reported
	// conversation id may differ from the room originally targeted.
	CreateConversation(ctx context.Context, params ConversationParams, callback func(ref activity.Reference) error) error

	// SetTurnErrorHandler registers the handler Process invokes on turn
	// failures.
	SetTurnErrorHandler(h TurnErrorHandler)
}

// Receiver is the generic bot runtime's dispatch entry point. Receive returns
// once the runtime has acknowledged the message, so the HTTP turn can answer.
type Receiver interface {
	Receive(ctx context.Context, msg Message) error
}

// User describes the sender of a normalized message. Message carries the live
// turn sink so a same-turn reply can use it directly.
type User struct {
	ID      string
	Name    string
	Room    string
	Message TurnContext
}

// Message is the platform-neutral message handed to the Receiver.
type Message struct {
	ID   string
	Text string
	User User
}

// Envelope is the runtime's addressing wrapper for send/reply calls. A
// turn-bound envelope carries the user whose Message sink answers in-turn; a
// room-only envelope addresses a stored or freshly created conversation.
type Envelope struct {
	User *User
	Room string
}
