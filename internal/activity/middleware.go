package activity

import "strings"

// ConversationKind is the closed set of conversation shapes the platform
// reports. Unknown strings map to KindUnknown, which gets identity treatment.
type ConversationKind int

const (
	KindUnknown ConversationKind = iota
	KindPersonal
	KindChannel
	KindGroupChat
)

// ParseKind maps the wire conversationType string to a ConversationKind.
func ParseKind(conversationType string) ConversationKind {
	switch conversationType {
	case "personal":
		return KindPersonal
	case "channel":
		return KindChannel
	case "groupChat":
		return KindGroupChat
	default:
		return KindUnknown
	}
}

// String returns the wire form of the kind.
func (k ConversationKind) String() string {
	switch k {
	case KindPersonal:
		return "personal"
	case KindChannel:
		return "channel"
	case KindGroupChat:
		return "groupChat"
	default:
		return "unknown"
	}
}

// ApplyKindRules rewrites an activity's text according to its conversation
// kind. Must run after Normalize so both operate on the @name convention.
//
//   - personal: direct messages are implicitly addressed to the bot, but the
//     command dispatcher requires an explicit address token. When the declared
//     recipient is the bot and the token is missing, prepend it.
//   - channel/groupChat: channel traffic is broadcast-visible; only addressed
//     messages should dispatch as commands, so the token is ensured
//     unconditionally.
//
// Applying the rules twice never duplicates the token.
func ApplyKindRules(a *Activity, identity BotIdentity) {
	if a == nil || a.Conversation == nil {
		return
	}
	name := identity.EffectiveName()
	token := AddressToken(name)

	switch ParseKind(a.Conversation.ConversationType) {
	case KindPersonal:
		if a.Recipient != nil && a.Recipient.Name == name && !strings.Contains(a.Text, token) {
			a.Text = token + a.Text
		}
	case KindChannel, KindGroupChat:
		if !strings.Contains(a.Text, token) {
			a.Text = token + a.Text
		}
	case KindUnknown:
		// identity
	}
}
