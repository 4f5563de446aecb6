package activity

import "strings"

// BotIdentity is the bot's addressing identity on the platform.
type BotIdentity struct {
	Name  string
	Alias string
}

// EffectiveName returns the alias when set, else the primary name.
func (b BotIdentity) EffectiveName() string {
	if b.Alias != "" {
		return b.Alias
	}
	return b.Name
}

// AddressToken returns the dispatcher's address token for a name, including
// the trailing space that separates it from the command text.
func AddressToken(name string) string {
	return "@" + name + " "
}

// Normalize rewrites inbound activity text into the form the command
// dispatcher expects. Rules, in order:
//
//  1. strip a single leading CRLF
//  2. strip a single trailing literal backslash-n token (some platform
//     clients send the escaped form instead of a real newline)
//  3. rewrite the platform mention markup <at>NAME</at> for the bot's name
//     and alias into the @NAME address token
//  4. trim surrounding whitespace
//
// Normalize is a no-op on text already in output form, so re-applying it is
// safe. Empty text passes through unchanged.
func Normalize(text string, identity BotIdentity) string {
	if text == "" {
		return text
	}
	text = strings.TrimPrefix(text, "\r\n")
	text = strings.TrimSuffix(text, `\n`)
	text = strings.Replace(text, "<at>"+identity.Name+"</at> ", AddressToken(identity.Name), 1)
	if identity.Alias != "" && identity.Alias != identity.Name {
		text = strings.Replace(text, "<at>"+identity.Alias+"</at> ", AddressToken(identity.Alias), 1)
	}
	return strings.TrimSpace(text)
}
