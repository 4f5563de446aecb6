// Package respond is a minimal command dispatcher implementing the adapter's
// Receiver boundary. It matches messages addressed to the bot against
// registered patterns and gives handlers reply/send access through the
// adapter's dispatch engine. Full bot runtimes supply their own Receiver;
// this one drives the serve command and the end-to-end tests.
package respond

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/keepmind9/teamsbridge/internal/activity"
	"github.com/keepmind9/teamsbridge/internal/adapter"
	"github.com/keepmind9/teamsbridge/internal/logger"
	"github.com/sirupsen/logrus"
)

// Sender is the outbound half of the adapter the dispatcher replies through.
type Sender interface {
	Send(ctx context.Context, env adapter.Envelope, payloads ...string) []adapter.DeliveryResult
	Reply(ctx context.Context, env adapter.Envelope, payloads ...string) []adapter.DeliveryResult
}

// Handler processes one matched command.
type Handler func(ctx context.Context, res *Response) error

type rule struct {
	pattern *regexp.Regexp
	handler Handler
}

// Dispatcher routes addressed messages to pattern handlers.
type Dispatcher struct {
	identity activity.BotIdentity

	mu     sync.RWMutex
	sender Sender
	rules  []rule
}

// New creates a dispatcher for a bot identity. Bind attaches the outbound
// path once the adapter exists; the adapter in turn needs the dispatcher as
// its receiver, so the two are wired in that order.
func New(identity activity.BotIdentity) *Dispatcher {
	return &Dispatcher{identity: identity}
}

// Bind attaches the sender handlers reply through.
func (d *Dispatcher) Bind(sender Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sender = sender
}

func (d *Dispatcher) boundSender() Sender {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sender
}

// Respond registers a handler for messages addressed to the bot whose
// remaining text matches the pattern.
func (d *Dispatcher) Respond(pattern string, h Handler) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid respond pattern %q: %w", pattern, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules = append(d.rules, rule{pattern: re, handler: h})
	return nil
}

// Receive implements adapter.Receiver. Messages not addressed to the bot are
// ignored; the first matching rule handles the message.
func (d *Dispatcher) Receive(ctx context.Context, msg adapter.Message) error {
	body, addressed := d.stripAddress(msg.Text)
	if !addressed {
		logger.WithField("message_id", msg.ID).Debug("message-not-addressed-to-bot")
		return nil
	}

	d.mu.RLock()
	rules := d.rules
	d.mu.RUnlock()

	for _, r := range rules {
		match := r.pattern.FindStringSubmatch(body)
		if match == nil {
			continue
		}
		logger.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"pattern":    r.pattern.String(),
		}).Debug("command-matched")
		return r.handler(ctx, &Response{Message: msg, Match: match, dispatcher: d})
	}

	logger.WithField("message_id", msg.ID).Debug("no-command-matched")
	return nil
}

func (d *Dispatcher) stripAddress(text string) (string, bool) {
	for _, name := range []string{d.identity.Alias, d.identity.Name} {
		if name == "" {
			continue
		}
		token := strings.TrimSuffix(activity.AddressToken(name), " ")
		if strings.HasPrefix(text, token) {
			return strings.TrimSpace(strings.TrimPrefix(text, token)), true
		}
	}
	return text, false
}

// Response gives a handler its matched message and the reply path.
type Response struct {
	Message adapter.Message
	Match   []string

	dispatcher *Dispatcher
}

func (r *Response) envelope() adapter.Envelope {
	user := r.Message.User
	return adapter.Envelope{User: &user, Room: user.Room}
}

// Reply sends payloads back through the message's turn sink.
func (r *Response) Reply(ctx context.Context, payloads ...string) []adapter.DeliveryResult {
	sender := r.dispatcher.boundSender()
	if sender == nil {
		logger.Error("dispatcher-has-no-bound-sender")
		return nil
	}
	return sender.Reply(ctx, r.envelope(), payloads...)
}

// Send delivers payloads to the message's room.
func (r *Response) Send(ctx context.Context, payloads ...string) []adapter.DeliveryResult {
	sender := r.dispatcher.boundSender()
	if sender == nil {
		logger.Error("dispatcher-has-no-bound-sender")
		return nil
	}
	return sender.Send(ctx, r.envelope(), payloads...)
}
