package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/keepmind9/teamsbridge/internal/activity"
	"github.com/keepmind9/teamsbridge/internal/logger"
	"github.com/keepmind9/teamsbridge/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Event kinds emitted to subscribers
const (
	EventSend         = "send"
	EventReply        = "reply"
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// Event is the adapter's observability signal. Send/reply events carry the
// original envelope and the successful delivery results; they are the only
// externally observable record of delivery count.
type Event struct {
	Kind     string
	Envelope Envelope
	Results  []DeliveryResult
}

// Options configures the adapter.
type Options struct {
	Identity activity.BotIdentity

	// TenantID templates the regional default service URL for proactive
	// conversation creation.
	TenantID string

	// ServiceURL, when set, overrides the regional default for proactive
	// conversation creation.
	ServiceURL string

	// AutoCreate selects the deployment policy for sends targeting rooms with
	// no stored reference: create a fresh conversation instead of failing.
	AutoCreate bool
}

// Adapter is the outbound dispatch engine and inbound bridge between the bot
// runtime and the protocol client.
type Adapter struct {
	client   ProtocolClient
	receiver Receiver
	store    *ReferenceStore
	opts     Options

	mu        sync.RWMutex
	listeners []func(Event)
}

// New creates an adapter and registers its turn-error handler on the client.
// The reference store is constructor-provided so tests can substitute an
// isolated instance per scenario.
func New(client ProtocolClient, receiver Receiver, store *ReferenceStore, opts Options) *Adapter {
	if store == nil {
		store = NewReferenceStore()
	}
	a := &Adapter{
		client:   client,
		receiver: receiver,
		store:    store,
		opts:     opts,
	}
	client.SetTurnErrorHandler(a.onTurnError)
	return a
}

// Client returns the protocol client the adapter dispatches through.
func (a *Adapter) Client() ProtocolClient {
	return a.client
}

// Store returns the adapter's reference store.
func (a *Adapter) Store() *ReferenceStore {
	return a.store
}

// Notify registers a listener for adapter events.
func (a *Adapter) Notify(fn func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *Adapter) emit(evt Event) {
	a.mu.RLock()
	listeners := make([]func(Event), len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.RUnlock()
	for _, fn := range listeners {
		fn(evt)
	}
}

// Send delivers the payloads through the envelope's sink and emits a send
// event. Delivery is best-effort: per-payload failures are logged and
// swallowed, and only successful results are returned.
func (a *Adapter) Send(ctx context.Context, env Envelope, payloads ...string) []DeliveryResult {
	results := a.dispatch(ctx, env, payloads)
	a.emit(Event{Kind: EventSend, Envelope: env, Results: results})
	return results
}

// Reply behaves like Send but emits a reply event. Both share the sink
// resolution and classification logic.
func (a *Adapter) Reply(ctx context.Context, env Envelope, payloads ...string) []DeliveryResult {
	results := a.dispatch(ctx, env, payloads)
	a.emit(Event{Kind: EventReply, Envelope: env, Results: results})
	return results
}

// SendToRoom delivers payloads to a room outside any live turn, using the
// stored conversation reference or, when AutoCreate is on, a freshly created
// conversation.
func (a *Adapter) SendToRoom(ctx context.Context, room string, payloads ...string) []DeliveryResult {
	return a.Send(ctx, Envelope{Room: room}, payloads...)
}

// sinkFunc submits one classified activity to a resolved destination.
type sinkFunc func(ctx context.Context, out *activity.Activity) (DeliveryResult, error)

func (a *Adapter) dispatch(ctx context.Context, env Envelope, payloads []string) []DeliveryResult {
	sink, err := a.resolveSink(ctx, env)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"room":  env.Room,
			"error": err,
		}).Error("no-outbound-sink-for-envelope")
		return []DeliveryResult{}
	}

	// All payloads are submitted concurrently; completion order among them
	// carries no meaning. Successes keep payload order in the result list.
	delivered := make([]*DeliveryResult, len(payloads))
	var wg sync.WaitGroup
	for i, payload := range payloads {
		wg.Add(1)
		go func(i int, payload string) {
			defer wg.Done()
			res, err := sink(ctx, a.classify(payload))
			if err != nil {
				a.logDeliveryError(err)
				return
			}
			delivered[i] = &res
		}(i, payload)
	}
	wg.Wait()

	results := make([]DeliveryResult, 0, len(payloads))
	for _, res := range delivered {
		if res != nil {
			results = append(results, *res)
		}
	}
	return results
}

// resolveSink picks the delivery path for an envelope: the live turn sink when
// one is attached, else a conversation resurrected (or created) from the room.
func (a *Adapter) resolveSink(ctx context.Context, env Envelope) (sinkFunc, error) {
	if env.User != nil && env.User.Message != nil {
		return env.User.Message.SendActivity, nil
	}
	if env.Room == "" {
		return nil, errors.New("envelope carries neither a turn context nor a room")
	}

	ref, ok := a.store.Get(env.Room)
	if !ok {
		if !a.opts.AutoCreate {
			return nil, fmt.Errorf("no conversation reference stored for room %s", env.Room)
		}
		created, err := a.createConversation(ctx, env.Room)
		if err != nil {
			return nil, fmt.Errorf("failed to create conversation for room %s: %w", env.Room, err)
		}
		ref = created
	}

	return func(ctx context.Context, out *activity.Activity) (DeliveryResult, error) {
		return a.client.SendToConversation(ctx, ref, out)
	}, nil
}

// createConversation synthesizes a proactive conversation for a room with no
// stored reference. The reference reported by the creation callback is stored
// under the new conversation id, which may differ from the requested room.
func (a *Adapter) createConversation(ctx context.Context, room string) (activity.Reference, error) {
	serviceURL := a.opts.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf(constants.DefaultServiceURLTemplate, a.opts.TenantID)
	}

	params := ConversationParams{
		IsGroup:    true,
		ChannelID:  room,
		TenantID:   a.opts.TenantID,
		ServiceURL: serviceURL,
	}

	var ref activity.Reference
	err := a.client.CreateConversation(ctx, params, func(created activity.Reference) error {
		ref = created
		a.store.Upsert(created.ConversationID, created)
		logger.WithFields(logrus.Fields{
			"room":            room,
			"conversation_id": created.ConversationID,
			"service_url":     created.ServiceURL,
		}).Info("proactive-conversation-created")
		return nil
	})
	if err != nil {
		return activity.Reference{}, err
	}
	return ref, nil
}

// closingTagPattern marks a payload as XML-ish markup. Any closing tag
// anywhere in the string qualifies, even when the rest is prose; the platform
// renderer depends on this exact heuristic.
var closingTagPattern = regexp.MustCompile(`</(.*)>`)

// classify builds the outbound activity for one payload string. A payload
// that parses as a JSON object becomes a single adaptive card attachment with
// no text form; otherwise it is text, marked xml when it contains a closing
// tag and markdown by default.
func (a *Adapter) classify(payload string) *activity.Activity {
	if card, ok := parseCard(payload); ok {
		return &activity.Activity{
			Type: activity.TypeMessage,
			Attachments: []activity.Attachment{{
				ContentType: activity.AdaptiveCardContentType,
				Content:     card,
			}},
		}
	}

	if len(payload) > constants.MaxActivityTextLength {
		logger.WithFields(logrus.Fields{
			"original_length": len(payload),
			"max_length":      constants.MaxActivityTextLength,
		}).Info("truncating-payload-to-activity-limit")
		payload = payload[:constants.MaxActivityTextLength]
	}

	format := activity.FormatMarkdown
	if closingTagPattern.MatchString(payload) {
		format = activity.FormatXML
	}
	return &activity.Activity{
		Type:       activity.TypeMessage,
		Text:       payload,
		TextFormat: format,
	}
}

// parseCard reports whether the payload is a self-describing JSON object and
// returns it verbatim for attachment pass-through.
func parseCard(payload string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		logger.WithField("error", err).Debug("payload-is-not-a-card")
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

// statusCoder is implemented by transport errors carrying an HTTP status.
type statusCoder interface {
	StatusCode() int
}

func (a *Adapter) logDeliveryError(err error) {
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusUnauthorized {
		logger.WithFields(logrus.Fields{
			"bot":   a.opts.Identity.Name,
			"error": err,
		}).Error("unauthorized: check BOT_APP_ID, BOT_CLIENT_SECRET, BOT_APP_TYPE, and BOT_TENANT_ID")
		return
	}
	logger.WithFields(logrus.Fields{
		"bot":   a.opts.Identity.Name,
		"error": err,
	}).Error("failed-to-deliver-payload")
}

// onTurnError converts a protocol-level turn failure into a logged diagnostic
// trace plus a fixed user-visible notice. It never re-raises; a failure here
// must not leave the HTTP turn unanswered.
func (a *Adapter) onTurnError(ctx context.Context, tc TurnContext, err error) {
	logger.WithFields(logrus.Fields{
		"bot":   a.opts.Identity.Name,
		"error": err,
	}).Error("turn-error")

	if tc == nil {
		return
	}
	if terr := tc.SendTrace(ctx, "OnTurnError Trace", err.Error(), constants.ErrorSchemaURL, "TurnError"); terr != nil {
		logger.WithField("error", terr).Debug("failed-to-send-turn-error-trace")
	}
	if _, serr := tc.SendActivity(ctx, &activity.Activity{
		Type: activity.TypeMessage,
		Text: constants.TurnErrorNotice,
	}); serr != nil {
		logger.WithField("error", serr).Debug("failed-to-send-turn-error-notice")
	}
}
