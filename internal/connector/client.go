// Package connector implements the adapter's ProtocolClient over the Bot
// Framework REST surface. Credential exchange stays behind the TokenProvider
// boundary; the client only attaches whatever bearer token the provider
// hands out.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/keepmind9/teamsbridge/internal/activity"
	"github.com/keepmind9/teamsbridge/internal/adapter"
	"github.com/keepmind9/teamsbridge/internal/logger"
	"github.com/keepmind9/teamsbridge/pkg/constants"
	"github.com/sirupsen/logrus"
)

// TokenProvider supplies bearer tokens for outbound service calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. The empty string sends requests
// unauthenticated, which the emulator accepts.
type StaticTokenProvider string

// Token implements TokenProvider.
func (s StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// APIError is a non-2xx answer from the platform. It carries the status code
// the adapter's error taxonomy branches on.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bot framework API returned %d: %s", e.Status, e.Body)
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int {
	return e.Status
}

// Client talks to the platform's conversation REST API.
type Client struct {
	httpClient *http.Client
	tokens     TokenProvider

	mu         sync.RWMutex
	turnErrors adapter.TurnErrorHandler
}

// NewClient creates a client using the given token provider. A nil provider
// sends unauthenticated requests.
func NewClient(tokens TokenProvider) *Client {
	if tokens == nil {
		tokens = StaticTokenProvider("")
	}
	return &Client{
		httpClient: &http.Client{Timeout: constants.DefaultHTTPTimeout},
		tokens:     tokens,
	}
}

// SetHTTPClient replaces the underlying HTTP client, used by tests.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.httpClient = h
}

// SetTurnErrorHandler implements adapter.ProtocolClient.
func (c *Client) SetTurnErrorHandler(h adapter.TurnErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turnErrors = h
}

func (c *Client) turnErrorHandler() adapter.TurnErrorHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turnErrors
}

// Process implements adapter.ProtocolClient. Handler failures are routed
// through the turn-error handler before being returned, so the user gets the
// in-turn notice and the caller still sees the error.
func (c *Client) Process(ctx context.Context, a *activity.Activity, handler adapter.TurnHandler) error {
	tc := &turnContext{client: c, activity: a}
	if err := handler(ctx, tc); err != nil {
		if h := c.turnErrorHandler(); h != nil {
			h(ctx, tc, err)
		}
		return err
	}
	return nil
}

// SendToConversation implements adapter.ProtocolClient.
func (c *Client) SendToConversation(ctx context.Context, ref activity.Reference, out *activity.Activity) (adapter.DeliveryResult, error) {
	if ref.ServiceURL == "" {
		return adapter.DeliveryResult{}, fmt.Errorf("conversation %s has no service URL", ref.ConversationID)
	}

	act := *out
	if act.ID == "" {
		act.ID = uuid.NewString()
	}
	if act.Conversation == nil {
		act.Conversation = &activity.Conversation{ID: ref.ConversationID}
	}

	endpoint := serviceEndpoint(ref.ServiceURL, "v3/conversations/"+url.PathEscape(ref.ConversationID)+"/activities")
	var ack struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, endpoint, &act, &ack); err != nil {
		return adapter.DeliveryResult{}, err
	}
	if ack.ID == "" {
		ack.ID = act.ID
	}

	logger.WithFields(logrus.Fields{
		"conversation_id": ref.ConversationID,
		"activity_id":     ack.ID,
	}).Debug("activity-delivered")
	return adapter.DeliveryResult{ID: ack.ID}, nil
}

// conversationRequest is the wire body for proactive conversation creation.
type conversationRequest struct {
	IsGroup     bool                  `json:"isGroup"`
	ChannelData *activity.ChannelData `json:"channelData,omitempty"`
	TenantID    string                `json:"tenantId,omitempty"`
}

// CreateConversation implements adapter.ProtocolClient. The callback receives
// the reference under the conversation id the platform reports, which may
// differ from the channel originally targeted.
func (c *Client) CreateConversation(ctx context.Context, params adapter.ConversationParams, callback func(ref activity.Reference) error) error {
	req := conversationRequest{
		IsGroup:  params.IsGroup,
		TenantID: params.TenantID,
	}
	if params.ChannelID != "" {
		req.ChannelData = &activity.ChannelData{
			Channel: &activity.ChannelInfo{ID: params.ChannelID},
		}
	}

	endpoint := serviceEndpoint(params.ServiceURL, "v3/conversations")
	var ack struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, endpoint, req, &ack); err != nil {
		return err
	}
	if ack.ID == "" {
		return fmt.Errorf("conversation creation returned no id")
	}

	ref := activity.Reference{
		ConversationID: ack.ID,
		ServiceURL:     params.ServiceURL,
		ChannelID:      constants.TeamsChannelID,
	}
	if callback == nil {
		return nil
	}
	return callback(ref)
}

// post sends a JSON body and decodes the JSON answer into ack when non-nil.
func (c *Client) post(ctx context.Context, endpoint string, body any, ack any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("service call failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if ack != nil && len(data) > 0 {
		if err := json.Unmarshal(data, ack); err != nil {
			logger.WithField("error", err).Debug("unparseable-service-acknowledgement")
		}
	}
	return nil
}

func serviceEndpoint(serviceURL, path string) string {
	return strings.TrimSuffix(serviceURL, "/") + "/" + path
}

// turnContext binds one inbound activity to the client so in-turn replies and
// traces address the originating conversation.
type turnContext struct {
	client   *Client
	activity *activity.Activity
}

// Activity implements adapter.TurnContext.
func (t *turnContext) Activity() *activity.Activity {
	return t.activity
}

// SendActivity implements adapter.TurnContext.
func (t *turnContext) SendActivity(ctx context.Context, out *activity.Activity) (adapter.DeliveryResult, error) {
	return t.client.SendToConversation(ctx, activity.ReferenceFrom(t.activity), out)
}

// SendTrace implements adapter.TurnContext.
func (t *turnContext) SendTrace(ctx context.Context, name, value, valueType, label string) error {
	trace := &activity.Activity{
		Type:      activity.TypeTrace,
		ID:        uuid.NewString(),
		Name:      name,
		Value:     value,
		ValueType: valueType,
		Label:     label,
	}
	_, err := t.SendActivity(ctx, trace)
	return err
}
