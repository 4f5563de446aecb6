package adapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/keepmind9/teamsbridge/internal/activity"
	"github.com/keepmind9/teamsbridge/internal/adapter"
	"github.com/keepmind9/teamsbridge/internal/respond"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient implements adapter.ProtocolClient in memory, recording every
// activity delivered through it.
type stubClient struct {
	mu         sync.Mutex
	errHandler adapter.TurnErrorHandler
	sent       []*activity.Activity
	sentRefs   []activity.Reference
}

type stubTurn struct {
	client *stubClient
	act    *activity.Activity
}

func (s *stubTurn) Activity() *activity.Activity { return s.act }

func (s *stubTurn) SendActivity(ctx context.Context, out *activity.Activity) (adapter.DeliveryResult, error) {
	return s.client.SendToConversation(ctx, activity.ReferenceFrom(s.act), out)
}

func (s *stubTurn) SendTrace(ctx context.Context, name, value, valueType, label string) error {
	trace := &activity.Activity{Type: activity.TypeTrace, Name: name, Value: value, ValueType: valueType, Label: label}
	_, err := s.SendActivity(ctx, trace)
	return err
}

func (s *stubClient) Process(ctx context.Context, a *activity.Activity, handler adapter.TurnHandler) error {
	tc := &stubTurn{client: s, act: a}
	if err := handler(ctx, tc); err != nil {
		s.mu.Lock()
		h := s.errHandler
		s.mu.Unlock()
		if h != nil {
			h(ctx, tc, err)
		}
		return err
	}
	return nil
}

func (s *stubClient) SendToConversation(ctx context.Context, ref activity.Reference, out *activity.Activity) (adapter.DeliveryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, out)
	s.sentRefs = append(s.sentRefs, ref)
	return adapter.DeliveryResult{ID: fmt.Sprintf("res-%d", len(s.sent))}, nil
}

func (s *stubClient) CreateConversation(ctx context.Context, params adapter.ConversationParams, callback func(ref activity.Reference) error) error {
	return errors.New("not supported")
}

func (s *stubClient) SetTurnErrorHandler(h adapter.TurnErrorHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errHandler = h
}

func (s *stubClient) sentActivities() []*activity.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*activity.Activity, len(s.sent))
	copy(out, s.sent)
	return out
}

func newTestServer(t *testing.T, register func(d *respond.Dispatcher)) (*httptest.Server, *stubClient, *adapter.Adapter) {
	t.Helper()
	identity := activity.BotIdentity{Name: "test-bot"}
	client := &stubClient{}
	dispatcher := respond.New(identity)
	bridge := adapter.New(client, dispatcher, adapter.NewReferenceStore(), adapter.Options{Identity: identity})
	dispatcher.Bind(bridge)
	if register != nil {
		register(dispatcher)
	}

	srv := httptest.NewServer(adapter.NewServer(bridge, 0).Handler())
	t.Cleanup(srv.Close)
	return srv, client, bridge
}

func postActivity(t *testing.T, srv *httptest.Server, act activity.Activity) *http.Response {
	t.Helper()
	body, err := json.Marshal(act)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestServer_EndToEndReply(t *testing.T) {
	var matchedText string
	srv, client, bridge := newTestServer(t, func(d *respond.Dispatcher) {
		require.NoError(t, d.Respond(`hello$`, func(ctx context.Context, res *respond.Response) error {
			matchedText = res.Message.Text
			res.Reply(ctx, "Hello World")
			return nil
		}))
	})

	resp := postActivity(t, srv, activity.Activity{
		Type:       activity.TypeMessage,
		ID:         "test-id",
		Text:       "@test-bot hello",
		ChannelID:  "msteams",
		ServiceURL: "https://svc.example.com/",
		Conversation: &activity.Conversation{
			ID:               "19:abc",
			ConversationType: "channel",
		},
		From: &activity.Account{ID: "test-user", Name: "test-user-name"},
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ack, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(ack))

	assert.Equal(t, "@test-bot hello", matchedText)

	// The reply arrives unchanged at the outbound sink, tagged as markdown.
	sent := client.sentActivities()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hello World", sent[0].Text)
	assert.Equal(t, activity.FormatMarkdown, sent[0].TextFormat)

	// The turn's residue is the stored conversation reference.
	ref, ok := bridge.Store().Get("19:abc")
	require.True(t, ok)
	assert.Equal(t, "https://svc.example.com/", ref.ServiceURL)
}

func TestServer_MentionMarkupRewritten(t *testing.T) {
	var matchedText string
	srv, _, _ := newTestServer(t, func(d *respond.Dispatcher) {
		require.NoError(t, d.Respond(`hello$`, func(ctx context.Context, res *respond.Response) error {
			matchedText = res.Message.Text
			return nil
		}))
	})

	resp := postActivity(t, srv, activity.Activity{
		Type:      activity.TypeMessage,
		Text:      "<at>test-bot</at> hello",
		ChannelID: "msteams",
		Conversation: &activity.Conversation{
			ID: "19:abc",
		},
		From: &activity.Account{ID: "u1"},
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "@test-bot hello", matchedText)
}

func TestServer_TurnFailureAnswers500AndNotifiesUser(t *testing.T) {
	srv, client, _ := newTestServer(t, func(d *respond.Dispatcher) {
		require.NoError(t, d.Respond(`boom$`, func(ctx context.Context, res *respond.Response) error {
			return errors.New("handler exploded")
		}))
	})

	resp := postActivity(t, srv, activity.Activity{
		Type:         activity.TypeMessage,
		Text:         "@test-bot boom",
		ChannelID:    "msteams",
		ServiceURL:   "https://svc.example.com/",
		Conversation: &activity.Conversation{ID: "19:abc"},
		From:         &activity.Account{ID: "u1"},
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// The turn-error handler emitted a trace and the fixed apology.
	sent := client.sentActivities()
	require.Len(t, sent, 2)
	assert.Equal(t, activity.TypeTrace, sent[0].Type)
	assert.Equal(t, "TurnError", sent[0].Label)
	assert.Equal(t, "The bot encountered an error.", sent[1].Text)
}

func TestServer_MalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/messages", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_StreamNotSupported(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/messages/stream", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestServer_UnaddressedChannelMessageStillGetsToken(t *testing.T) {
	var received string
	srv, _, _ := newTestServer(t, func(d *respond.Dispatcher) {
		require.NoError(t, d.Respond(`hello$`, func(ctx context.Context, res *respond.Response) error {
			received = res.Message.Text
			return nil
		}))
	})

	// Channel traffic without an explicit mention gets the address token
	// prepended so the dispatcher can treat it uniformly.
	resp := postActivity(t, srv, activity.Activity{
		Type:      activity.TypeMessage,
		Text:      "hello",
		ChannelID: "msteams",
		Conversation: &activity.Conversation{
			ID:               "19:abc",
			ConversationType: "channel",
		},
		From: &activity.Account{ID: "u1"},
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "@test-bot hello", received)
}
