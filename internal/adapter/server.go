package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/keepmind9/teamsbridge/internal/activity"
	"github.com/keepmind9/teamsbridge/internal/logger"
	"github.com/keepmind9/teamsbridge/pkg/constants"
	"github.com/sirupsen/logrus"
)

// StreamProcessor is the optional streaming-transport capability of a
// protocol client. The upgrade path delegates to it directly, bypassing the
// turn's HTTP response shaping.
type StreamProcessor interface {
	ProcessStream(w http.ResponseWriter, r *http.Request, handler TurnHandler) error
}

// Server exposes the adapter's inbound HTTP surface: a single activity route
// plus the streaming upgrade path.
type Server struct {
	adapter *Adapter
	port    int
	srv     *http.Server
}

// NewServer creates the HTTP server for an adapter.
func NewServer(a *Adapter, port int) *Server {
	if port == 0 {
		port = constants.DefaultServerPort
	}
	return &Server{adapter: a, port: port}
}

// Handler returns the server's route table, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/messages/stream", s.handleStream)
	return s.logRequests(mux)
}

// Run starts the server and blocks until it is shut down.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	logger.WithFields(logrus.Fields{
		"address": addr,
		"bot":     s.adapter.opts.Identity.Name,
	}).Info("adapter-listening")
	s.adapter.emit(Event{Kind: EventConnected})

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("adapter server: %w", err)
	}
	return nil
}

// Shutdown drains the server and emits the disconnected event.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.adapter.emit(Event{Kind: EventDisconnected})
	logger.Info("adapter-server-shutting-down")
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithFields(logrus.Fields{
			"method": r.Method,
			"url":    r.URL.Path,
		}).Debug("inbound-http-request")
		next.ServeHTTP(w, r)
	})
}

// handleMessages accepts one POSTed activity, runs it through the protocol
// client with the inbound bridge as the turn handler, and answers 200 with a
// short acknowledgement on success or 5xx on an uncaught turn failure.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var act activity.Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		logger.WithField("error", err).Warn("malformed-activity-body")
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := s.adapter.Client().Process(r.Context(), &act, s.adapter.OnTurn); err != nil {
		logger.WithFields(logrus.Fields{
			"activity_id": act.ID,
			"error":       err,
		}).Error("turn-processing-failed")
		http.Error(w, "Turn processing failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

// handleStream upgrades to the streaming transport when the protocol client
// supports it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.adapter.Client().(StreamProcessor)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusNotImplemented)
		return
	}
	logger.Info("upgrading-to-streaming-transport")
	if err := sp.ProcessStream(w, r, s.adapter.OnTurn); err != nil {
		logger.WithField("error", err).Error("streaming-transport-failed")
	}
}
