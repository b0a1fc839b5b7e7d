package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/config"
)

// secretHeader carries the shared webhook secret when one is configured.
const secretHeader = "X-Webhook-Token"

// Server is the inbound HTTP surface: the bridge webhook and the health
// endpoint.
type Server struct {
	srv      *http.Server
	ingestor *Ingestor
	secret   string
	log      *slog.Logger
}

// NewServer creates the webhook server. When cfg.Secret is empty the webhook
// endpoint is open; otherwise requests must present the secret in the
// X-Webhook-Token header.
func NewServer(cfg config.WebhookConfig, ingestor *Ingestor, log *slog.Logger) *Server {
	s := &Server{
		ingestor: ingestor,
		secret:   cfg.Secret,
		log:      log.With("component", "webhook_server"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/webhook/message", s.handleMessage).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Webhook server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("Error shutting down webhook server", "error", err)
			return err
		}
		s.log.Info("Webhook server stopped gracefully.")
		return nil
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" {
		provided := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.secret)) != 1 {
			s.log.Warn("Rejected webhook request with bad secret", "remote", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "unauthorized"})
			return
		}
	}

	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		// Undecodable bodies are dropped like any other malformed payload;
		// the bridge still gets a success response.
		s.log.Warn("Dropping undecodable webhook body", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	s.ingestor.Process(r.Context(), &payload)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
