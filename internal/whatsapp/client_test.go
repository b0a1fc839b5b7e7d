package whatsapp_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/config"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/whatsapp"
)

func newTestClient(t *testing.T, handler http.Handler) *whatsapp.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return whatsapp.NewClient(config.WhatsAppConfig{
		APIURL:  srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, logger)
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody map[string]string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := client.SendMessage(context.Background(), "+972501234567", "hello")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if gotPath != "/send/message" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	if gotBody["phone"] != "+972501234567" || gotBody["message"] != "hello" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestSendMessageBridgeError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not connected", http.StatusBadGateway)
	}))

	if err := client.SendMessage(context.Background(), "+972501234567", "hello"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestGroups(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups" {
			t.Errorf("request path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"jid": "123-456@g.us", "name": "Family"},
			{"jid": "789-012@g.us", "name": "Work"}
		]`))
	}))

	groups, err := client.Groups(context.Background())
	if err != nil {
		t.Fatalf("Groups failed: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].JID != "123-456@g.us" || groups[0].Name != "Family" {
		t.Errorf("unexpected first group: %+v", groups[0])
	}
}
