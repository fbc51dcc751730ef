package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/funnelform/funnelform-backend/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := New(log, Config{
		APIKey:           "SG.test",
		BaseURL:          server.URL,
		DefaultFromEmail: "noreply@funnelform.app",
		DefaultFromName:  "FunnelForm",
		Timeout:          2 * time.Second,
		MaxRetries:       2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSend(t *testing.T) {
	var gotAuth string
	var gotWire mailSendRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotWire)
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	})

	res, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "merchant@example.com", Name: "Merchant"}},
		Subject: "Verify your email",
		Text:    "hello",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.StatusCode != http.StatusAccepted || res.MessageID != "msg-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotAuth != "Bearer SG.test" {
		t.Fatalf("authorization header: %q", gotAuth)
	}
	// The default sender fills in when the caller leaves From empty.
	if gotWire.From.Email != "noreply@funnelform.app" {
		t.Fatalf("from: %+v", gotWire.From)
	}
	if len(gotWire.Personalizations) != 1 || gotWire.Personalizations[0].To[0].Email != "merchant@example.com" {
		t.Fatalf("personalizations: %+v", gotWire.Personalizations)
	}
}

func TestSendValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})

	cases := []SendEmailRequest{
		{Subject: "s", Text: "t"}, // no recipient
		{To: []EmailAddress{{Email: "a@b.c"}}, Text: "t"},    // no subject
		{To: []EmailAddress{{Email: "a@b.c"}}, Subject: "s"}, // no content
	}
	for i, req := range cases {
		if _, err := c.Send(context.Background(), req); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestSendRetriesOnRateLimit(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	if _, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "a@b.c"}},
		Subject: "s",
		Text:    "t",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry after 429, got %d calls", calls)
	}
}

func TestSendFailsOnBadRequest(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad payload"}]}`))
	})

	_, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "a@b.c"}},
		Subject: "s",
		Text:    "t",
	})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected 400 error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("4xx should not retry, got %d calls", calls)
	}
}
