package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("MONETY_HOME", t.TempDir())

	if _, err := LoadSession(); err == nil {
		t.Fatalf("expected error without a session file")
	}
	want := Session{AccessToken: "tok", Email: "a@example.com", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour).UTC()}
	if err := SaveSession(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.AccessToken != "tok" || got.UserID != "u1" {
		t.Fatalf("unexpected session %+v", got)
	}

	want.ExpiresAt = time.Now().Add(-time.Minute)
	_ = SaveSession(want)
	if _, err := LoadSession(); err == nil {
		t.Fatalf("expected expired session error")
	}
	if err := ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := ClearSession(); err != nil {
		t.Fatalf("clear twice: %v", err)
	}
}

func TestClientDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "withdrawals are only allowed between 09:00 and 17:00 (UTC-3)",
			"code":  "outside_withdrawal_window",
			"kind":  "window_closed",
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Checkin(context.Background(), "tok")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != "outside_withdrawal_window" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestOutboxReplay(t *testing.T) {
	t.Setenv("MONETY_HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		switch key {
		case "dup":
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "duplicate", "code": "duplicate_request", "kind": "conflict"})
		case "bad":
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "insufficient balance", "code": "insufficient_balance", "kind": "insufficient_funds"})
		default:
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	defer srv.Close()

	for _, key := range []string{"ok", "dup", "bad"} {
		if err := Enqueue(Pending{Method: http.MethodPost, Path: "/v1/investments", Body: map[string]any{"product_id": "minerador-bronze"}, IdempotencyKey: key}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	items, err := LoadOutbox()
	if err != nil || len(items) != 3 {
		t.Fatalf("load outbox: %v (%d items)", err, len(items))
	}

	res := Replay(context.Background(), NewClient(srv.URL), "tok", items)
	if res.Sent != 1 || res.Duplicate != 1 || len(res.Rejected) != 1 || len(res.Remaining) != 0 {
		t.Fatalf("unexpected replay result %+v", res)
	}

	offline := Replay(context.Background(), NewClient("http://127.0.0.1:1"), "tok", items[:1])
	if len(offline.Remaining) != 1 {
		t.Fatalf("transport failures must stay queued: %+v", offline)
	}
}
