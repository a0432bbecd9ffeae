package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forgefit/internal/adapters/http/perf"
	notificationStore "forgefit/internal/adapters/storage/notification"
	notificationDomain "forgefit/internal/domain/notification"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *perf.Collector) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	collector := perf.NewCollector(10)
	c, err := New(Config{BaseURL: srv.URL + "/", Credential: "service-key", Collector: collector})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, collector
}

// TestClient_GetContact tests the lookup request and the first-row pick.
func TestClient_GetContact(t *testing.T) {
	c, collector := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/rest/v1/profiles" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("id") != "eq.u1" || r.URL.Query().Get("select") != "email,phone" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if r.Header.Get("apikey") != "service-key" || r.Header.Get("Authorization") != "Bearer service-key" {
			t.Errorf("missing credential headers")
		}
		_, _ = w.Write([]byte(`[{"email":"a@x.com","phone":null},{"email":"b@x.com","phone":"+1"}]`))
	})

	p, err := c.GetContact(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if p.Email != "a@x.com" || p.HasPhone() {
		t.Errorf("unexpected profile %+v", p)
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("expected provider timing recorded")
	}
}

// TestClient_GetContact_NoRows tests that an empty result is a zero profile.
func TestClient_GetContact_NoRows(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	p, err := c.GetContact(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if p.HasEmail() || p.HasPhone() {
		t.Errorf("expected zero profile, got %+v", p)
	}
}

// TestClient_GetContact_Error tests that a backend error surfaces with its body.
func TestClient_GetContact_Error(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	})
	_, err := c.GetContact(context.Background(), "u1")
	if err == nil || !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("expected backend message in error, got %v", err)
	}
}

// TestClient_MarkDelivered tests the partial update body.
func TestClient_MarkDelivered(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/rest/v1/notifications" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("id") != "eq.n1" {
			t.Errorf("unexpected filter %q", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	sentAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	err := c.MarkDelivered(context.Background(), "n1", notificationDomain.Outcome{SentEmail: true, SentAt: sentAt})
	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if got["sent_email"] != true || got["sent_sms"] != false {
		t.Errorf("unexpected flags %v", got)
	}
	if got["sent_at"] != "2026-03-01T09:30:00.000Z" {
		t.Errorf("unexpected sent_at %v", got["sent_at"])
	}
	if len(got) != 3 {
		t.Errorf("patch must only touch outcome columns, got %v", got)
	}
}

// TestClient_ListRecentByUser tests ordering and limit parameters.
func TestClient_ListRecentByUser(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user_id") != "eq.u1" || q.Get("order") != "created_at.desc" || q.Get("limit") != "6" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"id":"n2","user_id":"u1","message":"b","created_at":"2026-03-01T09:00:00.123456+00:00","sent_email":true,"sent_sms":false,"sent_at":"2026-03-01T09:00:01.000Z"},
			{"id":"n1","user_id":"u1","message":"a","created_at":"2026-02-28T09:00:00+00:00","sent_email":false,"sent_sms":false,"sent_at":null},
			{"id":42,"user_id":"u1","message":"c","created_at":"2026-02-27T09:00:00+00:00","sent_email":false,"sent_sms":true,"sent_at":"2026-02-27T09:00:02.000Z"}]`))
	})

	got, err := c.ListRecentByUser(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("ListRecentByUser: %v", err)
	}
	if len(got) != 3 || got[0].ID != "n2" {
		t.Fatalf("unexpected records %+v", got)
	}
	if got[2].ID != "42" || !got[2].Outcome.SentSMS {
		t.Errorf("numeric id row decoded as %+v", got[2])
	}
	if !got[0].IsDelivered() || got[1].IsDelivered() {
		t.Errorf("unexpected delivery state")
	}
}

// TestClient_Create tests insert with representation and the not-found path of GetByID.
func TestClient_Create(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("Prefer") != "return=representation" {
				t.Errorf("expected representation preference")
			}
			var in map[string]any
			_ = json.NewDecoder(r.Body).Decode(&in)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode([]map[string]any{{
				"id": "generated", "user_id": in["user_id"], "message": in["message"],
				"created_at": in["created_at"], "sent_email": false, "sent_sms": false, "sent_at": nil,
			}})
		case http.MethodGet:
			_, _ = w.Write([]byte(`[]`))
		}
	})

	rec, err := c.Create(context.Background(), notificationDomain.Record{UserID: "u1", Message: "hi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != "generated" || rec.CreatedAt.IsZero() {
		t.Errorf("unexpected record %+v", rec)
	}
	if _, err := c.GetByID(context.Background(), "ghost"); !errors.Is(err, notificationStore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestNew_RequiresCredentials tests constructor validation.
func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Config{BaseURL: "https://x"}); err == nil {
		t.Error("expected error without credential")
	}
}
