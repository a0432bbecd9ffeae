package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestTwilioSender_Send tests the form, auth and path of a message request.
func TestTwilioSender_Send(t *testing.T) {
	var path, user, pass, contentType string
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, pass, _ = r.BasicAuth()
		contentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		form = map[string]string{
			"From": r.PostForm.Get("From"),
			"To":   r.PostForm.Get("To"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	sender, err := NewTwilioSender(TwilioConfig{AccountID: "AC1", AuthToken: "tok", From: "+15550001111", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewTwilioSender: %v", err)
	}
	res, err := sender.Send(context.Background(), SendRequest{To: "+6421000000", Body: "Class starts soon"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "SM123" {
		t.Errorf("expected SM123, got %q", res.MessageID)
	}
	if path != "/2010-04-01/Accounts/AC1/Messages.json" {
		t.Errorf("unexpected path %q", path)
	}
	if user != "AC1" || pass != "tok" {
		t.Errorf("unexpected basic auth %q:%q", user, pass)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", contentType)
	}
	want := map[string]string{"From": "+15550001111", "To": "+6421000000", "Body": "Class starts soon"}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("form %s = %q, want %q", k, form[k], v)
		}
	}
}

// TestTwilioSender_Send_ErrorCarriesBody tests that a failed response body reaches the error text.
func TestTwilioSender_Send_ErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	sender, err := NewTwilioSender(TwilioConfig{AccountID: "AC1", AuthToken: "tok", From: "+1", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewTwilioSender: %v", err)
	}
	_, err = sender.Send(context.Background(), SendRequest{To: "bad", Body: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Invalid 'To' Phone Number") {
		t.Errorf("error should carry the provider body, got %q", err.Error())
	}
}

// TestTwilioSender_Send_ErrorBodyTruncated tests the cap on error text size.
func TestTwilioSender_Send_ErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 10*maxErrorBody)))
	}))
	defer srv.Close()

	sender, _ := NewTwilioSender(TwilioConfig{AccountID: "AC1", AuthToken: "tok", BaseURL: srv.URL})
	_, err := sender.Send(context.Background(), SendRequest{To: "+1", Body: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Count(err.Error(), "x") > maxErrorBody+1 {
		t.Errorf("error body not truncated: %d bytes", len(err.Error()))
	}
}

// TestNewTwilioSender_RequiresCredentials tests constructor validation.
func TestNewTwilioSender_RequiresCredentials(t *testing.T) {
	if _, err := NewTwilioSender(TwilioConfig{AccountID: "AC1"}); err == nil {
		t.Error("expected error without auth token")
	}
}
