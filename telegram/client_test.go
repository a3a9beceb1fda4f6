package telegram

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"syscall"
	"testing"
	"time"
)

func TestSendMessageReturnsSentMessage(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": 42,
				"chat":       map[string]any{"id": 12345},
				"text":       "hello",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	msg, err := c.SendMessage(context.Background(), int64(12345), "hello", 7)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if gotPath != "/botTOKEN/sendMessage" {
		t.Fatalf("path mismatch: got %s", gotPath)
	}
	if gotBody["text"] != "hello" {
		t.Fatalf("text mismatch: got %v", gotBody["text"])
	}
	if gotBody["reply_to_message_id"] != float64(7) {
		t.Fatalf("reply_to_message_id mismatch: got %v", gotBody["reply_to_message_id"])
	}
	if msg.MessageID != 42 {
		t.Fatalf("message_id mismatch: got %d want 42", msg.MessageID)
	}
	if msg.Chat == nil || msg.Chat.ID != 12345 {
		t.Fatalf("chat mismatch: got %+v", msg.Chat)
	}
}

func TestSendMessageStringTarget(t *testing.T) {
	t.Parallel()

	var gotChatID any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotChatID = body["chat_id"]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 1, "chat": map[string]any{"id": 99}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	if _, err := c.SendMessage(context.Background(), "@mybot", "hi", 0); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if gotChatID != "@mybot" {
		t.Fatalf("chat_id mismatch: got %v want @mybot", gotChatID)
	}
}

func TestSendMessageAPIErrorIncludesDescription(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: chat not found",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	_, err := c.SendMessage(context.Background(), int64(1), "hi", 0)
	if err == nil {
		t.Fatal("SendMessage() error = nil, want request error")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error type mismatch: got %T", err)
	}
	if reqErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status mismatch: got %d", reqErr.StatusCode)
	}
	want := "telegram http 400: Bad Request: chat not found"
	if reqErr.Error() != want {
		t.Fatalf("message mismatch: got %q want %q", reqErr.Error(), want)
	}
	if IsTransient(err) {
		t.Fatal("IsTransient() = true for API error, want false")
	}
}

func TestEditMessageText(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/editMessageText" {
			t.Errorf("path mismatch: got %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 42, "chat": map[string]any{"id": 5}, "text": "updated"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	msg, err := c.EditMessageText(context.Background(), 5, 42, "updated")
	if err != nil {
		t.Fatalf("EditMessageText() error = %v", err)
	}
	if gotBody["message_id"] != float64(42) {
		t.Fatalf("message_id mismatch: got %v", gotBody["message_id"])
	}
	if msg.Text != "updated" {
		t.Fatalf("text mismatch: got %q", msg.Text)
	}
}

func TestGetUpdatesAdvancesOffset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{"update_id": 10, "message": map[string]any{"message_id": 1, "chat": map[string]any{"id": 5}, "text": "a"}},
				{"update_id": 11, "message": map[string]any{"message_id": 2, "chat": map[string]any{"id": 5}, "text": "b"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	updates, next, err := c.GetUpdates(context.Background(), 0, 0, time.Second)
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("updates length mismatch: got %d want 2", len(updates))
	}
	if next != 12 {
		t.Fatalf("next offset mismatch: got %d want 12", next)
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	transient := []error{
		context.DeadlineExceeded,
		&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: fmt.Errorf("connection reset by peer")},
		&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: syscall.ECONNREFUSED},
		&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: &net.DNSError{Err: "server misbehaving", IsTemporary: true}},
		fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
	}
	for _, err := range transient {
		if !IsTransient(err) {
			t.Fatalf("IsTransient(%v) = false, want true", err)
		}
	}

	fatal := []error{
		nil,
		context.Canceled,
		&RequestError{StatusCode: 400, Description: "Bad Request"},
		&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: x509.UnknownAuthorityError{}},
		&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: &net.DNSError{Err: "no such host", IsNotFound: true}},
		errors.New("some other failure"),
	}
	for _, err := range fatal {
		if IsTransient(err) {
			t.Fatalf("IsTransient(%v) = true, want false", err)
		}
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		user *User
		want string
	}{
		{nil, ""},
		{&User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{&User{FirstName: "Ada"}, "Ada"},
		{&User{Username: "ada"}, "@ada"},
		{&User{}, ""},
	}
	for _, tc := range cases {
		if got := DisplayName(tc.user); got != tc.want {
			t.Fatalf("DisplayName(%+v) = %q, want %q", tc.user, got, tc.want)
		}
	}
}
