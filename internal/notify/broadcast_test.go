package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTelegramSendPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken123/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	b := NewTelegramBroadcaster("token123", "chat42")
	b.apiBase = srv.URL

	if err := b.Send(context.Background(), "Title", "line two"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "chat42" {
		t.Errorf("chat_id = %q", got["chat_id"])
	}
	if got["parse_mode"] != "HTML" {
		t.Errorf("parse_mode = %q", got["parse_mode"])
	}
	if got["text"] != "<b>Title</b>\nline two" {
		t.Errorf("text = %q", got["text"])
	}
}

func TestTelegramSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok": false}`, http.StatusForbidden)
	}))
	defer srv.Close()

	b := NewTelegramBroadcaster("token", "chat")
	b.apiBase = srv.URL

	if err := b.Send(context.Background(), "t", "m"); err == nil {
		t.Fatal("Send did not surface the error status")
	}
}

func TestDiscordSendPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	b := NewDiscordBroadcaster(srv.URL)
	if err := b.Send(context.Background(), "Title", "line two"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["content"] != "**Title**\nline two" {
		t.Errorf("content = %q", got["content"])
	}
}
