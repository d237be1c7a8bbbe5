package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("неожиданный путь: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("неожиданный заголовок авторизации: %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 {
			t.Fatalf("неожиданный запрос: %+v", req)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Привет!  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", "", srv.URL, time.Second)
	got, err := c.Chat(context.Background(), "будь краток", "поздоровайся")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Привет!" {
		t.Fatalf("ответ должен обрезаться: %q", got)
	}
}

func TestChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", "", srv.URL, time.Second)
	_, err := c.Chat(context.Background(), "", "вопрос")
	if err == nil || !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Fatalf("ожидали ошибку API, получили %v", err)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", "", srv.URL, time.Second)
	if _, err := c.Chat(context.Background(), "", "вопрос"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestChatWithoutKey(t *testing.T) {
	c := NewClient("", "", "", time.Second)
	if _, err := c.Chat(context.Background(), "", "вопрос"); err == nil {
		t.Fatal("expected error without api key")
	}
}
