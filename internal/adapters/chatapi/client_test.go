package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"neobot/internal/domain"
)

func TestSendMessage(t *testing.T) {
	var gotAuth string
	var gotReq sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Fatalf("неожиданный запрос: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(sendResponse{MessageID: "m-42"})
	}))
	defer srv.Close()

	c := New(zerolog.Nop(), Config{APIBaseURL: srv.URL, Token: "secret", SelfID: "bot"})
	ref, err := c.SendMessage(context.Background(), "привет", "t1", "m1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ref.MessageID != "m-42" || ref.ThreadID != "t1" {
		t.Fatalf("неожиданная ссылка на сообщение: %+v", ref)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("неожиданный заголовок авторизации: %q", gotAuth)
	}
	if gotReq.Body != "привет" || gotReq.ThreadID != "t1" || gotReq.ReplyTo != "m1" {
		t.Fatalf("неожиданное тело запроса: %+v", gotReq)
	}
}

func TestSendMessageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(zerolog.Nop(), Config{APIBaseURL: srv.URL})
	if _, err := c.SendMessage(context.Background(), "x", "t1", ""); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestGetUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "u1,u2" {
			t.Fatalf("неожиданные идентификаторы: %q", got)
		}
		json.NewEncoder(w).Encode(userInfoResponse{Users: map[string]domain.UserInfo{
			"u1": {Name: "Алиса"},
		}})
	}))
	defer srv.Close()

	c := New(zerolog.Nop(), Config{APIBaseURL: srv.URL})
	infos, err := c.GetUserInfo(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if infos["u1"].Name != "Алиса" {
		t.Fatalf("неожиданный ответ: %+v", infos)
	}

	// Пустой список не ходит в сеть.
	empty, err := c.GetUserInfo(context.Background())
	if err != nil || len(empty) != 0 {
		t.Fatalf("пустой запрос должен давать пустую карту: %v, %v", empty, err)
	}
}

func TestEventFrameDecode(t *testing.T) {
	raw := `{"event":{"type":"message_reaction","thread_id":"t1","sender_id":"u1","message_id":"m1","reaction":"😡","reaction_added":true}}`
	var frame eventFrame
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Event == nil {
		t.Fatal("ожидали событие в кадре")
	}
	ev := frame.Event
	if ev.Type != domain.EventMessageReaction || ev.Reaction != "😡" || !ev.ReactionAdded {
		t.Fatalf("кадр разобран неверно: %+v", ev)
	}
}
