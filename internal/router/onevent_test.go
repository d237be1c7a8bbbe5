package router

import (
	"context"
	"strings"
	"testing"

	"neobot/internal/domain"
)

func logEvent(kind domain.LogKind, participants ...string) domain.Event {
	return domain.Event{
		Type:           domain.EventLog,
		ThreadID:       "t1",
		SenderID:       "sys",
		LogKind:        kind,
		Author:         "u1",
		ParticipantIDs: participants,
	}
}

func TestSubscribeWelcomesNewcomer(t *testing.T) {
	r, client, st := testRouterWithCfg(t, func(cfg *domain.BotConfig) {
		cfg.WelcomeTemplate = "👋 Привет, {name}! Добро пожаловать в {groupName}."
	})
	client.names["u9"] = "Боб"

	r.Route(context.Background(), logEvent(domain.LogSubscribe, "u9"))

	found := false
	for _, msg := range client.sent {
		if strings.Contains(msg, "Привет, Боб") && strings.Contains(msg, "Тестовый чат") {
			found = true
		}
	}
	if !found {
		t.Fatalf("ожидали приветствие по шаблону: %v", client.sent)
	}

	st.Lock()
	defer st.Unlock()
	u, ok := st.User("u9")
	if !ok || u.Name != "Боб" || u.LeftAt != nil {
		t.Fatalf("запись новичка должна заводиться: %+v", u)
	}
	th, _ := st.Thread("t1")
	if th.Name != "Тестовый чат" {
		t.Fatalf("название треда должно обновляться с платформы: %q", th.Name)
	}
}

func TestSubscribeSelfIntroduction(t *testing.T) {
	r, client, _ := testRouterWithCfg(t, func(cfg *domain.BotConfig) {
		cfg.Version = "1.0.0"
		cfg.Features.BotIntroduction = true
	})

	r.Route(context.Background(), logEvent(domain.LogSubscribe, "bot"))

	found := false
	for _, msg := range client.sent {
		if strings.Contains(msg, "Я NeoBot v1.0.0") {
			found = true
		}
	}
	if !found {
		t.Fatalf("бот должен представляться при добавлении: %v", client.sent)
	}
}

func TestUnsubscribeGoodbye(t *testing.T) {
	r, client, st := testRouterWithCfg(t, func(cfg *domain.BotConfig) {
		cfg.GoodbyeTemplate = "👋 {name} покидает {groupName}."
	})

	st.Lock()
	u := st.EnsureUser("u9", r.Now())
	u.Name = "Боб"
	th := st.EnsureThread("t1", r.Now())
	th.Name = "Клуб"
	th.MemberCount = 5
	st.Unlock()

	r.Route(context.Background(), logEvent(domain.LogUnsubscribe, "u9"))

	found := false
	for _, msg := range client.sent {
		if strings.Contains(msg, "Боб покидает Клуб") {
			found = true
		}
	}
	if !found {
		t.Fatalf("ожидали прощание: %v", client.sent)
	}

	st.Lock()
	defer st.Unlock()
	if u.LeftAt == nil {
		t.Fatal("дата выхода должна проставляться")
	}
	if th.MemberCount != 4 {
		t.Fatalf("счётчик участников должен уменьшаться: %d", th.MemberCount)
	}
}

func TestThreadRenameNotification(t *testing.T) {
	r, client, st := testRouterWithCfg(t, func(cfg *domain.BotConfig) {
		cfg.Features.EventNotifications = true
	})

	ev := logEvent(domain.LogThreadName)
	ev.LogData = map[string]string{"name": "Новое имя"}
	r.Route(context.Background(), ev)

	st.Lock()
	th, _ := st.Thread("t1")
	st.Unlock()
	if th.Name != "Новое имя" {
		t.Fatalf("название должно обновляться: %q", th.Name)
	}
	found := false
	for _, msg := range client.sent {
		if strings.Contains(msg, "Новое имя") {
			found = true
		}
	}
	if !found {
		t.Fatalf("ожидали уведомление о переименовании: %v", client.sent)
	}
}

func TestNotificationsDisabledInThread(t *testing.T) {
	r, client, st := testRouterWithCfg(t, func(cfg *domain.BotConfig) {
		cfg.Features.EventNotifications = true
	})

	st.Lock()
	th := st.EnsureThread("t1", r.Now())
	th.Settings.EventNotifications = false
	st.Unlock()

	ev := logEvent(domain.LogThreadColor)
	r.Route(context.Background(), ev)

	if len(client.sent) != 0 {
		t.Fatalf("при выключенных уведомлениях сообщений быть не должно: %v", client.sent)
	}
}
