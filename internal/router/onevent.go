package router

import (
	"context"
	"fmt"
	"time"

	"neobot/internal/domain"
	"neobot/internal/infra/metrics"
)

// onEvent обрабатывает сервисные события треда: входы и выходы участников,
// смену названия, иконки, цвета и никнеймов.
func (r *Router) onEvent(ctx context.Context, hc *domain.HandlerContext) error {
	ev := hc.Event
	now := r.Now()
	th := r.st.EnsureThread(ev.ThreadID, now)
	th.LastActivity = now

	switch ev.LogKind {
	case domain.LogSubscribe:
		return r.onSubscribe(ctx, ev, th)
	case domain.LogUnsubscribe:
		return r.onUnsubscribe(ctx, ev, th)
	case domain.LogThreadName:
		old := th.Name
		th.Name = ev.LogData["name"]
		r.notifyThread(ctx, ev, th, fmt.Sprintf("✏️ %s меняет название треда с «%s» на «%s».", r.userName(ctx, ev.Author), old, th.Name))
	case domain.LogThreadIcon:
		th.Emoji = ev.LogData["emoji"]
		r.notifyThread(ctx, ev, th, fmt.Sprintf("🎨 %s ставит новую иконку треда: %s", r.userName(ctx, ev.Author), th.Emoji))
	case domain.LogThreadColor:
		r.notifyThread(ctx, ev, th, fmt.Sprintf("🎨 %s меняет цвет треда.", r.userName(ctx, ev.Author)))
	case domain.LogUserNickname:
		uid := ev.LogData["participant_id"]
		nick := ev.LogData["nickname"]
		if u, ok := r.st.User(uid); ok {
			u.Nickname = nick
		}
		if nick == "" {
			r.notifyThread(ctx, ev, th, fmt.Sprintf("🏷 %s убирает никнейм участника.", r.userName(ctx, ev.Author)))
		} else {
			r.notifyThread(ctx, ev, th, fmt.Sprintf("🏷 %s ставит никнейм «%s».", r.userName(ctx, ev.Author), nick))
		}
	case domain.LogGeneric:
		if ev.LogBody != "" {
			r.notifyThread(ctx, ev, th, "ℹ️ "+ev.LogBody)
		}
	default:
		r.log.Debug().Str("log_kind", string(ev.LogKind)).Msg("маршрутизатор: неизвестное сервисное событие")
	}
	return nil
}

// onSubscribe встречает новых участников: обновляет состав треда,
// заводит записи и шлёт приветствие по шаблону.
func (r *Router) onSubscribe(ctx context.Context, ev domain.Event, th *domain.ThreadRecord) error {
	now := r.Now()

	infoCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	start := time.Now()
	info, err := r.client.GetThreadInfo(infoCtx, ev.ThreadID)
	cancel()
	metrics.ObserveNetworkRequest("router", "get_thread_info", ev.ThreadID, start, err)
	if err == nil {
		th.Name = info.Name
		th.MemberCount = len(info.ParticipantIDs)
	} else {
		r.log.Warn().Err(err).Str("thread_id", ev.ThreadID).Msg("маршрутизатор: не удалось обновить состав треда")
		th.MemberCount += len(ev.ParticipantIDs)
	}

	selfID := r.client.CurrentUserID()
	for _, uid := range ev.ParticipantIDs {
		if uid == selfID {
			if r.cfg.Features.BotIntroduction {
				r.send(ctx, ev.ThreadID, "", fmt.Sprintf("🤖 Привет! Я %s v%s. Команды начинаются с %s — начните с %shelp.", r.cfg.BotName, r.cfg.Version, r.cfg.Prefix, r.cfg.Prefix))
			}
			continue
		}
		u := r.st.EnsureUser(uid, now)
		u.LeftAt = nil
		name := u.Name
		if name == "" {
			name = r.userName(ctx, uid)
			u.Name = name
		}
		if th.Settings.WelcomeMessage {
			groupName := th.Name
			if groupName == "" {
				groupName = "чат"
			}
			r.send(ctx, ev.ThreadID, "", expandTemplate(r.cfg.WelcomeTemplate, name, groupName, th.MemberCount, r.cfg.Prefix))
		}
	}
	return nil
}

// onUnsubscribe провожает ушедшего: отмечает выход и шлёт прощание.
func (r *Router) onUnsubscribe(ctx context.Context, ev domain.Event, th *domain.ThreadRecord) error {
	now := r.Now()
	if th.MemberCount > 0 {
		th.MemberCount--
	}
	for _, uid := range ev.ParticipantIDs {
		name := uid
		if u, ok := r.st.User(uid); ok {
			left := now
			u.LeftAt = &left
			if u.Name != "" {
				name = u.Name
			}
		}
		if th.Settings.GoodbyeMessage {
			groupName := th.Name
			if groupName == "" {
				groupName = "чат"
			}
			r.send(ctx, ev.ThreadID, "", expandTemplate(r.cfg.GoodbyeTemplate, name, groupName, th.MemberCount, r.cfg.Prefix))
		}
	}
	return nil
}

// notifyThread шлёт уведомление о сервисном событии, если уведомления
// включены глобально и в треде.
func (r *Router) notifyThread(ctx context.Context, ev domain.Event, th *domain.ThreadRecord, text string) {
	if !r.cfg.Features.EventNotifications || !th.Settings.EventNotifications {
		return
	}
	r.send(ctx, ev.ThreadID, "", text)
}
