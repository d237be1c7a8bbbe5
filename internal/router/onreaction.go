package router

import (
	"context"
	"fmt"
	"time"

	"neobot/internal/domain"
)

// angryAlertThreshold — реакций гнева на сообщение до алерта админу.
const angryAlertThreshold = 5

// reactionMilestones — пороги реакций, о которых бот объявляет в треде.
var reactionMilestones = map[int]bool{10: true, 25: true, 50: true, 100: true}

// reactionCommands сопоставляет эмодзи команде, которая выполняется
// от имени отреагировавшего пользователя.
var reactionCommands = map[string]string{
	"🎲": "joke",
	"🌍": "weather",
	"📊": "leaderboard",
	"🏓": "ping",
}

// onReaction ведёт счётчики реакций и запускает их побочные эффекты:
// алерты, закрепление, удаление, одобрения и реакции-команды.
func (r *Router) onReaction(ctx context.Context, hc *domain.HandlerContext) error {
	ev := hc.Event
	if ev.Reaction == "" || ev.MessageID == "" {
		return nil
	}
	now := r.Now()
	key := domain.MessageKey{ThreadID: ev.ThreadID, MessageID: ev.MessageID}
	tally := r.st.Tally(key, now)

	if !ev.ReactionAdded {
		tally.Remove(ev.Reaction, ev.SenderID)
		return nil
	}
	if !tally.Add(ev.Reaction, ev.SenderID) {
		// Повторная реакция того же пользователя: без побочных эффектов.
		return nil
	}

	if (ev.Reaction == "😡" || ev.Reaction == "😠") &&
		tally.Count("😡", "😠") >= angryAlertThreshold &&
		r.cfg.Features.AutoModeration {
		r.alertAngry(ctx, ev, tally.Count("😡", "😠"))
	}

	switch ev.Reaction {
	case "📌":
		if r.gate.RoleOf(ctx, ev.SenderID, ev.ThreadID).Allows(domain.RoleGroupAdmin) {
			r.st.Pin(key, ev.SenderID, now)
			r.send(ctx, ev.ThreadID, ev.MessageID, "📌 Сообщение закреплено.")
		}
	case "🗑":
		if r.gate.RoleOf(ctx, ev.SenderID, ev.ThreadID).Allows(domain.RoleGroupAdmin) {
			r.unsend(ctx, ev.ThreadID, ev.MessageID)
		}
	case "✅":
		if r.gate.RoleOf(ctx, ev.SenderID, ev.ThreadID).Allows(domain.RoleGroupAdmin) {
			r.st.Approve(key, ev.SenderID)
		}
	case "❌":
		if r.gate.RoleOf(ctx, ev.SenderID, ev.ThreadID).Allows(domain.RoleGroupAdmin) {
			r.st.Reject(key, ev.SenderID)
		}
	}

	if reactionMilestones[tally.Total] {
		r.send(ctx, ev.ThreadID, ev.MessageID, fmt.Sprintf("🎉 Сообщение набрало %d реакций!", tally.Total))
	}

	if name, ok := reactionCommands[ev.Reaction]; ok {
		// Реакция-команда проходит обычный путь диспетчера со всеми
		// проверками, как если бы пользователь набрал её сам.
		r.disp.Dispatch(ctx, r.st, domain.Event{
			Type:      domain.EventMessage,
			ThreadID:  ev.ThreadID,
			SenderID:  ev.SenderID,
			MessageID: ev.MessageID,
			Body:      r.cfg.Prefix + name,
		})
	}
	return nil
}

// alertAngry шлёт администратору бота алерт о негативных реакциях.
// Кэш (если настроен) гасит повторные алерты по тому же сообщению.
func (r *Router) alertAngry(ctx context.Context, ev domain.Event, count int) {
	if r.cfg.AdminUID == "" {
		return
	}
	if r.cache != nil {
		key := fmt.Sprintf("alert:angry:%s:%s", ev.ThreadID, ev.MessageID)
		first, err := r.cache.Once(ctx, key, 24*time.Hour)
		if err != nil {
			r.log.Warn().Err(err).Msg("маршрутизатор: кэш алертов недоступен")
		} else if !first {
			return
		}
	}
	r.send(ctx, r.cfg.AdminUID, "", fmt.Sprintf("🚨 Сообщение %s в треде %s собрало %d негативных реакций.", ev.MessageID, ev.ThreadID, count))
}

func (r *Router) unsend(ctx context.Context, threadID, messageID string) {
	delCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	if err := r.client.UnsendMessage(delCtx, threadID, messageID); err != nil {
		r.log.Warn().Err(err).Str("message_id", messageID).Msg("маршрутизатор: не удалось удалить сообщение")
	}
}
