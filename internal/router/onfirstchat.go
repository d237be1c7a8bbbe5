package router

import (
	"context"
	"fmt"

	"neobot/internal/domain"
)

const welcomeBonusXP = 50

// onFirstChat приветствует пользователя при первом взаимодействии:
// знакомство, подсказка по командам и приветственный бонус опыта.
func (r *Router) onFirstChat(ctx context.Context, hc *domain.HandlerContext) error {
	ev := hc.Event
	now := r.Now()
	u := r.st.EnsureUser(ev.SenderID, now)

	name := u.Name
	if name == "" {
		name = r.userName(ctx, ev.SenderID)
		u.Name = name
	}

	var greeting string
	if ev.IsGroup() {
		greeting = fmt.Sprintf("👋 Привет, %s! Я %s — бот этого чата.", name, r.cfg.BotName)
	} else {
		greeting = fmt.Sprintf("👋 Привет, %s! Я %s. Рад знакомству.", name, r.cfg.BotName)
	}
	greeting += fmt.Sprintf("\n💡 Команды начинаются с %s — попробуйте %shelp.", r.cfg.Prefix, r.cfg.Prefix)

	if r.cfg.Features.WelcomeBonus {
		u.AddXP(welcomeBonusXP, r.cfg.XPDivisor)
		greeting += fmt.Sprintf("\n🎁 Приветственный бонус: +%d XP.", welcomeBonusXP)
	}

	r.send(ctx, ev.ThreadID, ev.MessageID, greeting)

	r.log.Info().Str("user_id", ev.SenderID).Str("thread_id", ev.ThreadID).Msg("маршрутизатор: первое взаимодействие")
	return nil
}
