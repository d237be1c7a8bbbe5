package router

import (
	"context"
	"fmt"

	"neobot/internal/domain"
)

// onChat обрабатывает обычное сообщение: начисляет опыт и передаёт
// текст диспетчеру команд.
func (r *Router) onChat(ctx context.Context, hc *domain.HandlerContext) error {
	ev := hc.Event
	now := r.Now()
	u := r.st.EnsureUser(ev.SenderID, now)

	if r.cfg.Features.XPSystem && ev.Body != "" {
		if u.AddXP(r.XPGain(), r.cfg.XPDivisor) {
			name := u.Name
			if name == "" {
				name = r.userName(ctx, ev.SenderID)
			}
			r.send(ctx, ev.ThreadID, "", fmt.Sprintf("🎉 %s достигает уровня %d!", name, u.Level))
		}
	}

	r.disp.Dispatch(ctx, r.st, ev)
	return nil
}
