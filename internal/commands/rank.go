package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"neobot/internal/domain"
)

// Rank — карточка прогресса пользователя: уровень, опыт, активность.
func Rank() *domain.Command {
	return &domain.Command{
		Name:        "rank",
		Description: "Показать свой уровень и опыт",
		Usage:       "rank",
		Category:    categoryGeneral,
		Role:        domain.RoleEveryone,
		Cooldown:    5,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			u := cc.State.EnsureUser(cc.Event.SenderID, time.Now())

			divisor := cc.Config.XPDivisor
			if divisor <= 0 {
				divisor = 100
			}
			toNext := u.Level*divisor - u.XP

			name := u.Name
			if name == "" {
				name = u.UID
			}
			if u.Verified {
				name += " ☑️"
			}

			var b strings.Builder
			fmt.Fprintf(&b, "📊 %s\n", name)
			fmt.Fprintf(&b, "⭐ Уровень: %d\n", u.Level)
			fmt.Fprintf(&b, "✨ Опыт: %d (до следующего уровня: %d)\n", u.XP, toNext)
			fmt.Fprintf(&b, "💬 Сообщений: %d", u.MessageCount)
			if u.Birthday != "" {
				fmt.Fprintf(&b, "\n🎂 День рождения: %s", u.Birthday)
			}
			if u.Relationship != "" {
				fmt.Fprintf(&b, "\n💞 Статус: %s", u.Relationship)
			}
			return reply(ctx, cc, b.String())
		},
	}
}
