package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"neobot/internal/domain"
)

// Ban запрещает пользователю доступ к командам.
func Ban() *domain.Command {
	return &domain.Command{
		Name:        "ban",
		Description: "Забанить пользователя",
		Usage:       "ban <@пользователь|uid> [причина]",
		Category:    categoryModeration,
		Role:        domain.RoleGroupAdmin,
		Cooldown:    10,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			target, rest := banTarget(cc)
			if target == "" {
				return reply(ctx, cc, "Укажите пользователя: упоминанием или идентификатором.")
			}
			if target == cc.Event.SenderID {
				return reply(ctx, cc, "🙃 Себя забанить нельзя.")
			}
			if target == cc.Config.AdminUID {
				return reply(ctx, cc, "⛔ Администратора бота забанить нельзя.")
			}

			now := time.Now()
			u := cc.State.EnsureUser(target, now)
			if u.Banned {
				return reply(ctx, cc, "Пользователь уже забанен.")
			}
			reason := strings.Join(rest, " ")
			if reason == "" {
				reason = "не указана"
			}
			u.Banned = true
			u.BanReason = reason
			u.BannedBy = cc.Event.SenderID
			banDate := now
			u.BanDate = &banDate

			name := u.Name
			if name == "" {
				name = target
			}
			return reply(ctx, cc, fmt.Sprintf("🔨 %s забанен(а). Причина: %s", name, reason))
		},
	}
}

// Unban снимает бан.
func Unban() *domain.Command {
	return &domain.Command{
		Name:        "unban",
		Description: "Снять бан с пользователя",
		Usage:       "unban <@пользователь|uid>",
		Category:    categoryModeration,
		Role:        domain.RoleGroupAdmin,
		Cooldown:    10,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			target, _ := banTarget(cc)
			if target == "" {
				return reply(ctx, cc, "Укажите пользователя: упоминанием или идентификатором.")
			}
			u, ok := cc.State.User(target)
			if !ok || !u.Banned {
				return reply(ctx, cc, "Пользователь не забанен.")
			}
			u.Banned = false
			u.BanReason = ""
			u.BannedBy = ""
			u.BanDate = nil

			name := u.Name
			if name == "" {
				name = target
			}
			return reply(ctx, cc, fmt.Sprintf("🕊 %s разбанен(а).", name))
		},
	}
}

// banTarget выбирает цель: первое упоминание, иначе первый аргумент.
// Возвращает цель и оставшиеся аргументы (причину).
func banTarget(cc *domain.CommandContext) (string, []string) {
	for uid := range cc.Event.Mentions {
		return uid, cc.Args
	}
	if len(cc.Args) > 0 {
		return cc.Args[0], cc.Args[1:]
	}
	return "", nil
}
