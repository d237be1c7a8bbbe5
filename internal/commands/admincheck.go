package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"neobot/internal/domain"
)

// Admin — сводка для администратора бота.
func Admin() *domain.Command {
	return &domain.Command{
		Name:        "admin",
		Description: "Сводка состояния бота",
		Usage:       "admin",
		Category:    categoryAdmin,
		Role:        domain.RoleBotAdmin,
		Cooldown:    0,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			threads := 0
			cc.State.ForEachThread(func(*domain.ThreadRecord) { threads++ })
			banned := 0
			cc.State.ForEachUser(func(u *domain.UserRecord) {
				if u.Banned {
					banned++
				}
			})
			an := cc.State.AnalyticsSnapshot()
			today := an.Daily[time.Now().Format("2006-01-02")]

			var b strings.Builder
			fmt.Fprintf(&b, "⚙️ %s v%s\n", cc.Config.BotName, cc.Config.Version)
			fmt.Fprintf(&b, "👥 Пользователей: %d (забанено: %d)\n", cc.State.UserCount(), banned)
			fmt.Fprintf(&b, "💬 Тредов: %d\n", threads)
			fmt.Fprintf(&b, "📌 Закреплено: %d\n", cc.State.PinnedCount())
			fmt.Fprintf(&b, "📈 Событий сегодня: %d\n", today)
			fmt.Fprintf(&b, "🧩 Команд загружено: %d", len(cc.Commands))
			return reply(ctx, cc, b.String())
		},
	}
}

// GroupAdmin управляет настройками текущего треда.
func GroupAdmin() *domain.Command {
	return &domain.Command{
		Name:        "groupadmin",
		Description: "Настройки бота в этом треде",
		Usage:       "groupadmin [welcome|goodbye|events on|off]",
		Category:    categoryAdmin,
		Role:        domain.RoleGroupAdmin,
		Cooldown:    5,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			th := cc.State.EnsureThread(cc.Event.ThreadID, time.Now())
			if len(cc.Args) == 0 {
				return reply(ctx, cc, fmt.Sprintf(
					"🛠 Настройки треда:\n• приветствия: %s\n• прощания: %s\n• уведомления о событиях: %s",
					onOff(th.Settings.WelcomeMessage), onOff(th.Settings.GoodbyeMessage), onOff(th.Settings.EventNotifications)))
			}
			if len(cc.Args) < 2 {
				return reply(ctx, cc, "Использование: groupadmin <welcome|goodbye|events> <on|off>")
			}
			enable := strings.ToLower(cc.Args[1]) == "on"
			switch strings.ToLower(cc.Args[0]) {
			case "welcome":
				th.Settings.WelcomeMessage = enable
			case "goodbye":
				th.Settings.GoodbyeMessage = enable
			case "events":
				th.Settings.EventNotifications = enable
			default:
				return reply(ctx, cc, "Неизвестная настройка. Доступны: welcome, goodbye, events.")
			}
			return reply(ctx, cc, fmt.Sprintf("✅ %s: %s", strings.ToLower(cc.Args[0]), onOff(enable)))
		},
	}
}

func onOff(v bool) string {
	if v {
		return "вкл"
	}
	return "выкл"
}
