package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"neobot/internal/domain"
)

// Help строит справку по командам, сгруппированную по уровням доступа.
func Help() *domain.Command {
	return &domain.Command{
		Name:        "help",
		Description: "Список команд или справка по одной команде",
		Usage:       "help [команда]",
		Category:    categoryGeneral,
		Role:        domain.RoleEveryone,
		Cooldown:    5,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			if len(cc.Args) > 0 {
				return helpFor(ctx, cc, strings.ToLower(cc.Args[0]))
			}

			var everyone, groupAdmin, botAdmin []string
			for name, cmd := range cc.Commands {
				line := fmt.Sprintf("  %s%s — %s", cc.Config.Prefix, name, cmd.Description)
				switch cmd.Role {
				case domain.RoleBotAdmin:
					botAdmin = append(botAdmin, line)
				case domain.RoleGroupAdmin:
					groupAdmin = append(groupAdmin, line)
				default:
					everyone = append(everyone, line)
				}
			}
			sort.Strings(everyone)
			sort.Strings(groupAdmin)
			sort.Strings(botAdmin)

			var b strings.Builder
			fmt.Fprintf(&b, "🤖 %s v%s — %d команд\n", cc.Config.BotName, cc.Config.Version, len(cc.Commands))
			if len(everyone) > 0 {
				b.WriteString("\n👥 Для всех:\n")
				b.WriteString(strings.Join(everyone, "\n"))
			}
			if len(groupAdmin) > 0 {
				b.WriteString("\n\n🛡 Для администраторов группы:\n")
				b.WriteString(strings.Join(groupAdmin, "\n"))
			}
			if len(botAdmin) > 0 {
				b.WriteString("\n\n⚙️ Для администратора бота:\n")
				b.WriteString(strings.Join(botAdmin, "\n"))
			}
			fmt.Fprintf(&b, "\n\n💡 %shelp <команда> — подробности.", cc.Config.Prefix)
			return reply(ctx, cc, b.String())
		},
	}
}

func helpFor(ctx context.Context, cc *domain.CommandContext, name string) error {
	cmd, ok := cc.Commands[name]
	if !ok {
		return reply(ctx, cc, fmt.Sprintf("❓ Команда «%s» не найдена.", name))
	}
	text := fmt.Sprintf("📖 %s%s\n%s\nИспользование: %s%s",
		cc.Config.Prefix, cmd.Name, cmd.Description, cc.Config.Prefix, cmd.Usage)
	if cmd.Cooldown > 0 {
		text += fmt.Sprintf("\nИнтервал: %d с", cmd.Cooldown)
	}
	return reply(ctx, cc, text)
}
