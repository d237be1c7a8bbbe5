package commands

import (
	"context"
	"fmt"

	"neobot/internal/domain"
)

// Ping — проверка, что бот жив.
func Ping() *domain.Command {
	return &domain.Command{
		Name:        "ping",
		Description: "Проверить, что бот отвечает",
		Usage:       "ping",
		Category:    categoryGeneral,
		Role:        domain.RoleEveryone,
		Cooldown:    3,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			return reply(ctx, cc, fmt.Sprintf("🏓 Понг! %s v%s на связи.", cc.Config.BotName, cc.Config.Version))
		},
	}
}
