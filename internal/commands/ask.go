package commands

import (
	"context"
	"strings"

	"neobot/internal/domain"
)

const askSystemPrompt = "Ты дружелюбный ассистент группового чата. Отвечай кратко и по делу."

// Ask задаёт вопрос языковой модели.
func Ask(d Deps) *domain.Command {
	return &domain.Command{
		Name:        "ask",
		Description: "Задать вопрос ИИ",
		Usage:       "ask <вопрос>",
		Category:    categoryFun,
		Role:        domain.RoleEveryone,
		Cooldown:    30,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			if d.AI == nil {
				return reply(ctx, cc, "🧠 ИИ не настроен.")
			}
			if len(cc.Args) == 0 {
				return reply(ctx, cc, "Задайте вопрос: ask <вопрос>")
			}
			prompt := strings.Join(cc.Args, " ")

			answer, err := d.AI.Chat(ctx, askSystemPrompt, prompt)
			if err != nil {
				d.Log.Warn().Err(err).Msg("ask: генерация не удалась")
				return reply(ctx, cc, "🧠 Не получилось получить ответ, попробуйте позже.")
			}
			return reply(ctx, cc, "🧠 "+answer)
		},
	}
}
