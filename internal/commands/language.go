package commands

import (
	"context"
	"strings"
	"time"

	"neobot/internal/domain"
)

// languageConfirm — подтверждение смены языка на самом выбранном языке.
var languageConfirm = map[string]string{
	"ru": "✅ Язык переключён на русский.",
	"en": "✅ Language switched to English.",
	"bn": "✅ ভাষা বাংলায় পরিবর্তন করা হয়েছে।",
	"vi": "✅ Ngôn ngữ đã được chuyển sang Tiếng Việt.",
}

// Language переключает язык пользователя.
func Language() *domain.Command {
	return &domain.Command{
		Name:        "language",
		Description: "Сменить язык бота для себя",
		Usage:       "language <ru|en|bn|vi>",
		Category:    categoryGeneral,
		Role:        domain.RoleEveryone,
		Cooldown:    5,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			if len(cc.Args) == 0 {
				return reply(ctx, cc, "🌐 Доступные языки: ru, en, bn, vi.")
			}
			lang := strings.ToLower(cc.Args[0])
			confirm, ok := languageConfirm[lang]
			if !ok {
				return reply(ctx, cc, "🌐 Такого языка нет. Доступны: ru, en, bn, vi.")
			}
			u := cc.State.EnsureUser(cc.Event.SenderID, time.Now())
			u.Language = lang
			return reply(ctx, cc, confirm)
		},
	}
}
