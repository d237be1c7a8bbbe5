package router

import (
	"context"
	"unicode"

	"neobot/internal/domain"
)

const (
	maxMessageLength = 2000
	capsRatioLimit   = 0.7
	capsMinLength    = 20
)

// autoModerate проверяет содержимое сообщения: запрещённые слова,
// длину и долю заглавных букв.
func (r *Router) autoModerate(ctx context.Context, ev domain.Event) {
	if !r.cfg.Features.AutoModeration {
		return
	}
	th, ok := r.st.Thread(ev.ThreadID)
	if ok && th.Banned {
		return
	}

	if word, found := r.gate.FindBannedWord(ev.Body); found {
		r.log.Info().
			Str("user_id", ev.SenderID).
			Str("word", word).
			Msg("маршрутизатор: запрещённое слово")
		r.unsend(ctx, ev.ThreadID, ev.MessageID)
		r.send(ctx, ev.ThreadID, "", "⚠️ Сообщение удалено: запрещённое содержимое.")
		return
	}

	if len([]rune(ev.Body)) > maxMessageLength {
		r.send(ctx, ev.ThreadID, ev.MessageID, "⚠️ Сообщение слишком длинное, пишите короче.")
		return
	}

	if capsHeavy(ev.Body) {
		r.send(ctx, ev.ThreadID, ev.MessageID, "⚠️ Пожалуйста, не пишите капсом.")
	}
}

// capsHeavy сообщает, что больше 70% букв сообщения — заглавные.
// Короткие сообщения не учитываются.
func capsHeavy(body string) bool {
	runes := []rune(body)
	if len(runes) <= capsMinLength {
		return false
	}
	letters, upper := 0, 0
	for _, c := range runes {
		if unicode.IsLetter(c) {
			letters++
			if unicode.IsUpper(c) {
				upper++
			}
		}
	}
	if letters == 0 {
		return false
	}
	return float64(upper)/float64(letters) > capsRatioLimit
}
