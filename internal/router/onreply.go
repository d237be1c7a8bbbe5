package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"neobot/internal/domain"
)

var (
	yesWords = []string{"yes", "y", "ok", "да", "ага", "конечно", "+", "✅"}
	noWords  = []string{"no", "n", "нет", "неа", "-", "❌"}
)

// onReply сверяет ответ с контекстом ожидания, зарегистрированным на
// сообщение бота. Без контекста ответы на сообщения бота игнорируются.
func (r *Router) onReply(ctx context.Context, hc *domain.HandlerContext) error {
	ev := hc.Event
	if ev.Reply == nil {
		return nil
	}
	key := domain.MessageKey{ThreadID: ev.ThreadID, MessageID: ev.Reply.MessageID}
	rc, ok := r.st.ReplyContext(key)
	if !ok {
		if ev.Reply.SenderID == r.client.CurrentUserID() {
			r.log.Debug().Str("thread_id", ev.ThreadID).Msg("маршрутизатор: ответ на сообщение бота без контекста")
		}
		return nil
	}

	handled, err := r.handleReply(ctx, hc, rc, ev)
	if handled && rc.OneShot {
		r.st.DeleteReplyContext(key)
	}
	return err
}

func (r *Router) handleReply(ctx context.Context, hc *domain.HandlerContext, rc *domain.ReplyContext, ev domain.Event) (bool, error) {
	body := strings.TrimSpace(ev.Body)

	switch rc.Type {
	case domain.ReplyQuestion:
		if rc.OnReply != nil {
			return true, rc.OnReply(hc, body)
		}
		r.send(ctx, ev.ThreadID, ev.MessageID, "💬 Ответ записан.")
		return true, nil

	case domain.ReplyConfirmation:
		normalized := strings.ToLower(body)
		if containsWord(yesWords, normalized) {
			if rc.OnConfirm != nil {
				return true, rc.OnConfirm(hc)
			}
			r.send(ctx, ev.ThreadID, ev.MessageID, "✅ Подтверждено.")
			return true, nil
		}
		if containsWord(noWords, normalized) {
			if rc.OnCancel != nil {
				return true, rc.OnCancel(hc)
			}
			r.send(ctx, ev.ThreadID, ev.MessageID, "❌ Отменено.")
			return true, nil
		}
		r.send(ctx, ev.ThreadID, ev.MessageID, "Ответьте «да» или «нет».")
		return false, nil

	case domain.ReplyInputRequest:
		if rc.Validator != nil && !rc.Validator(body) {
			msg := rc.ErrorMessage
			if msg == "" {
				msg = "⚠️ Неверный формат, попробуйте ещё раз."
			}
			r.send(ctx, ev.ThreadID, ev.MessageID, msg)
			return false, nil
		}
		if rc.OnReply != nil {
			return true, rc.OnReply(hc, body)
		}
		r.send(ctx, ev.ThreadID, ev.MessageID, "💬 Принято.")
		return true, nil

	case domain.ReplyPoll:
		vote, err := strconv.Atoi(body)
		if err != nil || vote < 1 || vote > len(rc.Options) {
			r.send(ctx, ev.ThreadID, ev.MessageID, fmt.Sprintf("Отправьте номер варианта от 1 до %d.", len(rc.Options)))
			return false, nil
		}
		if rc.Votes == nil {
			rc.Votes = make(map[string]int)
		}
		rc.Votes[ev.SenderID] = vote
		r.send(ctx, ev.ThreadID, ev.MessageID, fmt.Sprintf("🗳 Голос за «%s» учтён.", rc.Options[vote-1]))
		return true, nil

	default:
		r.log.Warn().Str("type", string(rc.Type)).Msg("маршрутизатор: неизвестный тип контекста ответа")
		return true, nil
	}
}

func containsWord(words []string, s string) bool {
	for _, w := range words {
		if w == s {
			return true
		}
	}
	return false
}
