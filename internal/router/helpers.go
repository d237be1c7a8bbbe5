package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"neobot/internal/infra/metrics"
)

// send отправляет сообщение с таймаутом. Ошибка логируется и глотается.
func (r *Router) send(ctx context.Context, threadID, replyTo, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	start := time.Now()
	_, err := r.client.SendMessage(sendCtx, text, threadID, replyTo)
	metrics.ObserveNetworkRequest("router", "send_message", threadID, start, err)
	if err != nil {
		metrics.SendErrors.Inc()
		r.log.Warn().Err(err).Str("thread_id", threadID).Msg("маршрутизатор: не удалось отправить сообщение")
	}
}

// userName возвращает имя пользователя: из состояния, иначе с платформы,
// иначе сам идентификатор.
func (r *Router) userName(ctx context.Context, uid string) string {
	if u, ok := r.st.User(uid); ok && u.Name != "" {
		return u.Name
	}
	infoCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	start := time.Now()
	infos, err := r.client.GetUserInfo(infoCtx, uid)
	metrics.ObserveNetworkRequest("router", "get_user_info", uid, start, err)
	if err == nil {
		if info, ok := infos[uid]; ok && info.Name != "" {
			return info.Name
		}
	}
	return uid
}

// expandTemplate подставляет плейсхолдеры приветствия и прощания.
func expandTemplate(tpl, name, groupName string, memberCount int, prefix string) string {
	rep := strings.NewReplacer(
		"{name}", name,
		"{groupName}", groupName,
		"{memberCount}", strconv.Itoa(memberCount),
		"{prefix}", prefix,
	)
	return rep.Replace(tpl)
}
