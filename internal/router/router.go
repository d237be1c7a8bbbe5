package router

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"neobot/internal/dispatch"
	"neobot/internal/domain"
	"neobot/internal/gate"
	"neobot/internal/infra/metrics"
	"neobot/internal/registry"
)

// firstSignalThreshold — сколько признаков нового пользователя нужно,
// чтобы считать взаимодействие первым.
const firstSignalThreshold = 2

// Router принимает события платформы по одному, классифицирует их и
// прогоняет через именованные обработчики, затем через общие процессоры
// активности и безопасности. Состояние захватывается на всё время
// обработки события.
type Router struct {
	log    zerolog.Logger
	cfg    domain.BotConfig
	client domain.ClientAPI
	reg    *registry.Registry
	gate   *gate.Gate
	disp   *dispatch.Dispatcher
	st     *domain.BotState
	cache  domain.Cache

	callTimeout time.Duration

	// Now и XPGain переопределяются в тестах.
	Now    func() time.Time
	XPGain func() int
}

// New создаёт маршрутизатор. cache может быть nil — тогда алерты
// не дедуплицируются.
func New(logger zerolog.Logger, cfg domain.BotConfig, client domain.ClientAPI, reg *registry.Registry, g *gate.Gate, disp *dispatch.Dispatcher, st *domain.BotState, cache domain.Cache) *Router {
	return &Router{
		log:         logger,
		cfg:         cfg,
		client:      client,
		reg:         reg,
		gate:        g,
		disp:        disp,
		st:          st,
		cache:       cache,
		callTimeout: 10 * time.Second,
		Now:         time.Now,
		XPGain:      func() int { return rand.IntN(5) + 1 },
	}
}

// BuiltinEvents возвращает таблицу встроенных обработчиков событий
// для регистрации в реестре.
func (r *Router) BuiltinEvents() map[string]domain.EventHandler {
	return map[string]domain.EventHandler{
		"onFirstChat": r.onFirstChat,
		"onChat":      r.onChat,
		"onReply":     r.onReply,
		"onReaction":  r.onReaction,
		"onEvent":     r.onEvent,
	}
}

// Route обрабатывает одно событие. Ошибка любого обработчика логируется
// и не мешает остальным.
func (r *Router) Route(ctx context.Context, ev domain.Event) {
	metrics.EventsTotal.WithLabelValues(string(ev.Type)).Inc()

	r.st.Lock()
	defer r.st.Unlock()

	now := r.Now()
	r.st.BumpAnalytics(ev.Type, now)

	hc := &domain.HandlerContext{
		Client:   r.client,
		Event:    ev,
		Commands: r.reg.Commands(),
		State:    r.st,
		Config:   r.cfg,
	}

	for _, name := range r.classify(ev) {
		h, ok := r.reg.Event(name)
		if !ok {
			continue
		}
		if err := h(ctx, hc); err != nil {
			metrics.HandlerErrors.Inc()
			r.log.Error().Err(err).
				Str("handler", name).
				Str("event_type", string(ev.Type)).
				Str("thread_id", ev.ThreadID).
				Msg("маршрутизатор: обработчик завершился ошибкой")
		}
	}

	r.postProcess(ctx, ev, now)
}

// classify возвращает имена обработчиков для события в порядке вызова.
func (r *Router) classify(ev domain.Event) []string {
	switch ev.Type {
	case domain.EventMessage:
		if r.isFirstInteraction(ev) {
			return []string{"onFirstChat", "onChat"}
		}
		return []string{"onChat"}
	case domain.EventMessageReply:
		return []string{"onReply"}
	case domain.EventMessageReaction:
		return []string{"onReaction"}
	case domain.EventLog:
		return []string{"onEvent"}
	default:
		r.log.Debug().Str("event_type", string(ev.Type)).Msg("маршрутизатор: неизвестный тип события")
		return nil
	}
}

// isFirstInteraction применяет эвристику нового пользователя: без записи —
// первый контакт, с записью — не меньше двух признаков из четырёх.
func (r *Router) isFirstInteraction(ev domain.Event) bool {
	if ev.SenderID == "" || r.st.Seen(ev.ThreadID, ev.SenderID) {
		return false
	}
	u, ok := r.st.User(ev.SenderID)
	if !ok {
		return true
	}
	signals := 0
	if u.MessageCount <= 1 {
		signals++
	}
	if u.XP <= 0 {
		signals++
	}
	if u.Name == "" {
		signals++
	}
	if r.Now().Sub(u.JoinedAt) < 5*time.Minute {
		signals++
	}
	return signals >= firstSignalThreshold
}

// postProcess — общие процессоры: активность, частотные пределы, спам
// и автомодерация.
func (r *Router) postProcess(ctx context.Context, ev domain.Event, now time.Time) {
	if ev.SenderID == "" {
		return
	}

	switch ev.Type {
	case domain.EventMessage, domain.EventMessageReply:
		u := r.st.EnsureUser(ev.SenderID, now)
		u.MessageCount++
		u.LastActive = now
		if ev.Type == domain.EventMessageReply {
			u.ActivityScore += 1.5
		} else {
			u.ActivityScore++
		}
		th := r.st.EnsureThread(ev.ThreadID, now)
		th.MessageCount++
		th.ActivityScore++
		th.LastActivity = now
		r.st.MarkSeen(ev.ThreadID, ev.SenderID)
	case domain.EventMessageReaction:
		u := r.st.EnsureUser(ev.SenderID, now)
		u.ActivityScore += 0.5
		u.LastActive = now
		th := r.st.EnsureThread(ev.ThreadID, now)
		th.ActivityScore += 0.3
		th.LastActivity = now
	}

	if !r.gate.AllowRate(ev.SenderID, ev.Type) {
		r.log.Warn().Str("user_id", ev.SenderID).Str("event_type", string(ev.Type)).Msg("маршрутизатор: превышен частотный предел")
	}

	if ev.Type != domain.EventMessage || ev.Body == "" {
		return
	}

	if verdict := r.gate.DetectSpam(ev.SenderID, ev.Body); verdict.IsSpam {
		warnings := r.st.AddWarning(ev.ThreadID, ev.SenderID)
		r.log.Warn().
			Str("user_id", ev.SenderID).
			Str("reason", verdict.Reason).
			Int("warnings", warnings).
			Msg("маршрутизатор: спам")
		if r.cfg.Features.AutoModeration && warnings >= 3 {
			r.send(ctx, ev.ThreadID, ev.MessageID, "⚠️ Слишком много спама. Продолжите — и доступ будет ограничен.")
		}
	}

	r.autoModerate(ctx, ev)
}
