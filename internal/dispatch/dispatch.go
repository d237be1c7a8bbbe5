package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"neobot/internal/domain"
	"neobot/internal/gate"
	"neobot/internal/infra/metrics"
	"neobot/internal/registry"
)

// Result — исход диспетчеризации одного сообщения.
type Result int

const (
	// ResultSkipped — пустое тело или сообщение без префикса.
	ResultSkipped Result = iota
	// ResultUnknown — команда не найдена, ответ не отправляется.
	ResultUnknown
	// ResultDeniedRole — недостаточно прав.
	ResultDeniedRole
	// ResultDeniedBlacklist — пользователь или тред в чёрном списке.
	ResultDeniedBlacklist
	// ResultCooldown — интервал между вызовами ещё не истёк.
	ResultCooldown
	// ResultExecuted — команда выполнена.
	ResultExecuted
	// ResultFailed — обработчик команды вернул ошибку.
	ResultFailed
)

// Dispatcher разбирает текст сообщения, находит команду и проводит её
// через проверки доступа. Ошибки обработчиков не поднимаются выше.
type Dispatcher struct {
	log    zerolog.Logger
	cfg    domain.BotConfig
	reg    *registry.Registry
	gate   *gate.Gate
	client domain.ClientAPI
	audit  domain.AuditQueue

	callTimeout time.Duration

	// Now переопределяется в тестах.
	Now func() time.Time
}

// New создаёт диспетчер. audit может быть nil — тогда записи не публикуются.
func New(logger zerolog.Logger, cfg domain.BotConfig, reg *registry.Registry, g *gate.Gate, client domain.ClientAPI, audit domain.AuditQueue) *Dispatcher {
	return &Dispatcher{
		log:         logger,
		cfg:         cfg,
		reg:         reg,
		gate:        g,
		client:      client,
		audit:       audit,
		callTimeout: 10 * time.Second,
		Now:         time.Now,
	}
}

// Dispatch обрабатывает одно сообщение. Вызывается при захваченном
// состоянии st.
func (d *Dispatcher) Dispatch(ctx context.Context, st *domain.BotState, ev domain.Event) Result {
	if ev.Body == "" {
		return ResultSkipped
	}
	if !strings.HasPrefix(ev.Body, d.cfg.Prefix) {
		return ResultSkipped
	}

	rest := strings.TrimSpace(ev.Body[len(d.cfg.Prefix):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ResultUnknown
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	cmd, ok := d.reg.Command(name)
	if !ok {
		d.log.Debug().Str("command", name).Str("user_id", ev.SenderID).Msg("диспетчер: неизвестная команда")
		return ResultUnknown
	}

	role := d.gate.RoleOf(ctx, ev.SenderID, ev.ThreadID)
	if !role.Allows(cmd.Role) {
		d.log.Info().
			Str("command", cmd.Name).
			Str("user_id", ev.SenderID).
			Str("role", role.String()).
			Msg("диспетчер: отказ по роли")
		d.notify(ctx, ev, deniedText(cmd.Role))
		metrics.ObserveCommand(cmd.Name, "denied_role", d.Now())
		return ResultDeniedRole
	}

	banned := false
	if u, ok := st.User(ev.SenderID); ok {
		banned = u.Banned
	}
	if banned || d.gate.Blacklisted(ev.SenderID, ev.ThreadID) {
		d.log.Info().Str("command", cmd.Name).Str("user_id", ev.SenderID).Msg("диспетчер: отказ по чёрному списку")
		d.notify(ctx, ev, "🚫 Доступ к командам ограничен.")
		metrics.ObserveCommand(cmd.Name, "denied_blacklist", d.Now())
		return ResultDeniedBlacklist
	}

	now := d.Now()
	if remaining := st.CooldownRemaining(cmd.Name, ev.SenderID, cmd.Cooldown, now); remaining > 0 {
		d.notify(ctx, ev, fmt.Sprintf("⏱ Подождите %.1f с перед повторным вызовом команды.", remaining))
		metrics.ObserveCommand(cmd.Name, "cooldown", now)
		return ResultCooldown
	}

	// Кулдаун отмечается до выполнения: упавший обработчик тоже
	// расходует интервал.
	st.TouchCooldown(cmd.Name, ev.SenderID, now)

	cc := &domain.CommandContext{
		HandlerContext: domain.HandlerContext{
			Client:   d.client,
			Event:    ev,
			Commands: d.reg.Commands(),
			State:    st,
			Config:   d.cfg,
		},
		Args: args,
	}

	start := d.Now()
	err := d.execute(ctx, cmd, cc)
	d.publishAudit(ctx, cmd.Name, ev, err)
	if err != nil {
		d.log.Error().Err(err).Str("command", cmd.Name).Str("user_id", ev.SenderID).Msg("диспетчер: команда завершилась ошибкой")
		metrics.ObserveCommand(cmd.Name, "failed", start)
		d.notify(ctx, ev, "❌ При выполнении команды произошла ошибка.")
		return ResultFailed
	}
	metrics.ObserveCommand(cmd.Name, "executed", start)
	return ResultExecuted
}

func (d *Dispatcher) execute(ctx context.Context, cmd *domain.Command, cc *domain.CommandContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic в обработчике команды: %v", rec)
		}
	}()
	return cmd.Execute(ctx, cc)
}

func (d *Dispatcher) publishAudit(ctx context.Context, command string, ev domain.Event, execErr error) {
	if d.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:       uuid.NewString(),
		Command:  command,
		UserID:   ev.SenderID,
		ThreadID: ev.ThreadID,
		Success:  execErr == nil,
		At:       d.Now(),
	}
	if execErr != nil {
		entry.Error = execErr.Error()
	}
	pubCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	if err := d.audit.Publish(pubCtx, entry); err != nil {
		d.log.Warn().Err(err).Str("command", command).Msg("диспетчер: не удалось опубликовать запись аудита")
		return
	}
	metrics.AuditPublished.Inc()
}

func (d *Dispatcher) notify(ctx context.Context, ev domain.Event, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	start := time.Now()
	_, err := d.client.SendMessage(sendCtx, text, ev.ThreadID, ev.MessageID)
	metrics.ObserveNetworkRequest("dispatch", "send_message", ev.ThreadID, start, err)
	if err != nil {
		metrics.SendErrors.Inc()
		d.log.Warn().Err(err).Str("thread_id", ev.ThreadID).Msg("диспетчер: не удалось отправить сообщение")
	}
}

func deniedText(required domain.Role) string {
	switch required {
	case domain.RoleGroupAdmin:
		return "❌ Команда доступна только администраторам группы."
	default:
		return "❌ Команда доступна только администратору бота."
	}
}
