package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"neobot/internal/domain"
	"neobot/internal/gate"
	"neobot/internal/registry"
)

type fakeClient struct {
	sent     []string
	adminIDs []string
}

func (f *fakeClient) SendMessage(ctx context.Context, text, threadID, replyTo string) (domain.MessageRef, error) {
	f.sent = append(f.sent, text)
	return domain.MessageRef{MessageID: "m-bot", ThreadID: threadID}, nil
}

func (f *fakeClient) UnsendMessage(ctx context.Context, threadID, messageID string) error {
	return nil
}

func (f *fakeClient) GetThreadInfo(ctx context.Context, threadID string) (domain.ThreadInfo, error) {
	return domain.ThreadInfo{ThreadID: threadID, IsGroup: true, AdminIDs: f.adminIDs}, nil
}

func (f *fakeClient) GetUserInfo(ctx context.Context, uids ...string) (map[string]domain.UserInfo, error) {
	return map[string]domain.UserInfo{}, nil
}

func (f *fakeClient) CurrentUserID() string { return "bot" }

type recordedAudit struct {
	entries []domain.AuditEntry
}

func (r *recordedAudit) Publish(ctx context.Context, e domain.AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordedAudit) Pop(ctx context.Context) (domain.AuditEntry, error) {
	return domain.AuditEntry{}, errors.New("not implemented")
}

func testSetup(t *testing.T, builders ...registry.CommandBuilder) (*Dispatcher, *domain.BotState, *fakeClient, *recordedAudit) {
	t.Helper()
	cfg := domain.BotConfig{BotName: "NeoBot", Prefix: "!", AdminUID: "admin-1"}
	client := &fakeClient{}
	audit := &recordedAudit{}
	reg := registry.New(zerolog.Nop())
	reg.LoadCommands(builders)
	g := gate.New(zerolog.Nop(), cfg, client)
	d := New(zerolog.Nop(), cfg, reg, g, client, audit)
	return d, domain.NewBotState(), client, audit
}

func message(body string) domain.Event {
	return domain.Event{
		Type:      domain.EventMessage,
		ThreadID:  "t1",
		SenderID:  "u1",
		MessageID: "m1",
		Body:      body,
	}
}

func pingBuilder(calls *int) registry.CommandBuilder {
	return func() (*domain.Command, error) {
		return &domain.Command{
			Name:     "ping",
			Cooldown: 5,
			Execute: func(ctx context.Context, cc *domain.CommandContext) error {
				*calls++
				return nil
			},
		}, nil
	}
}

func TestDispatchExecutes(t *testing.T) {
	calls := 0
	d, st, _, audit := testSetup(t, pingBuilder(&calls))

	if got := d.Dispatch(context.Background(), st, message("!ping")); got != ResultExecuted {
		t.Fatalf("ожидали ResultExecuted, получили %d", got)
	}
	if calls != 1 {
		t.Fatalf("обработчик должен выполниться один раз, выполнился %d", calls)
	}
	if len(audit.entries) != 1 || !audit.entries[0].Success {
		t.Fatalf("ожидали одну успешную запись аудита, получили %+v", audit.entries)
	}
}

func TestDispatchSkipsWithoutPrefix(t *testing.T) {
	calls := 0
	d, st, client, _ := testSetup(t, pingBuilder(&calls))

	if got := d.Dispatch(context.Background(), st, message("просто текст")); got != ResultSkipped {
		t.Fatalf("ожидали ResultSkipped, получили %d", got)
	}
	if got := d.Dispatch(context.Background(), st, domain.Event{Type: domain.EventMessage}); got != ResultSkipped {
		t.Fatalf("пустое тело: ожидали ResultSkipped, получили %d", got)
	}
	if len(client.sent) != 0 {
		t.Fatalf("без префикса ответов быть не должно: %v", client.sent)
	}
}

func TestDispatchUnknownSilent(t *testing.T) {
	calls := 0
	d, st, client, _ := testSetup(t, pingBuilder(&calls))

	if got := d.Dispatch(context.Background(), st, message("!nosuch")); got != ResultUnknown {
		t.Fatalf("ожидали ResultUnknown, получили %d", got)
	}
	if len(client.sent) != 0 {
		t.Fatalf("неизвестная команда должна игнорироваться молча: %v", client.sent)
	}
}

func TestDispatchCaseAndArgs(t *testing.T) {
	var gotArgs []string
	d, st, _, _ := testSetup(t, func() (*domain.Command, error) {
		return &domain.Command{
			Name: "ban",
			Execute: func(ctx context.Context, cc *domain.CommandContext) error {
				gotArgs = cc.Args
				return nil
			},
		}, nil
	})

	if got := d.Dispatch(context.Background(), st, message("!  BAN  user42  причина")); got != ResultExecuted {
		t.Fatalf("ожидали ResultExecuted, получили %d", got)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "user42" || gotArgs[1] != "причина" {
		t.Fatalf("неожиданные аргументы: %v", gotArgs)
	}
}

func TestDispatchDeniedRole(t *testing.T) {
	calls := 0
	d, st, client, _ := testSetup(t, func() (*domain.Command, error) {
		return &domain.Command{
			Name:     "ban",
			Role:     domain.RoleGroupAdmin,
			Cooldown: 10,
			Execute: func(ctx context.Context, cc *domain.CommandContext) error {
				calls++
				return nil
			},
		}, nil
	})

	if got := d.Dispatch(context.Background(), st, message("!ban")); got != ResultDeniedRole {
		t.Fatalf("ожидали ResultDeniedRole, получили %d", got)
	}
	if calls != 0 {
		t.Fatal("обработчик не должен вызываться при отказе по роли")
	}
	if len(client.sent) != 1 || client.sent[0] != "❌ Команда доступна только администраторам группы." {
		t.Fatalf("неожиданный ответ: %v", client.sent)
	}
	// Отказ не расходует кулдаун.
	if rem := st.CooldownRemaining("ban", "u1", 10, time.Now()); rem > 0 {
		t.Fatalf("кулдаун не должен отмечаться при отказе, остаток %.1f", rem)
	}
}

func TestDispatchGroupAdminAllowed(t *testing.T) {
	calls := 0
	d, st, client, _ := testSetup(t, func() (*domain.Command, error) {
		return &domain.Command{
			Name: "ban",
			Role: domain.RoleGroupAdmin,
			Execute: func(ctx context.Context, cc *domain.CommandContext) error {
				calls++
				return nil
			},
		}, nil
	})
	client.adminIDs = []string{"u1"}

	if got := d.Dispatch(context.Background(), st, message("!ban")); got != ResultExecuted {
		t.Fatalf("администратор группы должен проходить, получили %d", got)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDispatchBannedUser(t *testing.T) {
	calls := 0
	d, st, client, _ := testSetup(t, pingBuilder(&calls))

	u := st.EnsureUser("u1", time.Now())
	u.Banned = true

	if got := d.Dispatch(context.Background(), st, message("!ping")); got != ResultDeniedBlacklist {
		t.Fatalf("ожидали ResultDeniedBlacklist, получили %d", got)
	}
	if calls != 0 {
		t.Fatal("забаненный пользователь не должен выполнять команды")
	}
	if len(client.sent) != 1 || client.sent[0] != "🚫 Доступ к командам ограничен." {
		t.Fatalf("неожиданный ответ: %v", client.sent)
	}
}

func TestDispatchCooldown(t *testing.T) {
	calls := 0
	d, st, client, _ := testSetup(t, pingBuilder(&calls))
	base := time.Now()
	d.Now = func() time.Time { return base }

	if got := d.Dispatch(context.Background(), st, message("!ping")); got != ResultExecuted {
		t.Fatalf("первый вызов должен выполниться, получили %d", got)
	}

	d.Now = func() time.Time { return base.Add(2 * time.Second) }
	if got := d.Dispatch(context.Background(), st, message("!ping")); got != ResultCooldown {
		t.Fatalf("повторный вызов внутри интервала, ожидали ResultCooldown, получили %d", got)
	}
	if calls != 1 {
		t.Fatalf("обработчик должен выполниться один раз, выполнился %d", calls)
	}
	if len(client.sent) != 1 || client.sent[0] != "⏱ Подождите 3.0 с перед повторным вызовом команды." {
		t.Fatalf("неожиданное уведомление о кулдауне: %v", client.sent)
	}

	d.Now = func() time.Time { return base.Add(6 * time.Second) }
	if got := d.Dispatch(context.Background(), st, message("!ping")); got != ResultExecuted {
		t.Fatalf("после интервала вызов должен выполниться, получили %d", got)
	}
}

func TestDispatchHandlerError(t *testing.T) {
	d, st, client, audit := testSetup(t, func() (*domain.Command, error) {
		return &domain.Command{
			Name:     "fail",
			Cooldown: 5,
			Execute: func(ctx context.Context, cc *domain.CommandContext) error {
				return errors.New("что-то пошло не так")
			},
		}, nil
	})
	base := time.Now()
	d.Now = func() time.Time { return base }

	if got := d.Dispatch(context.Background(), st, message("!fail")); got != ResultFailed {
		t.Fatalf("ожидали ResultFailed, получили %d", got)
	}
	if len(client.sent) != 1 || client.sent[0] != "❌ При выполнении команды произошла ошибка." {
		t.Fatalf("неожиданный ответ: %v", client.sent)
	}
	if len(audit.entries) != 1 || audit.entries[0].Success || audit.entries[0].Error == "" {
		t.Fatalf("ожидали запись аудита об ошибке, получили %+v", audit.entries)
	}
	// Упавший обработчик тоже расходует интервал.
	d.Now = func() time.Time { return base.Add(2 * time.Second) }
	if got := d.Dispatch(context.Background(), st, message("!fail")); got != ResultCooldown {
		t.Fatalf("ожидали ResultCooldown после ошибки, получили %d", got)
	}
}

func TestDispatchHandlerPanic(t *testing.T) {
	d, st, _, audit := testSetup(t, func() (*domain.Command, error) {
		return &domain.Command{
			Name: "boom",
			Execute: func(ctx context.Context, cc *domain.CommandContext) error {
				panic("взрыв")
			},
		}, nil
	})

	if got := d.Dispatch(context.Background(), st, message("!boom")); got != ResultFailed {
		t.Fatalf("panic должен превращаться в ResultFailed, получили %d", got)
	}
	if len(audit.entries) != 1 || audit.entries[0].Success {
		t.Fatalf("expected failed audit entry, got %+v", audit.entries)
	}
}
