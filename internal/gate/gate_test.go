package gate

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"neobot/internal/domain"
)

type fakeClient struct {
	adminIDs []string
	fail     bool
}

func (f *fakeClient) SendMessage(ctx context.Context, text, threadID, replyTo string) (domain.MessageRef, error) {
	return domain.MessageRef{}, nil
}

func (f *fakeClient) UnsendMessage(ctx context.Context, threadID, messageID string) error {
	return nil
}

func (f *fakeClient) GetThreadInfo(ctx context.Context, threadID string) (domain.ThreadInfo, error) {
	if f.fail {
		return domain.ThreadInfo{}, errors.New("api down")
	}
	return domain.ThreadInfo{ThreadID: threadID, IsGroup: true, AdminIDs: f.adminIDs}, nil
}

func (f *fakeClient) GetUserInfo(ctx context.Context, uids ...string) (map[string]domain.UserInfo, error) {
	return map[string]domain.UserInfo{}, nil
}

func (f *fakeClient) CurrentUserID() string { return "bot" }

func testConfig() domain.BotConfig {
	return domain.BotConfig{
		AdminUID: "admin-1",
		Security: domain.SecurityConfig{
			BlacklistedUsers:   []string{"bad-user"},
			BlacklistedThreads: []string{"bad-thread"},
			BannedWords:        []string{"казино"},
		},
	}
}

func TestRoleOf(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), &fakeClient{adminIDs: []string{"mod-1"}})
	ctx := context.Background()

	if got := g.RoleOf(ctx, "admin-1", "t1"); got != domain.RoleBotAdmin {
		t.Fatalf("ожидали роль bot_admin, получили %s", got)
	}
	if got := g.RoleOf(ctx, "mod-1", "t1"); got != domain.RoleGroupAdmin {
		t.Fatalf("ожидали роль group_admin, получили %s", got)
	}
	if got := g.RoleOf(ctx, "u1", "t1"); got != domain.RoleEveryone {
		t.Fatalf("ожидали роль everyone, получили %s", got)
	}
}

func TestRoleOfAPIError(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), &fakeClient{fail: true})
	if got := g.RoleOf(context.Background(), "mod-1", "t1"); got != domain.RoleEveryone {
		t.Fatalf("при ошибке платформы роль должна понижаться до everyone, получили %s", got)
	}
}

func TestBlacklisted(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)
	if !g.Blacklisted("bad-user", "t1") {
		t.Fatal("expected blacklisted user to be blocked")
	}
	if !g.Blacklisted("u1", "bad-thread") {
		t.Fatal("expected blacklisted thread to be blocked")
	}
	if g.Blacklisted("u1", "t1") {
		t.Fatal("обычный пользователь не должен блокироваться")
	}
}

func TestDetectSpamBurst(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)
	base := time.Now()
	g.Now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		if v := g.DetectSpam("u1", "msg"); v.IsSpam {
			t.Fatalf("сообщение %d не должно считаться спамом", i+1)
		}
	}
	v := g.DetectSpam("u1", "msg")
	if !v.IsSpam {
		t.Fatal("шестое сообщение в окне должно считаться спамом")
	}
	if v.Reason != "слишком много сообщений за короткое время" {
		t.Fatalf("неожиданная причина: %s", v.Reason)
	}
}

func TestDetectSpamWindowExpiry(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)
	base := time.Now()
	now := base
	g.Now = func() time.Time { return now }

	for i := 0; i < 6; i++ {
		now = base.Add(time.Duration(i) * 3 * time.Second)
		if v := g.DetectSpam("u1", "разные"+string(rune('a'+i))); v.IsSpam {
			t.Fatalf("сообщения раз в 3 секунды не должны считаться спамом, вердикт на %d-м", i+1)
		}
	}
}

func TestDetectSpamDuplicates(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)
	base := time.Now()
	now := base
	g.Now = func() time.Time { return now }

	// Четыре одинаковых сообщения с паузами, чтобы не сработал частотный предел.
	for i := 0; i < 3; i++ {
		now = base.Add(time.Duration(i) * 3 * time.Second)
		if v := g.DetectSpam("u1", "купи слона"); v.IsSpam {
			t.Fatalf("повтор %d ещё не спам", i+1)
		}
	}
	now = base.Add(9 * time.Second)
	v := g.DetectSpam("u1", "купи слона")
	if !v.IsSpam {
		t.Fatal("четвёртый повтор должен считаться спамом")
	}
	if v.Reason != "повтор одинакового содержимого" {
		t.Fatalf("неожиданная причина: %s", v.Reason)
	}
}

func TestAllowRate(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)
	base := time.Now()
	g.Now = func() time.Time { return base }

	for i := 0; i < 10; i++ {
		if !g.AllowRate("u1", domain.EventMessage) {
			t.Fatalf("сообщение %d должно укладываться в предел", i+1)
		}
	}
	if g.AllowRate("u1", domain.EventMessage) {
		t.Fatal("одиннадцатое сообщение в минуту должно превышать предел")
	}

	// Новая минута — окно сбрасывается.
	g.Now = func() time.Time { return base.Add(61 * time.Second) }
	if !g.AllowRate("u1", domain.EventMessage) {
		t.Fatal("после сброса окна предел должен обнуляться")
	}
}

func TestAllowRateReplies(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)
	base := time.Now()
	g.Now = func() time.Time { return base }

	// Ответы делят минутный бюджет с обычными сообщениями, а не идут
	// в более строгий предел прочих событий.
	for i := 0; i < 10; i++ {
		if !g.AllowRate("u1", domain.EventMessageReply) {
			t.Fatalf("ответ %d должен укладываться в предел сообщений", i+1)
		}
	}
	if g.AllowRate("u1", domain.EventMessage) {
		t.Fatal("одиннадцатое событие общего бюджета должно превышать предел")
	}
	if !g.AllowRate("u1", domain.EventMessageReaction) {
		t.Fatal("реакции считаются отдельно и ещё не должны упираться в предел")
	}
}

func TestFindBannedWord(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)
	if w, ok := g.FindBannedWord("лучшее КАЗИНО города"); !ok || w != "казино" {
		t.Fatalf("ожидали найти запрещённое слово, получили %q, %v", w, ok)
	}
	if _, ok := g.FindBannedWord("обычное сообщение"); ok {
		t.Fatal("чистый текст не должен давать совпадений")
	}
	if _, ok := g.FindBannedWord(""); ok {
		t.Fatal("пустой текст не должен давать совпадений")
	}
}

func TestGateSweep(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)
	base := time.Now()
	g.Now = func() time.Time { return base }
	g.DetectSpam("u1", "старое")
	g.AllowRate("u1", domain.EventMessage)

	g.Now = func() time.Time { return base.Add(2 * time.Hour) }
	if removed := g.Sweep(time.Hour); removed != 2 {
		t.Fatalf("ожидали 2 удалённых окна, получили %d", removed)
	}
}

func TestGateSweepConcurrent(t *testing.T) {
	g := New(zerolog.Nop(), testConfig(), nil)

	// Флашер вызывает Sweep из своей горутины параллельно с обработкой
	// событий. Без мьютекса это конкурентная запись в одни и те же map.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			g.DetectSpam("u"+strconv.Itoa(i%7), "msg")
			g.AllowRate("u"+strconv.Itoa(i%7), domain.EventMessage)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			g.Sweep(0)
		}
	}()
	wg.Wait()
}
