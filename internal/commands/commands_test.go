package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"neobot/internal/domain"
)

type fakeClient struct {
	sent []string
}

func (f *fakeClient) SendMessage(ctx context.Context, text, threadID, replyTo string) (domain.MessageRef, error) {
	f.sent = append(f.sent, text)
	return domain.MessageRef{MessageID: "m-bot", ThreadID: threadID}, nil
}

func (f *fakeClient) UnsendMessage(ctx context.Context, threadID, messageID string) error {
	return nil
}

func (f *fakeClient) GetThreadInfo(ctx context.Context, threadID string) (domain.ThreadInfo, error) {
	return domain.ThreadInfo{ThreadID: threadID, IsGroup: true}, nil
}

func (f *fakeClient) GetUserInfo(ctx context.Context, uids ...string) (map[string]domain.UserInfo, error) {
	return map[string]domain.UserInfo{}, nil
}

func (f *fakeClient) CurrentUserID() string { return "bot" }

func testContext(t *testing.T, args ...string) (*domain.CommandContext, *fakeClient, *domain.BotState) {
	t.Helper()
	client := &fakeClient{}
	st := domain.NewBotState()
	cc := &domain.CommandContext{
		HandlerContext: domain.HandlerContext{
			Client: client,
			Event: domain.Event{
				Type:      domain.EventMessage,
				ThreadID:  "t1",
				SenderID:  "u1",
				MessageID: "m1",
			},
			Commands: map[string]*domain.Command{},
			State:    st,
			Config: domain.BotConfig{
				BotName:   "NeoBot",
				Version:   "1.0.0",
				Prefix:    "!",
				AdminUID:  "admin-1",
				XPDivisor: 100,
			},
		},
		Args: args,
	}
	return cc, client, st
}

func lastSent(t *testing.T, client *fakeClient) string {
	t.Helper()
	if len(client.sent) == 0 {
		t.Fatal("expected a reply, got none")
	}
	return client.sent[len(client.sent)-1]
}

func TestTopUsers(t *testing.T) {
	st := domain.NewBotState()
	now := time.Now()
	for uid, xp := range map[string]int{"a": 10, "b": 300, "c": 150, "d": 300} {
		u := st.EnsureUser(uid, now)
		u.XP = xp
	}

	top := TopUsers(st, 3)
	if len(top) != 3 {
		t.Fatalf("ожидали 3 записи, получили %d", len(top))
	}
	// При равном опыте порядок стабилен по идентификатору.
	if top[0].UID != "b" || top[1].UID != "d" || top[2].UID != "c" {
		t.Fatalf("неожиданный порядок: %s, %s, %s", top[0].UID, top[1].UID, top[2].UID)
	}
}

func TestPing(t *testing.T) {
	cc, client, _ := testContext(t)
	cmd := Ping()
	if err := cmd.Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(lastSent(t, client), "Понг") {
		t.Fatalf("неожиданный ответ: %s", lastSent(t, client))
	}
}

func TestHelpGrouping(t *testing.T) {
	cc, client, _ := testContext(t)
	cc.Commands = map[string]*domain.Command{
		"ping":  {Name: "ping", Description: "Проверка связи", Role: domain.RoleEveryone},
		"ban":   {Name: "ban", Description: "Забанить", Role: domain.RoleGroupAdmin},
		"admin": {Name: "admin", Description: "Сводка", Role: domain.RoleBotAdmin},
	}

	if err := Help().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := lastSent(t, client)
	for _, want := range []string{"NeoBot v1.0.0 — 3 команд", "👥 Для всех", "🛡 Для администраторов группы", "⚙️ Для администратора бота", "!ping", "!ban", "!admin"} {
		if !strings.Contains(out, want) {
			t.Fatalf("в справке нет %q:\n%s", want, out)
		}
	}
}

func TestHelpSingleCommand(t *testing.T) {
	cc, client, _ := testContext(t, "ping")
	cc.Commands = map[string]*domain.Command{
		"ping": {Name: "ping", Description: "Проверка связи", Usage: "ping", Cooldown: 3},
	}

	if err := Help().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := lastSent(t, client)
	if !strings.Contains(out, "Использование: !ping") || !strings.Contains(out, "Интервал: 3 с") {
		t.Fatalf("неожиданная справка по команде:\n%s", out)
	}
}

func TestHelpUnknownCommand(t *testing.T) {
	cc, client, _ := testContext(t, "nosuch")
	if err := Help().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(lastSent(t, client), "не найдена") {
		t.Fatalf("неожиданный ответ: %s", lastSent(t, client))
	}
}

func TestLanguage(t *testing.T) {
	cc, client, st := testContext(t, "en")
	if err := Language().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lastSent(t, client) != "✅ Language switched to English." {
		t.Fatalf("неожиданное подтверждение: %s", lastSent(t, client))
	}
	u, ok := st.User("u1")
	if !ok || u.Language != "en" {
		t.Fatalf("язык пользователя не сохранён: %+v", u)
	}
}

func TestLanguageVietnamese(t *testing.T) {
	cc, client, st := testContext(t, "vi")
	if err := Language().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lastSent(t, client) != "✅ Ngôn ngữ đã được chuyển sang Tiếng Việt." {
		t.Fatalf("неожиданное подтверждение: %s", lastSent(t, client))
	}
	u, ok := st.User("u1")
	if !ok || u.Language != "vi" {
		t.Fatalf("язык пользователя не сохранён: %+v", u)
	}
}

func TestLanguageUnknown(t *testing.T) {
	cc, client, _ := testContext(t, "fr")
	if err := Language().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(lastSent(t, client), "Такого языка нет") {
		t.Fatalf("неожиданный ответ: %s", lastSent(t, client))
	}
}

func TestBan(t *testing.T) {
	cc, client, st := testContext(t, "u2", "спам", "в", "чате")
	if err := Ban().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	u, ok := st.User("u2")
	if !ok || !u.Banned {
		t.Fatalf("пользователь должен быть забанен: %+v", u)
	}
	if u.BanReason != "спам в чате" || u.BannedBy != "u1" || u.BanDate == nil {
		t.Fatalf("неполные данные бана: %+v", u)
	}
	if !strings.Contains(lastSent(t, client), "забанен") {
		t.Fatalf("неожиданный ответ: %s", lastSent(t, client))
	}
}

func TestBanGuards(t *testing.T) {
	cases := map[string]struct {
		target string
		want   string
	}{
		"себя":           {target: "u1", want: "Себя забанить нельзя"},
		"администратора": {target: "admin-1", want: "Администратора бота забанить нельзя"},
	}
	for name, c := range cases {
		cc, client, st := testContext(t, c.target)
		if err := Ban().Execute(context.Background(), cc); err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if !strings.Contains(lastSent(t, client), c.want) {
			t.Fatalf("%s: неожиданный ответ: %s", name, lastSent(t, client))
		}
		if u, ok := st.User(c.target); ok && u.Banned {
			t.Fatalf("%s: пользователь не должен быть забанен", name)
		}
	}
}

func TestBanByMention(t *testing.T) {
	cc, _, st := testContext(t)
	cc.Event.Mentions = map[string]string{"u3": "Боб"}
	if err := Ban().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u, ok := st.User("u3"); !ok || !u.Banned {
		t.Fatal("упомянутый пользователь должен быть забанен")
	}
}

func TestUnban(t *testing.T) {
	cc, client, st := testContext(t, "u2")
	u := st.EnsureUser("u2", time.Now())
	u.Banned = true
	u.BanReason = "спам"

	if err := Unban().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.Banned || u.BanReason != "" || u.BanDate != nil {
		t.Fatalf("бан должен быть снят: %+v", u)
	}
	if !strings.Contains(lastSent(t, client), "разбанен") {
		t.Fatalf("неожиданный ответ: %s", lastSent(t, client))
	}
}

func TestUnbanNotBanned(t *testing.T) {
	cc, client, _ := testContext(t, "u2")
	if err := Unban().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(lastSent(t, client), "не забанен") {
		t.Fatalf("неожиданный ответ: %s", lastSent(t, client))
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	cc, client, _ := testContext(t)
	if err := Leaderboard().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(lastSent(t, client), "Пока пусто") {
		t.Fatalf("неожиданный ответ: %s", lastSent(t, client))
	}
}

func TestLeaderboardMedals(t *testing.T) {
	cc, client, st := testContext(t)
	now := time.Now()
	for uid, xp := range map[string]int{"a": 100, "b": 200, "c": 300, "d": 50} {
		u := st.EnsureUser(uid, now)
		u.XP = xp
		u.Name = "user-" + uid
	}

	if err := Leaderboard().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := lastSent(t, client)
	if !strings.Contains(out, "🥇 user-c") || !strings.Contains(out, "🥈 user-b") || !strings.Contains(out, "🥉 user-a") {
		t.Fatalf("медали расставлены неверно:\n%s", out)
	}
	if !strings.Contains(out, "4. user-d") {
		t.Fatalf("четвёртое место должно нумероваться:\n%s", out)
	}
}

func TestLeaderboardBadLimit(t *testing.T) {
	cc, client, _ := testContext(t, "999")
	if err := Leaderboard().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(lastSent(t, client), "от 1 до 20") {
		t.Fatalf("неожиданный ответ: %s", lastSent(t, client))
	}
}

func TestRank(t *testing.T) {
	cc, client, st := testContext(t)
	u := st.EnsureUser("u1", time.Now())
	u.Name = "Алиса"
	u.XP = 150
	u.Level = 2
	u.MessageCount = 42

	if err := Rank().Execute(context.Background(), cc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := lastSent(t, client)
	if !strings.Contains(out, "Алиса") || !strings.Contains(out, "150") {
		t.Fatalf("неожиданная карточка:\n%s", out)
	}
}
