package gate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"neobot/internal/domain"
	"neobot/internal/infra/metrics"
)

const (
	// spamWindow — окно частотной проверки.
	spamWindow = 10 * time.Second
	// spamMaxMessages — допустимое число сообщений в окне.
	spamMaxMessages = 5
	// dupWindow — окно проверки повторов содержимого.
	dupWindow = 30 * time.Second
	// dupMaxRepeats — допустимое число повторов среди последних сообщений.
	dupMaxRepeats = 3

	rateMessagesPerMinute = 10
	rateOthersPerMinute   = 5
)

type spamEntry struct {
	at   time.Time
	body string
}

type rateWindow struct {
	start    time.Time
	messages int
	others   int
}

// SpamVerdict — результат проверки на спам.
type SpamVerdict struct {
	IsSpam bool
	Count  int
	Reason string
}

// Gate принимает решения о допуске события к обработке: роли, кулдауны,
// чёрные списки, спам и частотные пределы. Скользящие окна гейт ведёт сам,
// кулдауны читает из общего состояния. Окна чистит флашер из своей
// горутины, поэтому доступ к ним закрыт собственным мьютексом.
type Gate struct {
	log    zerolog.Logger
	cfg    domain.BotConfig
	client domain.ClientAPI

	mu    sync.Mutex
	spam  map[string][]spamEntry
	rates map[string]*rateWindow

	// Now переопределяется в тестах.
	Now func() time.Time
}

// New создаёт гейт.
func New(logger zerolog.Logger, cfg domain.BotConfig, client domain.ClientAPI) *Gate {
	return &Gate{
		log:    logger,
		cfg:    cfg,
		client: client,
		spam:   make(map[string][]spamEntry),
		rates:  make(map[string]*rateWindow),
		Now:    time.Now,
	}
}

// RoleOf определяет фактическую роль пользователя в треде. Ошибка запроса
// к платформе понижает роль до обычного пользователя.
func (g *Gate) RoleOf(ctx context.Context, userID, threadID string) domain.Role {
	if userID != "" && userID == g.cfg.AdminUID {
		return domain.RoleBotAdmin
	}
	if threadID == "" || g.client == nil {
		return domain.RoleEveryone
	}
	start := time.Now()
	info, err := g.client.GetThreadInfo(ctx, threadID)
	metrics.ObserveNetworkRequest("gate", "get_thread_info", threadID, start, err)
	if err != nil {
		g.log.Warn().Err(err).Str("thread_id", threadID).Msg("гейт: не удалось получить информацию о треде")
		return domain.RoleEveryone
	}
	for _, id := range info.AdminIDs {
		if id == userID {
			return domain.RoleGroupAdmin
		}
	}
	return domain.RoleEveryone
}

// Blacklisted сообщает, закрыт ли доступ пользователю или треду.
func (g *Gate) Blacklisted(userID, threadID string) bool {
	return g.cfg.UserBlacklisted(userID) || g.cfg.ThreadBlacklisted(threadID)
}

// DetectSpam учитывает сообщение пользователя и возвращает вердикт.
// Шестое сообщение в окне и повтор содержимого сверх предела — спам.
func (g *Gate) DetectSpam(userID, body string) SpamVerdict {
	now := g.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	entries := g.spam[userID]

	kept := entries[:0]
	for _, e := range entries {
		if now.Sub(e.at) <= spamWindow {
			kept = append(kept, e)
		}
	}
	kept = append(kept, spamEntry{at: now, body: body})
	g.spam[userID] = kept

	if len(kept) > spamMaxMessages {
		return SpamVerdict{IsSpam: true, Count: len(kept), Reason: "слишком много сообщений за короткое время"}
	}

	tail := kept
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	dups := 0
	for _, e := range tail {
		if e.body == body && now.Sub(e.at) <= dupWindow {
			dups++
		}
	}
	if dups > dupMaxRepeats {
		return SpamVerdict{IsSpam: true, Count: dups, Reason: "повтор одинакового содержимого"}
	}
	return SpamVerdict{Count: len(kept)}
}

// AllowRate учитывает событие в минутном окне пользователя. Превышение
// предела только логируется, событие не блокируется.
func (g *Gate) AllowRate(userID string, ev domain.EventType) bool {
	now := g.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	w := g.rates[userID]
	if w == nil || now.Sub(w.start) > time.Minute {
		w = &rateWindow{start: now}
		g.rates[userID] = w
	}
	// Ответы идут в общий бюджет сообщений, отдельный предел — для
	// реакций и прочих событий.
	if ev == domain.EventMessage || ev == domain.EventMessageReply {
		w.messages++
		return w.messages <= rateMessagesPerMinute
	}
	w.others++
	return w.others <= rateOthersPerMinute
}

// FindBannedWord возвращает первое запрещённое слово в тексте.
func (g *Gate) FindBannedWord(body string) (string, bool) {
	if body == "" {
		return "", false
	}
	lower := strings.ToLower(body)
	for _, w := range g.cfg.Security.BannedWords {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}

// Sweep выбрасывает устаревшие скользящие окна.
func (g *Gate) Sweep(maxAge time.Duration) int {
	now := g.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for uid, entries := range g.spam {
		if len(entries) == 0 || now.Sub(entries[len(entries)-1].at) > maxAge {
			delete(g.spam, uid)
			removed++
		}
	}
	for uid, w := range g.rates {
		if now.Sub(w.start) > maxAge {
			delete(g.rates, uid)
			removed++
		}
	}
	return removed
}
