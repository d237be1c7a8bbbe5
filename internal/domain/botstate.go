package domain

import (
	"sync"
	"time"
)

// MessageKey адресует сообщение внутри треда.
type MessageKey struct {
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
}

// CooldownKey — пара команда/пользователь для учёта интервалов.
type CooldownKey struct {
	Command string
	UserID  string
}

// ReplyContextType — тип ожидаемого ответа на сообщение бота.
type ReplyContextType string

const (
	ReplyQuestion     ReplyContextType = "question"
	ReplyConfirmation ReplyContextType = "confirmation"
	ReplyInputRequest ReplyContextType = "input_request"
	ReplyPoll         ReplyContextType = "poll"
)

// ReplyContext описывает, чего бот ждёт в ответ на своё сообщение.
// Контексты типа poll по умолчанию переживают обработку ответа,
// остальные создатели обычно помечают OneShot.
type ReplyContext struct {
	Type      ReplyContextType
	CreatedAt time.Time
	OneShot   bool

	Prompt  string
	Options []string
	// Votes — голоса опроса: пользователь -> номер варианта (с единицы).
	Votes map[string]int

	// OnReply вызывается для question и валидного input_request.
	OnReply func(ctx *HandlerContext, body string) error
	// OnConfirm и OnCancel вызываются для confirmation.
	OnConfirm func(ctx *HandlerContext) error
	OnCancel  func(ctx *HandlerContext) error
	// Validator проверяет ввод для input_request.
	Validator    func(body string) bool
	ErrorMessage string

	Payload map[string]string
}

// ReactionTally — счётчик реакций на одно сообщение. Повторная реакция
// одного пользователя одним эмодзи не меняет счёт.
type ReactionTally struct {
	Key       MessageKey
	CreatedAt time.Time
	// users: эмодзи -> множество отреагировавших.
	users map[string]map[string]struct{}
	Total int
}

// Add регистрирует реакцию. Возвращает false, если такая уже учтена.
func (t *ReactionTally) Add(emoji, uid string) bool {
	if t.users == nil {
		t.users = make(map[string]map[string]struct{})
	}
	set := t.users[emoji]
	if set == nil {
		set = make(map[string]struct{})
		t.users[emoji] = set
	}
	if _, ok := set[uid]; ok {
		return false
	}
	set[uid] = struct{}{}
	t.Total++
	return true
}

// Remove снимает реакцию. Возвращает false, если её не было.
func (t *ReactionTally) Remove(emoji, uid string) bool {
	set := t.users[emoji]
	if set == nil {
		return false
	}
	if _, ok := set[uid]; !ok {
		return false
	}
	delete(set, uid)
	t.Total--
	return true
}

// Count возвращает суммарное число реакций перечисленными эмодзи.
func (t *ReactionTally) Count(emojis ...string) int {
	n := 0
	for _, e := range emojis {
		n += len(t.users[e])
	}
	return n
}

// PinnedMessage — сообщение, закреплённое реакцией администратора.
type PinnedMessage struct {
	Key      MessageKey
	PinnedBy string
	PinnedAt time.Time
}

// Analytics — счётчики событий по дням, часам и типам.
type Analytics struct {
	Daily      map[string]int `json:"daily"`
	Hourly     map[int]int    `json:"hourly"`
	EventTypes map[string]int `json:"event_types"`
}

// BotState — всё разделяемое изменяемое состояние бота: пользователи,
// треды, кулдауны, контексты ответов, реакции и служебные счётчики.
//
// Дисциплина блокировки: методы не берут мьютекс сами. Маршрутизатор
// держит Lock на время обработки одного события; фоновый сброс берёт
// Lock на время копирования.
type BotState struct {
	mu sync.Mutex

	users   map[string]*UserRecord
	threads map[string]*ThreadRecord

	cooldowns     map[CooldownKey]time.Time
	replyContexts map[MessageKey]*ReplyContext
	reactions     map[MessageKey]*ReactionTally

	pinned     map[MessageKey]PinnedMessage
	approvals  map[MessageKey]map[string]struct{}
	rejections map[MessageKey]map[string]struct{}

	firstSeen map[string]struct{}
	warnings  map[string]int

	analytics Analytics
}

// NewBotState создаёт пустое состояние.
func NewBotState() *BotState {
	return &BotState{
		users:         make(map[string]*UserRecord),
		threads:       make(map[string]*ThreadRecord),
		cooldowns:     make(map[CooldownKey]time.Time),
		replyContexts: make(map[MessageKey]*ReplyContext),
		reactions:     make(map[MessageKey]*ReactionTally),
		pinned:        make(map[MessageKey]PinnedMessage),
		approvals:     make(map[MessageKey]map[string]struct{}),
		rejections:    make(map[MessageKey]map[string]struct{}),
		firstSeen:     make(map[string]struct{}),
		warnings:      make(map[string]int),
		analytics: Analytics{
			Daily:      make(map[string]int),
			Hourly:     make(map[int]int),
			EventTypes: make(map[string]int),
		},
	}
}

// Lock захватывает состояние на время обработки одного события.
func (s *BotState) Lock() { s.mu.Lock() }

// Unlock освобождает состояние.
func (s *BotState) Unlock() { s.mu.Unlock() }

// Restore заменяет пользователей и треды данными из снапшота.
func (s *BotState) Restore(users map[string]*UserRecord, threads map[string]*ThreadRecord) {
	if users != nil {
		s.users = users
	}
	if threads != nil {
		s.threads = threads
	}
}

// User возвращает запись пользователя, если она есть.
func (s *BotState) User(uid string) (*UserRecord, bool) {
	u, ok := s.users[uid]
	return u, ok
}

// EnsureUser возвращает запись пользователя, создавая её при первом обращении.
func (s *BotState) EnsureUser(uid string, now time.Time) *UserRecord {
	if u, ok := s.users[uid]; ok {
		return u
	}
	u := &UserRecord{
		UID:      uid,
		XP:       0,
		Level:    1,
		JoinedAt: now,
	}
	s.users[uid] = u
	return u
}

// DeleteUser удаляет запись пользователя.
func (s *BotState) DeleteUser(uid string) { delete(s.users, uid) }

// UserCount возвращает число известных пользователей.
func (s *BotState) UserCount() int { return len(s.users) }

// ForEachUser вызывает fn для каждой записи пользователя.
func (s *BotState) ForEachUser(fn func(*UserRecord)) {
	for _, u := range s.users {
		fn(u)
	}
}

// Thread возвращает запись треда, если она есть.
func (s *BotState) Thread(threadID string) (*ThreadRecord, bool) {
	t, ok := s.threads[threadID]
	return t, ok
}

// EnsureThread возвращает запись треда, создавая её при первом обращении.
// Новые треды получают включённые приветствия и уведомления.
func (s *BotState) EnsureThread(threadID string, now time.Time) *ThreadRecord {
	if t, ok := s.threads[threadID]; ok {
		return t
	}
	t := &ThreadRecord{
		ThreadID:  threadID,
		CreatedAt: now,
		Settings: ThreadSettings{
			WelcomeMessage:     true,
			GoodbyeMessage:     true,
			EventNotifications: true,
			AdminAlerts:        true,
		},
	}
	s.threads[threadID] = t
	return t
}

// ForEachThread вызывает fn для каждой записи треда.
func (s *BotState) ForEachThread(fn func(*ThreadRecord)) {
	for _, t := range s.threads {
		fn(t)
	}
}

// UsersSnapshot возвращает глубокую копию карты пользователей.
func (s *BotState) UsersSnapshot() map[string]*UserRecord {
	out := make(map[string]*UserRecord, len(s.users))
	for uid, u := range s.users {
		cp := *u
		out[uid] = &cp
	}
	return out
}

// ThreadsSnapshot возвращает глубокую копию карты тредов.
func (s *BotState) ThreadsSnapshot() map[string]*ThreadRecord {
	out := make(map[string]*ThreadRecord, len(s.threads))
	for id, t := range s.threads {
		cp := *t
		out[id] = &cp
	}
	return out
}

// CooldownRemaining возвращает, сколько секунд осталось до разрешения
// повторного вызова. Ноль или меньше — вызов разрешён.
func (s *BotState) CooldownRemaining(command, uid string, seconds int, now time.Time) float64 {
	if seconds <= 0 {
		return 0
	}
	last, ok := s.cooldowns[CooldownKey{Command: command, UserID: uid}]
	if !ok {
		return 0
	}
	return float64(seconds) - now.Sub(last).Seconds()
}

// TouchCooldown отмечает момент вызова команды пользователем.
func (s *BotState) TouchCooldown(command, uid string, now time.Time) {
	s.cooldowns[CooldownKey{Command: command, UserID: uid}] = now
}

// SetReplyContext регистрирует ожидание ответа на сообщение бота.
func (s *BotState) SetReplyContext(key MessageKey, rc *ReplyContext) {
	s.replyContexts[key] = rc
}

// ReplyContext возвращает контекст ответа для сообщения, если он есть.
func (s *BotState) ReplyContext(key MessageKey) (*ReplyContext, bool) {
	rc, ok := s.replyContexts[key]
	return rc, ok
}

// DeleteReplyContext снимает ожидание ответа.
func (s *BotState) DeleteReplyContext(key MessageKey) {
	delete(s.replyContexts, key)
}

// Tally возвращает счётчик реакций сообщения, создавая его при необходимости.
func (s *BotState) Tally(key MessageKey, now time.Time) *ReactionTally {
	if t, ok := s.reactions[key]; ok {
		return t
	}
	t := &ReactionTally{Key: key, CreatedAt: now}
	s.reactions[key] = t
	return t
}

// Pin закрепляет сообщение.
func (s *BotState) Pin(key MessageKey, by string, now time.Time) {
	s.pinned[key] = PinnedMessage{Key: key, PinnedBy: by, PinnedAt: now}
}

// PinnedCount возвращает число закреплённых сообщений.
func (s *BotState) PinnedCount() int { return len(s.pinned) }

// Approve отмечает одобрение сообщения пользователем.
func (s *BotState) Approve(key MessageKey, uid string) {
	set := s.approvals[key]
	if set == nil {
		set = make(map[string]struct{})
		s.approvals[key] = set
	}
	set[uid] = struct{}{}
}

// Reject отмечает отклонение сообщения пользователем.
func (s *BotState) Reject(key MessageKey, uid string) {
	set := s.rejections[key]
	if set == nil {
		set = make(map[string]struct{})
		s.rejections[key] = set
	}
	set[uid] = struct{}{}
}

// Approvals возвращает число одобрений сообщения.
func (s *BotState) Approvals(key MessageKey) int { return len(s.approvals[key]) }

// Rejections возвращает число отклонений сообщения.
func (s *BotState) Rejections(key MessageKey) int { return len(s.rejections[key]) }

// MarkSeen отмечает, что пользователь уже писал в треде.
func (s *BotState) MarkSeen(threadID, uid string) {
	s.firstSeen[threadID+"_"+uid] = struct{}{}
}

// Seen сообщает, писал ли пользователь в треде раньше.
func (s *BotState) Seen(threadID, uid string) bool {
	_, ok := s.firstSeen[threadID+"_"+uid]
	return ok
}

// AddWarning увеличивает счётчик предупреждений пользователя в треде
// и возвращает новое значение.
func (s *BotState) AddWarning(threadID, uid string) int {
	k := threadID + "_" + uid
	s.warnings[k]++
	return s.warnings[k]
}

// BumpAnalytics учитывает событие в дневных, часовых и типовых счётчиках.
func (s *BotState) BumpAnalytics(ev EventType, now time.Time) {
	s.analytics.Daily[now.Format("2006-01-02")]++
	s.analytics.Hourly[now.Hour()]++
	s.analytics.EventTypes[string(ev)]++
}

// AnalyticsSnapshot возвращает копию счётчиков аналитики.
func (s *BotState) AnalyticsSnapshot() Analytics {
	out := Analytics{
		Daily:      make(map[string]int, len(s.analytics.Daily)),
		Hourly:     make(map[int]int, len(s.analytics.Hourly)),
		EventTypes: make(map[string]int, len(s.analytics.EventTypes)),
	}
	for k, v := range s.analytics.Daily {
		out.Daily[k] = v
	}
	for k, v := range s.analytics.Hourly {
		out.Hourly[k] = v
	}
	for k, v := range s.analytics.EventTypes {
		out.EventTypes[k] = v
	}
	return out
}

// Sweep выбрасывает кулдауны, контексты ответов и счётчики реакций
// старше maxAge. Возвращает число удалённых записей.
func (s *BotState) Sweep(maxAge time.Duration, now time.Time) int {
	removed := 0
	for k, at := range s.cooldowns {
		if now.Sub(at) > maxAge {
			delete(s.cooldowns, k)
			removed++
		}
	}
	for k, rc := range s.replyContexts {
		if now.Sub(rc.CreatedAt) > maxAge {
			delete(s.replyContexts, k)
			removed++
		}
	}
	for k, t := range s.reactions {
		if now.Sub(t.CreatedAt) > maxAge {
			delete(s.reactions, k)
			delete(s.approvals, k)
			delete(s.rejections, k)
			removed++
		}
	}
	return removed
}
