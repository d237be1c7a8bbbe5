package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"neobot/internal/domain"
)

// Memory реализует domain.DashboardRepo в памяти. Используется в тестах
// и при запуске без Postgres.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]domain.UserRecord
	threads  map[string]domain.ThreadRecord
	commands map[string]domain.CommandMeta
	logs     []domain.CommandLogRecord
	stats    map[string]domain.BotStats
	nextID   int64
}

var _ domain.DashboardRepo = (*Memory)(nil)

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]domain.UserRecord),
		threads:  make(map[string]domain.ThreadRecord),
		commands: make(map[string]domain.CommandMeta),
		stats:    make(map[string]domain.BotStats),
		nextID:   1,
	}
}

// ListUsers возвращает пользователей по убыванию опыта.
func (m *Memory) ListUsers(ctx context.Context) ([]domain.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.UserRecord, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].XP > out[j].XP })
	return out, nil
}

// GetUser возвращает пользователя по идентификатору.
func (m *Memory) GetUser(ctx context.Context, uid string) (domain.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[uid]
	if !ok {
		return domain.UserRecord{}, domain.ErrNotFound
	}
	return u, nil
}

// SaveUser вставляет или обновляет пользователя.
func (m *Memory) SaveUser(ctx context.Context, u domain.UserRecord) (domain.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now().UTC()
	}
	if u.Level == 0 {
		u.Level = domain.LevelForXP(u.XP, 0)
	}
	m.users[u.UID] = u
	return u, nil
}

// DeleteUser удаляет пользователя.
func (m *Memory) DeleteUser(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[uid]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, uid)
	return nil
}

// ListThreads возвращает треды по убыванию последней активности.
func (m *Memory) ListThreads(ctx context.Context) ([]domain.ThreadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ThreadRecord, 0, len(m.threads))
	for _, t := range m.threads {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

// GetThread возвращает тред по идентификатору.
func (m *Memory) GetThread(ctx context.Context, threadID string) (domain.ThreadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.threads[threadID]
	if !ok {
		return domain.ThreadRecord{}, domain.ErrNotFound
	}
	return t, nil
}

// SaveThread вставляет или обновляет тред.
func (m *Memory) SaveThread(ctx context.Context, t domain.ThreadRecord) (domain.ThreadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.threads[t.ThreadID] = t
	return t, nil
}

// DeleteThread удаляет тред.
func (m *Memory) DeleteThread(ctx context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.threads[threadID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.threads, threadID)
	return nil
}

// ListCommands возвращает метаданные команд по имени.
func (m *Memory) ListCommands(ctx context.Context) ([]domain.CommandMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CommandMeta, 0, len(m.commands))
	for _, c := range m.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetCommand возвращает метаданные команды.
func (m *Memory) GetCommand(ctx context.Context, name string) (domain.CommandMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commands[name]
	if !ok {
		return domain.CommandMeta{}, domain.ErrNotFound
	}
	return c, nil
}

// SaveCommand вставляет или обновляет метаданные команды.
func (m *Memory) SaveCommand(ctx context.Context, c domain.CommandMeta) (domain.CommandMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.UpdatedAt = time.Now().UTC()
	if existing, ok := m.commands[c.Name]; ok {
		c.UsageCount = existing.UsageCount
	}
	m.commands[c.Name] = c
	return c, nil
}

// DeleteCommand удаляет метаданные команды.
func (m *Memory) DeleteCommand(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commands[name]; !ok {
		return domain.ErrNotFound
	}
	delete(m.commands, name)
	return nil
}

// ListCommandLogs возвращает последние записи журнала, новые первыми.
func (m *Memory) ListCommandLogs(ctx context.Context, limit int) ([]domain.CommandLogRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	n := len(m.logs)
	if limit > n {
		limit = n
	}
	out := make([]domain.CommandLogRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

// InsertCommandLog добавляет запись в журнал.
func (m *Memory) InsertCommandLog(ctx context.Context, l domain.CommandLogRecord) (domain.CommandLogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.At.IsZero() {
		l.At = time.Now().UTC()
	}
	l.ID = m.nextID
	m.nextID++
	m.logs = append(m.logs, l)
	return l, nil
}

// BumpCommandUsage увеличивает счётчик использования команды.
func (m *Memory) BumpCommandUsage(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commands[name]
	if !ok {
		return nil
	}
	c.UsageCount++
	m.commands[name] = c
	return nil
}

// GetStats возвращает статистику за день.
func (m *Memory) GetStats(ctx context.Context, date string) (domain.BotStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[date]
	if !ok {
		return domain.BotStats{Date: date}, nil
	}
	return s, nil
}

// BumpStats накапливает дневную статистику.
func (m *Memory) BumpStats(ctx context.Context, date string, delta domain.BotStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats[date]
	s.Date = date
	if delta.TotalUsers > s.TotalUsers {
		s.TotalUsers = delta.TotalUsers
	}
	if delta.ActiveThreads > s.ActiveThreads {
		s.ActiveThreads = delta.ActiveThreads
	}
	s.CommandsUsed += delta.CommandsUsed
	s.MessagesProcessed += delta.MessagesProcessed
	m.stats[date] = s
	return nil
}
