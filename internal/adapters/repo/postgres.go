package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"neobot/internal/domain"
	"neobot/internal/infra/metrics"
)

// Postgres реализует domain.DashboardRepo на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.DashboardRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const userColumns = `uid, name, nickname, avatar, xp, level, message_count, activity_score,
joined_at, last_active, left_at, banned, ban_reason, banned_by, ban_date,
language, birthday, relationship, verified`

func scanUser(row pgx.Row) (domain.UserRecord, error) {
	var u domain.UserRecord
	err := row.Scan(
		&u.UID, &u.Name, &u.Nickname, &u.Avatar, &u.XP, &u.Level, &u.MessageCount, &u.ActivityScore,
		&u.JoinedAt, &u.LastActive, &u.LeftAt, &u.Banned, &u.BanReason, &u.BannedBy, &u.BanDate,
		&u.Language, &u.Birthday, &u.Relationship, &u.Verified,
	)
	return u, err
}

// ListUsers возвращает всех пользователей панели.
func (p *Postgres) ListUsers(ctx context.Context) ([]domain.UserRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+userColumns+` FROM bot_users ORDER BY xp DESC`)
	metrics.ObserveNetworkRequest("postgres", "users_list", "bot_users", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetUser возвращает пользователя по идентификатору.
func (p *Postgres) GetUser(ctx context.Context, uid string) (domain.UserRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	u, err := scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM bot_users WHERE uid = $1`, uid))
	metrics.ObserveNetworkRequest("postgres", "users_get", "bot_users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserRecord{}, domain.ErrNotFound
	}
	return u, err
}

// SaveUser вставляет или обновляет пользователя.
func (p *Postgres) SaveUser(ctx context.Context, u domain.UserRecord) (domain.UserRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now().UTC()
	}
	if u.Level == 0 {
		u.Level = domain.LevelForXP(u.XP, 0)
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO bot_users (`+userColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (uid) DO UPDATE SET
  name = EXCLUDED.name, nickname = EXCLUDED.nickname, avatar = EXCLUDED.avatar,
  xp = EXCLUDED.xp, level = EXCLUDED.level, message_count = EXCLUDED.message_count,
  activity_score = EXCLUDED.activity_score, last_active = EXCLUDED.last_active,
  left_at = EXCLUDED.left_at, banned = EXCLUDED.banned, ban_reason = EXCLUDED.ban_reason,
  banned_by = EXCLUDED.banned_by, ban_date = EXCLUDED.ban_date, language = EXCLUDED.language,
  birthday = EXCLUDED.birthday, relationship = EXCLUDED.relationship, verified = EXCLUDED.verified
`, u.UID, u.Name, u.Nickname, u.Avatar, u.XP, u.Level, u.MessageCount, u.ActivityScore,
		u.JoinedAt, u.LastActive, u.LeftAt, u.Banned, u.BanReason, u.BannedBy, u.BanDate,
		u.Language, u.Birthday, u.Relationship, u.Verified)
	metrics.ObserveNetworkRequest("postgres", "users_save", "bot_users", start, err)
	return u, err
}

// DeleteUser удаляет пользователя.
func (p *Postgres) DeleteUser(ctx context.Context, uid string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM bot_users WHERE uid = $1`, uid)
	metrics.ObserveNetworkRequest("postgres", "users_delete", "bot_users", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const threadColumns = `thread_id, name, emoji, member_count, message_count, activity_score,
banned, created_at, last_activity, settings`

func scanThread(row pgx.Row) (domain.ThreadRecord, error) {
	var t domain.ThreadRecord
	var settings []byte
	err := row.Scan(
		&t.ThreadID, &t.Name, &t.Emoji, &t.MemberCount, &t.MessageCount, &t.ActivityScore,
		&t.Banned, &t.CreatedAt, &t.LastActivity, &settings,
	)
	if err != nil {
		return domain.ThreadRecord{}, err
	}
	if len(settings) > 0 {
		if uerr := json.Unmarshal(settings, &t.Settings); uerr != nil {
			return domain.ThreadRecord{}, uerr
		}
	}
	return t, nil
}

// ListThreads возвращает все треды панели.
func (p *Postgres) ListThreads(ctx context.Context) ([]domain.ThreadRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+threadColumns+` FROM threads ORDER BY last_activity DESC`)
	metrics.ObserveNetworkRequest("postgres", "threads_list", "threads", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ThreadRecord
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetThread возвращает тред по идентификатору.
func (p *Postgres) GetThread(ctx context.Context, threadID string) (domain.ThreadRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	t, err := scanThread(p.pool.QueryRow(ctx, `SELECT `+threadColumns+` FROM threads WHERE thread_id = $1`, threadID))
	metrics.ObserveNetworkRequest("postgres", "threads_get", "threads", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ThreadRecord{}, domain.ErrNotFound
	}
	return t, err
}

// SaveThread вставляет или обновляет тред.
func (p *Postgres) SaveThread(ctx context.Context, t domain.ThreadRecord) (domain.ThreadRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return domain.ThreadRecord{}, err
	}

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO threads (`+threadColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (thread_id) DO UPDATE SET
  name = EXCLUDED.name, emoji = EXCLUDED.emoji, member_count = EXCLUDED.member_count,
  message_count = EXCLUDED.message_count, activity_score = EXCLUDED.activity_score,
  banned = EXCLUDED.banned, last_activity = EXCLUDED.last_activity, settings = EXCLUDED.settings
`, t.ThreadID, t.Name, t.Emoji, t.MemberCount, t.MessageCount, t.ActivityScore,
		t.Banned, t.CreatedAt, t.LastActivity, settings)
	metrics.ObserveNetworkRequest("postgres", "threads_save", "threads", start, err)
	return t, err
}

// DeleteThread удаляет тред.
func (p *Postgres) DeleteThread(ctx context.Context, threadID string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM threads WHERE thread_id = $1`, threadID)
	metrics.ObserveNetworkRequest("postgres", "threads_delete", "threads", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const commandColumns = `name, description, usage, category, cooldown, role, enabled, usage_count, updated_at`

func scanCommand(row pgx.Row) (domain.CommandMeta, error) {
	var c domain.CommandMeta
	err := row.Scan(&c.Name, &c.Description, &c.Usage, &c.Category, &c.Cooldown, &c.Role, &c.Enabled, &c.UsageCount, &c.UpdatedAt)
	return c, err
}

// ListCommands возвращает метаданные всех команд.
func (p *Postgres) ListCommands(ctx context.Context) ([]domain.CommandMeta, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+commandColumns+` FROM commands ORDER BY name`)
	metrics.ObserveNetworkRequest("postgres", "commands_list", "commands", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CommandMeta
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCommand возвращает метаданные команды по имени.
func (p *Postgres) GetCommand(ctx context.Context, name string) (domain.CommandMeta, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	c, err := scanCommand(p.pool.QueryRow(ctx, `SELECT `+commandColumns+` FROM commands WHERE name = $1`, name))
	metrics.ObserveNetworkRequest("postgres", "commands_get", "commands", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CommandMeta{}, domain.ErrNotFound
	}
	return c, err
}

// SaveCommand вставляет или обновляет метаданные команды.
func (p *Postgres) SaveCommand(ctx context.Context, c domain.CommandMeta) (domain.CommandMeta, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	c.UpdatedAt = time.Now().UTC()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO commands (`+commandColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (name) DO UPDATE SET
  description = EXCLUDED.description, usage = EXCLUDED.usage, category = EXCLUDED.category,
  cooldown = EXCLUDED.cooldown, role = EXCLUDED.role, enabled = EXCLUDED.enabled,
  updated_at = EXCLUDED.updated_at
`, c.Name, c.Description, c.Usage, c.Category, c.Cooldown, c.Role, c.Enabled, c.UsageCount, c.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "commands_save", "commands", start, err)
	return c, err
}

// DeleteCommand удаляет метаданные команды.
func (p *Postgres) DeleteCommand(ctx context.Context, name string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM commands WHERE name = $1`, name)
	metrics.ObserveNetworkRequest("postgres", "commands_delete", "commands", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListCommandLogs возвращает последние записи журнала, новые первыми.
func (p *Postgres) ListCommandLogs(ctx context.Context, limit int) ([]domain.CommandLogRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, command, user_id, thread_id, success, error, at
FROM command_logs ORDER BY at DESC LIMIT $1`, limit)
	metrics.ObserveNetworkRequest("postgres", "command_logs_list", "command_logs", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CommandLogRecord
	for rows.Next() {
		var l domain.CommandLogRecord
		if err := rows.Scan(&l.ID, &l.Command, &l.UserID, &l.ThreadID, &l.Success, &l.Error, &l.At); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertCommandLog добавляет запись в журнал исполнения команд.
func (p *Postgres) InsertCommandLog(ctx context.Context, l domain.CommandLogRecord) (domain.CommandLogRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if l.At.IsZero() {
		l.At = time.Now().UTC()
	}
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO command_logs (command, user_id, thread_id, success, error, at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		l.Command, l.UserID, l.ThreadID, l.Success, l.Error, l.At).Scan(&l.ID)
	metrics.ObserveNetworkRequest("postgres", "command_logs_insert", "command_logs", start, err)
	return l, err
}

// BumpCommandUsage увеличивает счётчик использования команды.
func (p *Postgres) BumpCommandUsage(ctx context.Context, name string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE commands SET usage_count = usage_count + 1 WHERE name = $1`, name)
	metrics.ObserveNetworkRequest("postgres", "commands_bump", "commands", start, err)
	return err
}

// GetStats возвращает статистику за день.
func (p *Postgres) GetStats(ctx context.Context, date string) (domain.BotStats, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	var s domain.BotStats
	err := p.pool.QueryRow(ctx, `
SELECT date, total_users, active_threads, commands_used, messages_processed
FROM bot_stats WHERE date = $1`, date).
		Scan(&s.Date, &s.TotalUsers, &s.ActiveThreads, &s.CommandsUsed, &s.MessagesProcessed)
	metrics.ObserveNetworkRequest("postgres", "stats_get", "bot_stats", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BotStats{Date: date}, nil
	}
	return s, err
}

// BumpStats накапливает дневную статистику.
func (p *Postgres) BumpStats(ctx context.Context, date string, delta domain.BotStats) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO bot_stats (date, total_users, active_threads, commands_used, messages_processed)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (date) DO UPDATE SET
  total_users = GREATEST(bot_stats.total_users, EXCLUDED.total_users),
  active_threads = GREATEST(bot_stats.active_threads, EXCLUDED.active_threads),
  commands_used = bot_stats.commands_used + EXCLUDED.commands_used,
  messages_processed = bot_stats.messages_processed + EXCLUDED.messages_processed
`, date, delta.TotalUsers, delta.ActiveThreads, delta.CommandsUsed, delta.MessagesProcessed)
	metrics.ObserveNetworkRequest("postgres", "stats_bump", "bot_stats", start, err)
	return err
}
