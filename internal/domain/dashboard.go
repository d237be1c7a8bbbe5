package domain

import (
	"context"
	"time"
)

// CommandMeta — метаданные команды для панели управления.
type CommandMeta struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Usage       string    `json:"usage"`
	Category    string    `json:"category"`
	Cooldown    int       `json:"cooldown"`
	Role        Role      `json:"role"`
	Enabled     bool      `json:"enabled"`
	UsageCount  int       `json:"usage_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommandLogRecord — строка журнала исполнения команд.
type CommandLogRecord struct {
	ID       int64     `json:"id"`
	Command  string    `json:"command"`
	UserID   string    `json:"user_id"`
	ThreadID string    `json:"thread_id"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// BotStats — агрегированная статистика бота за день.
type BotStats struct {
	Date              string `json:"date"`
	TotalUsers        int    `json:"total_users"`
	ActiveThreads     int    `json:"active_threads"`
	CommandsUsed      int    `json:"commands_used"`
	MessagesProcessed int    `json:"messages_processed"`
}

// DashboardRepo — хранилище панели управления.
type DashboardRepo interface {
	ListUsers(ctx context.Context) ([]UserRecord, error)
	GetUser(ctx context.Context, uid string) (UserRecord, error)
	SaveUser(ctx context.Context, u UserRecord) (UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error

	ListThreads(ctx context.Context) ([]ThreadRecord, error)
	GetThread(ctx context.Context, threadID string) (ThreadRecord, error)
	SaveThread(ctx context.Context, t ThreadRecord) (ThreadRecord, error)
	DeleteThread(ctx context.Context, threadID string) error

	ListCommands(ctx context.Context) ([]CommandMeta, error)
	GetCommand(ctx context.Context, name string) (CommandMeta, error)
	SaveCommand(ctx context.Context, c CommandMeta) (CommandMeta, error)
	DeleteCommand(ctx context.Context, name string) error

	// ListCommandLogs возвращает не более limit последних записей,
	// новые первыми.
	ListCommandLogs(ctx context.Context, limit int) ([]CommandLogRecord, error)
	InsertCommandLog(ctx context.Context, l CommandLogRecord) (CommandLogRecord, error)
	BumpCommandUsage(ctx context.Context, name string) error

	GetStats(ctx context.Context, date string) (BotStats, error)
	BumpStats(ctx context.Context, date string, delta BotStats) error
}
