package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound возвращается хранилищами, когда запись отсутствует.
var ErrNotFound = errors.New("запись не найдена")

// MessageRef — ссылка на отправленное сообщение.
type MessageRef struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

// ThreadInfo — сведения о треде, полученные от платформы.
type ThreadInfo struct {
	ThreadID       string   `json:"thread_id"`
	Name           string   `json:"name"`
	IsGroup        bool     `json:"is_group"`
	AdminIDs       []string `json:"admin_ids"`
	ParticipantIDs []string `json:"participant_ids"`
}

// UserInfo — сведения о пользователе, полученные от платформы.
type UserInfo struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ClientAPI — клиент неофициального API платформы.
type ClientAPI interface {
	// SendMessage отправляет текст в тред. replyTo — необязательный
	// идентификатор сообщения, на которое отвечает бот.
	SendMessage(ctx context.Context, text, threadID, replyTo string) (MessageRef, error)
	// UnsendMessage удаляет сообщение бота или, при правах, чужое.
	UnsendMessage(ctx context.Context, threadID, messageID string) error
	GetThreadInfo(ctx context.Context, threadID string) (ThreadInfo, error)
	GetUserInfo(ctx context.Context, uids ...string) (map[string]UserInfo, error)
	// CurrentUserID возвращает идентификатор учётной записи бота.
	CurrentUserID() string
}

// SnapshotStore — периодическое сохранение состояния на диск.
type SnapshotStore interface {
	SaveUsers(users map[string]*UserRecord) error
	SaveThreads(threads map[string]*ThreadRecord) error
	LoadUsers() (map[string]*UserRecord, error)
	LoadThreads() (map[string]*ThreadRecord, error)
}

// AuditQueue — очередь записей об исполнении команд между ботом
// и коллектором.
type AuditQueue interface {
	Publish(ctx context.Context, e AuditEntry) error
	// Pop блокируется до появления записи или отмены контекста.
	Pop(ctx context.Context) (AuditEntry, error)
}

// Cache — кэш с дедупликацией по ключу.
type Cache interface {
	// Once возвращает true, если ключ установлен впервые.
	Once(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}
