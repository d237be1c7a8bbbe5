package domain

import "time"

// AuditEntry — запись об одном исполнении команды. Публикуется ботом
// в очередь и сохраняется коллектором.
type AuditEntry struct {
	ID       string    `json:"id"`
	Command  string    `json:"command"`
	UserID   string    `json:"user_id"`
	ThreadID string    `json:"thread_id"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}
