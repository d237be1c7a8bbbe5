package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"neobot/internal/domain"
)

const (
	usersFile   = "users.json"
	threadsFile = "threads.json"
)

// FileStore хранит снапшоты состояния в JSON-файлах каталога dir.
// Запись идёт во временный файл с последующим переименованием, чтобы
// обрыв процесса не портил предыдущий снапшот.
type FileStore struct {
	dir string
}

// NewFileStore создаёт хранилище и каталог при необходимости.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

type usersEnvelope struct {
	Users map[string]*domain.UserRecord `json:"users"`
}

type threadsEnvelope struct {
	Threads map[string]*domain.ThreadRecord `json:"threads"`
}

// SaveUsers сохраняет карту пользователей.
func (s *FileStore) SaveUsers(users map[string]*domain.UserRecord) error {
	return s.write(usersFile, usersEnvelope{Users: users})
}

// SaveThreads сохраняет карту тредов.
func (s *FileStore) SaveThreads(threads map[string]*domain.ThreadRecord) error {
	return s.write(threadsFile, threadsEnvelope{Threads: threads})
}

// LoadUsers читает карту пользователей. Отсутствующий файл даёт пустую карту.
func (s *FileStore) LoadUsers() (map[string]*domain.UserRecord, error) {
	var env usersEnvelope
	if err := s.read(usersFile, &env); err != nil {
		return map[string]*domain.UserRecord{}, err
	}
	if env.Users == nil {
		env.Users = map[string]*domain.UserRecord{}
	}
	return env.Users, nil
}

// LoadThreads читает карту тредов. Отсутствующий файл даёт пустую карту.
func (s *FileStore) LoadThreads() (map[string]*domain.ThreadRecord, error) {
	var env threadsEnvelope
	if err := s.read(threadsFile, &env); err != nil {
		return map[string]*domain.ThreadRecord{}, err
	}
	if env.Threads == nil {
		env.Threads = map[string]*domain.ThreadRecord{}
	}
	return env.Threads, nil
}

func (s *FileStore) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return nil
}
