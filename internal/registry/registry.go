package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"neobot/internal/domain"
)

// CommandBuilder собирает одну команду. Ошибка сборки не прерывает
// загрузку остальных.
type CommandBuilder func() (*domain.Command, error)

// Registry хранит загруженные команды и обработчики событий.
// Набор собирается из статической таблицы при старте; Reload заменяет
// его атомарно.
type Registry struct {
	log zerolog.Logger

	mu       sync.RWMutex
	commands map[string]*domain.Command
	events   map[string]domain.EventHandler
	skipped  int
}

// New создаёт пустой реестр.
func New(logger zerolog.Logger) *Registry {
	return &Registry{
		log:      logger,
		commands: make(map[string]*domain.Command),
		events:   make(map[string]domain.EventHandler),
	}
}

// LoadCommands собирает команды из builders. Неполные декларации и ошибки
// сборки пропускаются с предупреждением. Возвращает число загруженных.
func (r *Registry) LoadCommands(builders []CommandBuilder) int {
	loaded := make(map[string]*domain.Command, len(builders))
	skipped := 0
	for _, build := range builders {
		cmd, err := safeBuild(build)
		if err != nil {
			r.log.Warn().Err(err).Msg("реестр: команда не загружена")
			skipped++
			continue
		}
		if cmd == nil || cmd.Name == "" || cmd.Execute == nil {
			r.log.Warn().Str("command", commandName(cmd)).Msg("реестр: декларация без имени или исполнителя пропущена")
			skipped++
			continue
		}
		if existing := lookupFold(loaded, cmd.Name); existing != "" {
			r.log.Warn().Str("command", cmd.Name).Str("existing", existing).Msg("реестр: дубликат имени команды пропущен")
			skipped++
			continue
		}
		loaded[cmd.Name] = cmd
	}

	r.mu.Lock()
	r.commands = loaded
	r.skipped = skipped
	r.mu.Unlock()

	r.log.Info().Int("loaded", len(loaded)).Int("skipped", skipped).Msg("реестр: команды загружены")
	return len(loaded)
}

// LoadEvents регистрирует обработчики событий по именам.
func (r *Registry) LoadEvents(handlers map[string]domain.EventHandler) int {
	loaded := make(map[string]domain.EventHandler, len(handlers))
	for name, h := range handlers {
		if name == "" || h == nil {
			r.log.Warn().Str("handler", name).Msg("реестр: обработчик без имени или функции пропущен")
			continue
		}
		loaded[name] = h
	}

	r.mu.Lock()
	r.events = loaded
	r.mu.Unlock()

	r.log.Info().Int("loaded", len(loaded)).Msg("реестр: обработчики событий загружены")
	return len(loaded)
}

// Reload пересобирает команды из той же таблицы. Старый набор остаётся
// действующим до завершения загрузки.
func (r *Registry) Reload(builders []CommandBuilder) int {
	return r.LoadCommands(builders)
}

// Command возвращает команду по имени без учёта регистра: реестр хранит
// имя в объявленном виде, нормализация происходит при поиске.
func (r *Registry) Command(name string) (*domain.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return cmd, true
	}
	if k := lookupFold(r.commands, name); k != "" {
		return r.commands[k], true
	}
	return nil, false
}

// Commands возвращает действующую карту команд.
func (r *Registry) Commands() map[string]*domain.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands
}

// Event возвращает обработчик события по имени.
func (r *Registry) Event(name string) (domain.EventHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.events[name]
	return h, ok
}

// Skipped возвращает число пропущенных при последней загрузке деклараций.
func (r *Registry) Skipped() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skipped
}

func safeBuild(build CommandBuilder) (cmd *domain.Command, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic при сборке команды: %v", rec)
		}
	}()
	return build()
}

func lookupFold(m map[string]*domain.Command, name string) string {
	for k := range m {
		if strings.EqualFold(k, name) {
			return k
		}
	}
	return ""
}

func commandName(cmd *domain.Command) string {
	if cmd == nil {
		return ""
	}
	return cmd.Name
}
