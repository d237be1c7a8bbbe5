package state

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"neobot/internal/domain"
	"neobot/internal/infra/metrics"
)

// Sweeper выбрасывает устаревшие записи. Реализуется гейтом.
// Вызывается из горутины флашера, реализация синхронизируется сама.
type Sweeper interface {
	Sweep(maxAge time.Duration) int
}

// Flusher периодически сохраняет пользователей и треды на диск и
// выметает устаревшие кулдауны, контексты и счётчики.
type Flusher struct {
	log      zerolog.Logger
	st       *domain.BotState
	store    domain.SnapshotStore
	sweepers []Sweeper

	interval time.Duration
	sweepAge time.Duration
}

// NewFlusher создаёт сброс состояния с заданным интервалом.
func NewFlusher(logger zerolog.Logger, st *domain.BotState, store domain.SnapshotStore, interval, sweepAge time.Duration, sweepers ...Sweeper) *Flusher {
	if interval <= 0 {
		interval = time.Minute
	}
	if sweepAge <= 0 {
		sweepAge = 24 * time.Hour
	}
	return &Flusher{
		log:      logger,
		st:       st,
		store:    store,
		sweepers: sweepers,
		interval: interval,
		sweepAge: sweepAge,
	}
}

// Run крутит цикл сброса до отмены контекста, затем делает финальный сброс.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			f.Flush()
			f.log.Info().Msg("флашер: финальный сброс выполнен")
			return
		case <-ticker.C:
			f.Flush()
			f.sweep()
		}
	}
}

// Flush сохраняет копию состояния. Состояние захватывается только на
// время копирования, не на время записи на диск.
func (f *Flusher) Flush() {
	start := time.Now()

	f.st.Lock()
	users := f.st.UsersSnapshot()
	threads := f.st.ThreadsSnapshot()
	f.st.Unlock()

	if err := f.store.SaveUsers(users); err != nil {
		f.log.Error().Err(err).Msg("флашер: не удалось сохранить пользователей")
	}
	if err := f.store.SaveThreads(threads); err != nil {
		f.log.Error().Err(err).Msg("флашер: не удалось сохранить треды")
	}
	metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	f.log.Debug().Int("users", len(users)).Int("threads", len(threads)).Msg("флашер: состояние сохранено")
}

func (f *Flusher) sweep() {
	now := time.Now()

	f.st.Lock()
	removed := f.st.Sweep(f.sweepAge, now)
	f.st.Unlock()

	for _, s := range f.sweepers {
		removed += s.Sweep(f.sweepAge)
	}
	if removed > 0 {
		metrics.SweepRemoved.Add(float64(removed))
		f.log.Debug().Int("removed", removed).Msg("флашер: очистка состояния")
	}
}

// Bootstrap восстанавливает состояние из снапшота. Отсутствие файлов —
// не ошибка: бот стартует с пустым состоянием.
func Bootstrap(logger zerolog.Logger, st *domain.BotState, store domain.SnapshotStore) {
	users, err := store.LoadUsers()
	if err != nil {
		logger.Warn().Err(err).Msg("состояние: не удалось загрузить пользователей")
	}
	threads, err := store.LoadThreads()
	if err != nil {
		logger.Warn().Err(err).Msg("состояние: не удалось загрузить треды")
	}

	st.Lock()
	st.Restore(users, threads)
	st.Unlock()

	logger.Info().Int("users", len(users)).Int("threads", len(threads)).Msg("состояние: загружено из снапшота")
}
