package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"neobot/internal/adapters/repo"
	"neobot/internal/domain"
	"neobot/internal/infra/cache"
	"neobot/internal/infra/config"
	"neobot/internal/infra/db"
	applog "neobot/internal/infra/log"
	"neobot/internal/infra/metrics"
	"neobot/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	if cfg.PGDSN == "" {
		logger.Fatal().Msg("collector: не указан PG_DSN")
	}
	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("collector: нет подключения к БД")
	}
	defer pool.Close()
	storage := repo.NewPostgres(pool)

	var (
		auditQueue domain.AuditQueue
		dedupe     domain.Cache
	)
	switch {
	case cfg.Rabbit.AMQPURL != "":
		auditQueue, err = queue.NewRabbitAuditQueue(cfg.Rabbit.AMQPURL, cfg.Rabbit.ManagementURL, cfg.Queues.Audit)
		if err != nil {
			logger.Fatal().Err(err).Msg("collector: не удалось инициализировать очередь RabbitMQ")
		}
	case cfg.RedisAddr != "":
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		auditQueue = queue.NewRedisAuditQueue(redisClient, cfg.Queues.Audit)
		dedupe = cache.NewRedis(redisClient)
	default:
		logger.Fatal().Msg("collector: не настроена очередь (RABBITMQ_URL или REDIS_ADDR)")
	}

	logger.Info().Msg("collector: запуск")
	run(ctx, logger, auditQueue, dedupe, storage)
	logger.Info().Msg("collector: остановлен")
}

// run крутит цикл: записи аудита из очереди складываются в журнал панели
// и накапливают дневную статистику.
func run(ctx context.Context, logger zerolog.Logger, q domain.AuditQueue, dedupe domain.Cache, storage domain.DashboardRepo) {
	for {
		entry, err := q.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("collector: не удалось прочитать очередь")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if dedupe != nil && entry.ID != "" {
			first, err := dedupe.Once(ctx, "audit:"+entry.ID, 24*time.Hour)
			if err != nil {
				logger.Warn().Err(err).Msg("collector: кэш дедупликации недоступен")
			} else if !first {
				logger.Debug().Str("id", entry.ID).Msg("collector: повторная запись пропущена")
				continue
			}
		}

		if _, err := storage.InsertCommandLog(ctx, domain.CommandLogRecord{
			Command:  entry.Command,
			UserID:   entry.UserID,
			ThreadID: entry.ThreadID,
			Success:  entry.Success,
			Error:    entry.Error,
			At:       entry.At,
		}); err != nil {
			logger.Error().Err(err).Str("command", entry.Command).Msg("collector: не удалось сохранить запись")
			continue
		}
		if err := storage.BumpCommandUsage(ctx, entry.Command); err != nil {
			logger.Warn().Err(err).Str("command", entry.Command).Msg("collector: не удалось обновить счётчик")
		}
		date := entry.At.UTC().Format("2006-01-02")
		if err := storage.BumpStats(ctx, date, domain.BotStats{CommandsUsed: 1}); err != nil {
			logger.Warn().Err(err).Msg("collector: не удалось обновить статистику")
		}
		metrics.AuditStored.Inc()
	}
}
