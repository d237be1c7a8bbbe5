package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"neobot/internal/adapters/repo"
	"neobot/internal/adapters/rest"
	"neobot/internal/domain"
	"neobot/internal/infra/config"
	"neobot/internal/infra/db"
	httpinfra "neobot/internal/infra/http"
	applog "neobot/internal/infra/log"
	"neobot/internal/infra/metrics"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var storage domain.DashboardRepo
	if cfg.PGDSN != "" {
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к БД")
		}
		defer pool.Close()
		storage = repo.NewPostgres(pool)
	} else {
		logger.Warn().Msg("api: PG_DSN не указан, хранилище в памяти")
		storage = repo.NewMemory()
	}

	srv := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	srv.Router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rest.New(logger.With().Str("component", "api").Logger(), storage).Mount(srv.Router)

	go func() {
		if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: получен сигнал остановки")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error().Err(err).Msg("api: не удалось корректно остановить сервер")
	}
}
