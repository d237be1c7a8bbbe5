package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_events_total",
		Help: "Количество входящих событий по типам",
	}, []string{"type"})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_total",
		Help: "Количество вызовов команд по результатам",
	}, []string{"command", "result"})

	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bot_command_duration_seconds",
		Help:    "Время выполнения команды",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_handler_errors_total",
		Help: "Ошибки обработчиков событий",
	})

	SendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	SnapshotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_snapshot_duration_seconds",
		Help:    "Время сохранения снапшота состояния",
		Buckets: prometheus.DefBuckets,
	})

	SweepRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_sweep_removed_total",
		Help: "Записи, выброшенные из состояния при очистке",
	})

	AuditPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_published_total",
		Help: "Опубликованные записи аудита",
	})

	AuditStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_stored_total",
		Help: "Сохранённые коллектором записи аудита",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		EventsTotal,
		CommandsTotal,
		CommandDuration,
		HandlerErrors,
		SendErrors,
		SnapshotDuration,
		SweepRemoved,
		AuditPublished,
		AuditStored,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveCommand записывает результат и длительность вызова команды.
func ObserveCommand(command, result string, start time.Time) {
	if command == "" {
		command = "unknown"
	}
	CommandsTotal.WithLabelValues(command, result).Inc()
	CommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}
