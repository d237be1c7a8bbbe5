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
	goredis "github.com/redis/go-redis/v9"

	"neobot/internal/adapters/chatapi"
	"neobot/internal/adapters/snapshot"
	"neobot/internal/commands"
	"neobot/internal/dispatch"
	"neobot/internal/domain"
	"neobot/internal/gate"
	"neobot/internal/infra/cache"
	"neobot/internal/infra/config"
	httpinfra "neobot/internal/infra/http"
	applog "neobot/internal/infra/log"
	"neobot/internal/infra/metrics"
	"neobot/internal/infra/openai"
	"neobot/internal/infra/queue"
	"neobot/internal/registry"
	"neobot/internal/router"
	"neobot/internal/state"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	botCfg := cfg.BotConfig()

	store, err := snapshot.NewFileStore(cfg.Snapshot.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: не удалось открыть каталог снапшотов")
	}
	st := domain.NewBotState()
	state.Bootstrap(logger, st, store)

	var (
		botCache domain.Cache
		audit    domain.AuditQueue
	)
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		botCache = cache.NewRedis(redisClient)
		audit = queue.NewRedisAuditQueue(redisClient, cfg.Queues.Audit)
	}
	if cfg.Rabbit.AMQPURL != "" {
		rabbitQueue, err := queue.NewRabbitAuditQueue(cfg.Rabbit.AMQPURL, cfg.Rabbit.ManagementURL, cfg.Queues.Audit)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: не удалось инициализировать очередь RabbitMQ")
		}
		audit = rabbitQueue
	}
	if audit == nil {
		logger.Warn().Msg("bot: очередь аудита не настроена, записи не публикуются")
	}

	if cfg.Platform.WSURL == "" || cfg.Platform.APIBaseURL == "" {
		logger.Fatal().Msg("bot: не указаны адреса платформы (PLATFORM_WS_URL, PLATFORM_API_URL)")
	}
	client := chatapi.New(logger.With().Str("component", "chatapi").Logger(), chatapi.Config{
		WSURL:       cfg.Platform.WSURL,
		APIBaseURL:  cfg.Platform.APIBaseURL,
		Token:       cfg.Platform.Token,
		SelfID:      cfg.Platform.SelfID,
		CallTimeout: time.Duration(cfg.Platform.CallTimeout) * time.Second,
	})

	var ai *openai.Client
	if cfg.External.OpenAIKey != "" {
		ai = openai.NewClient(cfg.External.OpenAIKey, cfg.External.OpenAIModel, "", 30*time.Second)
	}

	reg := registry.New(logger.With().Str("component", "registry").Logger())
	reg.LoadCommands(commands.All(commands.Deps{
		Log:            logger.With().Str("component", "commands").Logger(),
		HTTP:           &http.Client{Timeout: 10 * time.Second},
		AI:             ai,
		OpenWeatherKey: cfg.External.OpenWeatherKey,
	}))

	g := gate.New(logger.With().Str("component", "gate").Logger(), botCfg, client)
	disp := dispatch.New(logger.With().Str("component", "dispatch").Logger(), botCfg, reg, g, client, audit)
	rt := router.New(logger.With().Str("component", "router").Logger(), botCfg, client, reg, g, disp, st, botCache)
	reg.LoadEvents(rt.BuiltinEvents())

	flusher := state.NewFlusher(
		logger.With().Str("component", "flusher").Logger(),
		st, store,
		time.Duration(cfg.Snapshot.IntervalSec)*time.Second,
		time.Duration(cfg.Snapshot.SweepAgeSec)*time.Second,
		g,
	)
	flusherDone := make(chan struct{})
	go func() {
		defer close(flusherDone)
		flusher.Run(ctx)
	}()

	srv := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	srv.Router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("bot: HTTP сервер остановлен")
		}
	}()

	logger.Info().Str("bot", botCfg.BotName).Str("version", botCfg.Version).Msg("bot: запуск")
	if err := client.Listen(ctx, func(ev domain.Event) {
		rt.Route(ctx, ev)
	}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("bot: поток событий завершился ошибкой")
	}

	stop()

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error().Err(err).Msg("bot: не удалось корректно остановить HTTP сервер")
	}

	<-flusherDone
	logger.Info().Msg("bot: остановлен")
}
