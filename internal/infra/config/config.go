package config

import (
	"log"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"neobot/internal/domain"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Amsterdam"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Bot struct {
		Name      string `envconfig:"BOT_NAME" default:"NeoBot"`
		Version   string `envconfig:"BOT_VERSION" default:"1.0.0"`
		Prefix    string `envconfig:"BOT_PREFIX" default:"!"`
		AdminUID  string `envconfig:"BOT_ADMIN_UID"`
		Language  string `envconfig:"BOT_LANGUAGE" default:"ru"`
		XPDivisor int    `envconfig:"BOT_XP_DIVISOR" default:"100"`
	} `envconfig:""`

	Platform struct {
		WSURL       string `envconfig:"PLATFORM_WS_URL"`
		APIBaseURL  string `envconfig:"PLATFORM_API_URL"`
		Token       string `envconfig:"PLATFORM_TOKEN"`
		SelfID      string `envconfig:"PLATFORM_SELF_ID"`
		CallTimeout int    `envconfig:"PLATFORM_CALL_TIMEOUT_SEC" default:"10"`
	} `envconfig:""`

	Features struct {
		XPSystem           bool `envconfig:"FEATURE_XP_SYSTEM" default:"true"`
		AutoModeration     bool `envconfig:"FEATURE_AUTO_MODERATION" default:"true"`
		EventNotifications bool `envconfig:"FEATURE_EVENT_NOTIFICATIONS" default:"true"`
		WelcomeBonus       bool `envconfig:"FEATURE_WELCOME_BONUS" default:"true"`
		BotIntroduction    bool `envconfig:"FEATURE_BOT_INTRODUCTION" default:"false"`
	} `envconfig:""`

	Security struct {
		BlacklistedUsers   string `envconfig:"SECURITY_BLACKLISTED_USERS"`
		BlacklistedThreads string `envconfig:"SECURITY_BLACKLISTED_THREADS"`
		BannedWords        string `envconfig:"SECURITY_BANNED_WORDS"`
	} `envconfig:""`

	Snapshot struct {
		Dir         string `envconfig:"SNAPSHOT_DIR" default:"data"`
		IntervalSec int    `envconfig:"SNAPSHOT_INTERVAL_SEC" default:"60"`
		SweepAgeSec int    `envconfig:"SNAPSHOT_SWEEP_AGE_SEC" default:"86400"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Rabbit struct {
		AMQPURL       string `envconfig:"RABBITMQ_URL"`
		ManagementURL string `envconfig:"RABBITMQ_MANAGEMENT_URL"`
	} `envconfig:""`

	Queues struct {
		Audit string `envconfig:"AUDIT_QUEUE_KEY" default:"audit_entries"`
	} `envconfig:""`

	External struct {
		OpenAIKey      string `envconfig:"OPENAI_API_KEY"`
		OpenAIModel    string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		OpenWeatherKey string `envconfig:"OPENWEATHER_API_KEY"`
	} `envconfig:""`

	Texts struct {
		Welcome string `envconfig:"TEXT_WELCOME" default:"👋 Привет, {name}! Добро пожаловать в {groupName}. Теперь нас {memberCount}. Команды начинаются с {prefix}"`
		Goodbye string `envconfig:"TEXT_GOODBYE" default:"👋 {name} покинул(а) чат. До встречи!"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// BotConfig собирает поведенческую конфигурацию для обработчиков.
func (c AppConfig) BotConfig() domain.BotConfig {
	return domain.BotConfig{
		BotName:         c.Bot.Name,
		Version:         c.Bot.Version,
		Prefix:          c.Bot.Prefix,
		AdminUID:        c.Bot.AdminUID,
		Language:        c.Bot.Language,
		XPDivisor:       c.Bot.XPDivisor,
		WelcomeTemplate: c.Texts.Welcome,
		GoodbyeTemplate: c.Texts.Goodbye,
		Features: domain.Features{
			XPSystem:           c.Features.XPSystem,
			AutoModeration:     c.Features.AutoModeration,
			EventNotifications: c.Features.EventNotifications,
			WelcomeBonus:       c.Features.WelcomeBonus,
			BotIntroduction:    c.Features.BotIntroduction,
		},
		Security: domain.SecurityConfig{
			BlacklistedUsers:   splitList(c.Security.BlacklistedUsers),
			BlacklistedThreads: splitList(c.Security.BlacklistedThreads),
			BannedWords:        splitList(c.Security.BannedWords),
		},
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
