// Package commands содержит встроенные команды бота. Набор собирается
// статической таблицей All и загружается в реестр при старте.
package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"neobot/internal/domain"
	"neobot/internal/infra/openai"
	"neobot/internal/registry"
)

const (
	categoryGeneral    = "общие"
	categoryModeration = "модерация"
	categoryFun        = "развлечения"
	categoryAdmin      = "администрирование"

	replyTimeout = 10 * time.Second
)

// Deps — внешние зависимости команд. AI и ключи могут отсутствовать:
// соответствующие команды честно сообщают, что не настроены.
type Deps struct {
	Log            zerolog.Logger
	HTTP           *http.Client
	AI             *openai.Client
	OpenWeatherKey string
}

// All возвращает таблицу сборщиков встроенных команд.
func All(d Deps) []registry.CommandBuilder {
	if d.HTTP == nil {
		d.HTTP = &http.Client{Timeout: replyTimeout}
	}
	return []registry.CommandBuilder{
		func() (*domain.Command, error) { return Help(), nil },
		func() (*domain.Command, error) { return Ping(), nil },
		func() (*domain.Command, error) { return Rank(), nil },
		func() (*domain.Command, error) { return Leaderboard(), nil },
		func() (*domain.Command, error) { return Language(), nil },
		func() (*domain.Command, error) { return Ban(), nil },
		func() (*domain.Command, error) { return Unban(), nil },
		func() (*domain.Command, error) { return Admin(), nil },
		func() (*domain.Command, error) { return GroupAdmin(), nil },
		func() (*domain.Command, error) { return Joke(d), nil },
		func() (*domain.Command, error) { return Weather(d), nil },
		func() (*domain.Command, error) { return Ask(d), nil },
	}
}

// reply отвечает на сообщение, вызвавшее команду.
func reply(ctx context.Context, cc *domain.CommandContext, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	_, err := cc.Client.SendMessage(sendCtx, text, cc.Event.ThreadID, cc.Event.MessageID)
	return err
}
