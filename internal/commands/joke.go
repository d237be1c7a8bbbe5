package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"neobot/internal/domain"
	"neobot/internal/infra/metrics"
)

const jokeAPIURL = "https://official-joke-api.appspot.com/random_joke"

// fallbackJokes используются, когда внешний API недоступен.
var fallbackJokes = []string{
	"Почему программисты путают Хэллоуин и Рождество? Потому что OCT 31 == DEC 25.",
	"Заходит тестировщик в бар. Забегает в бар. Заползает в бар. Врывается в бар задом наперёд.",
	"— Доктор, меня все игнорируют.\n— Следующий!",
	"Встретились как-то TCP и UDP. А UDP не встретился.",
	"Оптимист видит стакан наполовину полным, пессимист — наполовину пустым, а инженер — в два раза больше, чем нужно.",
}

type jokeResponse struct {
	Setup     string `json:"setup"`
	Punchline string `json:"punchline"`
}

// Joke рассказывает анекдот: из внешнего API, а при его недоступности —
// из локального запаса.
func Joke(d Deps) *domain.Command {
	return &domain.Command{
		Name:        "joke",
		Description: "Случайный анекдот",
		Usage:       "joke",
		Category:    categoryFun,
		Role:        domain.RoleEveryone,
		Cooldown:    10,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			if text, err := fetchJoke(ctx, d.HTTP); err == nil {
				return reply(ctx, cc, text)
			} else {
				d.Log.Debug().Err(err).Msg("joke: внешний API недоступен, локальный запас")
			}
			return reply(ctx, cc, "😄 "+fallbackJokes[rand.IntN(len(fallbackJokes))])
		},
	}
}

func fetchJoke(ctx context.Context, client *http.Client) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, jokeAPIURL, nil)
	if err != nil {
		return "", err
	}
	start := time.Now()
	resp, err := client.Do(req)
	metrics.ObserveNetworkRequest("joke_api", "random_joke", "official-joke-api", start, err)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("joke api: status %d", resp.StatusCode)
	}
	var j jokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return "", err
	}
	if j.Setup == "" || j.Punchline == "" {
		return "", fmt.Errorf("joke api: пустой ответ")
	}
	return fmt.Sprintf("😄 %s\n%s", j.Setup, j.Punchline), nil
}
