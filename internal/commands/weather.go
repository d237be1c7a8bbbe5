package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"neobot/internal/domain"
	"neobot/internal/infra/metrics"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Weather показывает текущую погоду в городе через OpenWeather.
func Weather(d Deps) *domain.Command {
	return &domain.Command{
		Name:        "weather",
		Description: "Текущая погода в городе",
		Usage:       "weather <город>",
		Category:    categoryGeneral,
		Role:        domain.RoleEveryone,
		Cooldown:    15,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			if d.OpenWeatherKey == "" {
				return reply(ctx, cc, "🌦 Погода не настроена: нет ключа API.")
			}
			if len(cc.Args) == 0 {
				return reply(ctx, cc, "Укажите город: weather <город>")
			}
			city := strings.Join(cc.Args, " ")

			w, err := fetchWeather(ctx, d.HTTP, d.OpenWeatherKey, city)
			if err != nil {
				d.Log.Warn().Err(err).Str("city", city).Msg("weather: запрос не удался")
				return reply(ctx, cc, fmt.Sprintf("🌦 Не удалось получить погоду для «%s».", city))
			}

			desc := ""
			if len(w.Weather) > 0 {
				desc = w.Weather[0].Description
			}
			return reply(ctx, cc, fmt.Sprintf(
				"🌤 %s: %s\n🌡 %.1f°C (ощущается как %.1f°C)\n💧 Влажность: %d%%\n💨 Ветер: %.1f м/с",
				w.Name, desc, w.Main.Temp, w.Main.FeelsLike, w.Main.Humidity, w.Wind.Speed))
		},
	}
}

func fetchWeather(ctx context.Context, client *http.Client, key, city string) (weatherResponse, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", key)
	q.Set("units", "metric")
	q.Set("lang", "ru")

	reqCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, openWeatherURL+"?"+q.Encode(), nil)
	if err != nil {
		return weatherResponse{}, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	metrics.ObserveNetworkRequest("openweather", "current", city, start, err)
	if err != nil {
		return weatherResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return weatherResponse{}, fmt.Errorf("openweather: status %d", resp.StatusCode)
	}
	var w weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return weatherResponse{}, err
	}
	return w, nil
}
