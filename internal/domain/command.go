package domain

import "context"

// HandlerContext — всё, что нужно обработчику события: клиент платформы,
// само событие, карта команд, общее состояние и конфигурация.
type HandlerContext struct {
	Client   ClientAPI
	Event    Event
	Commands map[string]*Command
	State    *BotState
	Config   BotConfig
}

// CommandContext — контекст выполнения команды. Args — аргументы после
// имени команды, уже разбитые по пробелам.
type CommandContext struct {
	HandlerContext
	Args []string
}

// EventHandler обрабатывает одно событие. Ошибка логируется маршрутизатором
// и не прерывает обработку остальных обработчиков.
type EventHandler func(ctx context.Context, hc *HandlerContext) error

// Command — декларация команды: метаданные для справки и контроля доступа
// плюс функция выполнения. Имя уникально и объявляется в нижнем регистре.
type Command struct {
	Name        string
	Description string
	Usage       string
	Category    string
	Role        Role
	// Cooldown — минимальный интервал между вызовами одним пользователем,
	// в секундах. Ноль — без ограничения.
	Cooldown int
	Execute  func(ctx context.Context, cc *CommandContext) error
}
