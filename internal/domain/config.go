package domain

// Features — переключатели подсистем бота.
type Features struct {
	XPSystem           bool
	AutoModeration     bool
	EventNotifications bool
	WelcomeBonus       bool
	BotIntroduction    bool
}

// SecurityConfig — чёрные списки и фильтры содержимого.
type SecurityConfig struct {
	BlacklistedUsers   []string
	BlacklistedThreads []string
	BannedWords        []string
}

// BotConfig — поведенческая конфигурация, передаваемая обработчикам.
type BotConfig struct {
	BotName   string
	Version   string
	Prefix    string
	AdminUID  string
	Language  string
	XPDivisor int

	WelcomeTemplate string
	GoodbyeTemplate string

	Features Features
	Security SecurityConfig
}

// UserBlacklisted сообщает, закрыт ли пользователю доступ к командам.
func (c BotConfig) UserBlacklisted(uid string) bool {
	for _, b := range c.Security.BlacklistedUsers {
		if b == uid {
			return true
		}
	}
	return false
}

// ThreadBlacklisted сообщает, закрыт ли треду доступ к командам.
func (c BotConfig) ThreadBlacklisted(threadID string) bool {
	for _, b := range c.Security.BlacklistedThreads {
		if b == threadID {
			return true
		}
	}
	return false
}
