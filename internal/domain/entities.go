package domain

import "time"

// UserRecord описывает пользователя платформы в памяти процесса.
// Запись создаётся лениво при первом событии от пользователя.
type UserRecord struct {
	UID           string     `json:"uid"`
	Name          string     `json:"name"`
	Nickname      string     `json:"nickname,omitempty"`
	XP            int        `json:"xp"`
	Level         int        `json:"level"`
	MessageCount  int        `json:"message_count"`
	ActivityScore float64    `json:"activity_score"`
	JoinedAt      time.Time  `json:"joined_at"`
	LastActive    time.Time  `json:"last_active"`
	LeftAt        *time.Time `json:"left_at,omitempty"`
	Banned        bool       `json:"banned"`
	BanReason     string     `json:"ban_reason,omitempty"`
	BannedBy      string     `json:"banned_by,omitempty"`
	BanDate       *time.Time `json:"ban_date,omitempty"`
	Language      string     `json:"language,omitempty"`
	Avatar        string     `json:"avatar,omitempty"`
	Birthday      string     `json:"birthday,omitempty"`
	Relationship  string     `json:"relationship,omitempty"`
	Verified      bool       `json:"verified,omitempty"`
}

// LevelForXP вычисляет уровень по опыту. Уровень всегда пересчитывается
// из XP и никогда не хранится отдельно от пересчёта.
func LevelForXP(xp, divisor int) int {
	if divisor <= 0 {
		divisor = 100
	}
	if xp < 0 {
		xp = 0
	}
	return xp/divisor + 1
}

// AddXP начисляет опыт и пересчитывает уровень. Возвращает true,
// если пользователь перешёл на новый уровень.
func (u *UserRecord) AddXP(amount, divisor int) bool {
	if amount < 0 {
		return false
	}
	u.XP += amount
	next := LevelForXP(u.XP, divisor)
	leveledUp := next > u.Level
	u.Level = next
	return leveledUp
}

// ThreadSettings хранит переключатели поведения бота в треде.
type ThreadSettings struct {
	WelcomeMessage     bool `json:"welcome_message"`
	GoodbyeMessage     bool `json:"goodbye_message"`
	EventNotifications bool `json:"event_notifications"`
	AdminAlerts        bool `json:"admin_alerts"`
}

// ThreadRecord описывает тред (диалог или группу) в памяти процесса.
type ThreadRecord struct {
	ThreadID      string         `json:"thread_id"`
	Name          string         `json:"name"`
	Emoji         string         `json:"emoji,omitempty"`
	MemberCount   int            `json:"member_count"`
	MessageCount  int            `json:"message_count"`
	ActivityScore float64        `json:"activity_score"`
	Banned        bool           `json:"banned"`
	CreatedAt     time.Time      `json:"created_at"`
	LastActivity  time.Time      `json:"last_activity"`
	Settings      ThreadSettings `json:"settings"`
}
