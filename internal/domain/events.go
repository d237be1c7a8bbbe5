package domain

// EventType — тип входящего события платформы.
type EventType string

const (
	EventMessage         EventType = "message"
	EventMessageReply    EventType = "message_reply"
	EventMessageReaction EventType = "message_reaction"
	EventLog             EventType = "event"
)

// LogKind — подтип сервисного события треда.
type LogKind string

const (
	LogSubscribe    LogKind = "log:subscribe"
	LogUnsubscribe  LogKind = "log:unsubscribe"
	LogThreadName   LogKind = "log:thread-name"
	LogThreadIcon   LogKind = "log:thread-icon"
	LogThreadColor  LogKind = "log:thread-color"
	LogUserNickname LogKind = "log:user-nickname"
	LogGeneric      LogKind = "log:generic"
)

// ReplyRef — ссылка на сообщение, на которое ответили.
type ReplyRef struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body,omitempty"`
}

// Event — единица входящего потока платформы. Поля заполняются
// в зависимости от типа: текстовые поля для сообщений, Reaction для
// реакций, LogKind и LogData для сервисных событий.
type Event struct {
	Type      EventType `json:"type"`
	ThreadID  string    `json:"thread_id"`
	SenderID  string    `json:"sender_id"`
	MessageID string    `json:"message_id"`

	Body     string            `json:"body,omitempty"`
	Mentions map[string]string `json:"mentions,omitempty"`

	Reply *ReplyRef `json:"reply,omitempty"`

	Reaction      string `json:"reaction,omitempty"`
	ReactionAdded bool   `json:"reaction_added,omitempty"`

	LogKind        LogKind           `json:"log_kind,omitempty"`
	LogBody        string            `json:"log_body,omitempty"`
	LogData        map[string]string `json:"log_data,omitempty"`
	Author         string            `json:"author,omitempty"`
	ParticipantIDs []string          `json:"participant_ids,omitempty"`
}

// IsGroup сообщает, относится ли событие к групповому треду.
// В личных диалогах идентификатор треда совпадает с отправителем.
func (e Event) IsGroup() bool {
	return e.ThreadID != "" && e.ThreadID != e.SenderID
}
