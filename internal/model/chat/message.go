package chat

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one exchanged turn in a widget conversation.
type Message struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Clock 返回用于气泡展示的 HH:MM。
func (m Message) Clock() string {
	return m.Timestamp.Format("15:04")
}

// FromBot reports whether the message was scripted by the assistant.
func (m Message) FromBot() bool {
	return m.Sender == SenderBot
}
