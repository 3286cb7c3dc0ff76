package conversation

import (
	"sync"
	"time"

	"github.com/zhouzirui/lavajato/backend/internal/model/chat"
)

// Conversation is the append-only message history of one widget session.
type Conversation struct {
	mu       sync.RWMutex
	now      func() time.Time
	lastID   int
	messages []chat.Message
}

// New seeds a conversation with the bot greeting as message 1.
// A nil now falls back to time.Now.
func New(greeting string, now func() time.Time) *Conversation {
	if now == nil {
		now = time.Now
	}
	c := &Conversation{
		now:      now,
		messages: make([]chat.Message, 0, 16),
	}
	c.Append(chat.SenderBot, greeting)
	return c
}

// Append stores a new message at the end of the history and returns it.
// IDs come from an internal counter, so they stay strictly increasing even
// when several timers append concurrently.
func (c *Conversation) Append(sender chat.Sender, text string) chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastID++
	msg := chat.Message{
		ID:        c.lastID,
		Text:      text,
		Sender:    sender,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, msg)
	return msg
}

// All returns a copy of the ordered history.
func (c *Conversation) All() []chat.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copied := make([]chat.Message, len(c.messages))
	copy(copied, c.messages)
	return copied
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message.
func (c *Conversation) Last() (chat.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 {
		return chat.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
