package chat

import "time"

// Session is the server-side handle of one widget instance (one page load).
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// IdleFor reports how long the session has gone without interaction.
func (s Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastSeen)
}
