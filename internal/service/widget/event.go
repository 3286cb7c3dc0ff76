package widget

import (
	"github.com/zhouzirui/lavajato/backend/internal/model/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/notify"
)

// State is the transient widget UI state. It is never persisted.
type State struct {
	IsOpen   bool   `json:"isOpen"`
	IsTyping bool   `json:"isTyping"`
	Draft    string `json:"draft"`
}

// Snapshot is everything the view needs to render the panel.
type Snapshot struct {
	SessionID string         `json:"sessionId,omitempty"`
	Messages  []chat.Message `json:"messages"`
	Phase     Phase          `json:"phase"`
	State
}

// Phase names where the turn-taking state machine currently is.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseResponding Phase = "responding"
)

type EventType string

const (
	EventMessage EventType = "message"
	EventTyping  EventType = "typing"
	EventOpen    EventType = "open"
	EventDraft   EventType = "draft"
	EventScroll  EventType = "scroll"
	EventToast   EventType = "toast"
)

// Event tells the presentation layer that something it renders changed.
// Seq increases by one per event of a controller. State always carries the
// flags as of the change; ScrollTo is the id of the message the view should
// bring into sight.
type Event struct {
	Seq       uint64        `json:"seq"`
	Type      EventType     `json:"type"`
	SessionID string        `json:"sessionId,omitempty"`
	State     State         `json:"state"`
	Message   *chat.Message `json:"message,omitempty"`
	ScrollTo  int           `json:"scrollTo,omitempty"`
	Toast     *notify.Toast `json:"toast,omitempty"`
}
