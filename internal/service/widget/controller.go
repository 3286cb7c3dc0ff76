package widget

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/lavajato/backend/internal/analysis/keyword"
	"github.com/zhouzirui/lavajato/backend/internal/model/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/conversation"
	"github.com/zhouzirui/lavajato/backend/internal/service/notify"
)

const (
	DefaultReplyDelay      = 1500 * time.Millisecond
	DefaultOpenScrollDelay = 300 * time.Millisecond
)

// Options tune a Controller. Zero values fall back to the defaults.
type Options struct {
	SessionID       string
	ReplyDelay      time.Duration
	OpenScrollDelay time.Duration
	Scheduler       Scheduler
	Notifier        notify.Notifier
	Logger          *zap.Logger
	Now             func() time.Time
}

// Controller drives the turn-taking between the visitor and the scripted
// assistant: it appends the visitor's message, shows the typing indicator and
// appends the bot reply once the simulated delay has passed.
//
// Replies may overlap. Every pending reply resolves the text that scheduled
// it, and IsTyping stays set until the last pending reply lands.
type Controller struct {
	mu sync.Mutex

	sessionID       string
	replyDelay      time.Duration
	openScrollDelay time.Duration
	scheduler       Scheduler
	notifier        notify.Notifier
	logger          *zap.Logger

	resolver *keyword.Resolver
	conv     *conversation.Conversation
	state    State

	pending     map[uint64]Timer
	nextTask    uint64
	scrollTimer Timer
	scrollGen   uint64
	closed      bool

	seq       uint64
	queue     []Event
	draining  bool
	listeners map[int]func(Event)

	nextListener int
}

// New builds a controller whose conversation starts with the table greeting.
func New(resolver *keyword.Resolver, opts Options) *Controller {
	if resolver == nil {
		panic("widget: nil resolver")
	}
	if opts.ReplyDelay <= 0 {
		opts.ReplyDelay = DefaultReplyDelay
	}
	if opts.OpenScrollDelay <= 0 {
		opts.OpenScrollDelay = DefaultOpenScrollDelay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = ClockScheduler
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Controller{
		sessionID:       opts.SessionID,
		replyDelay:      opts.ReplyDelay,
		openScrollDelay: opts.OpenScrollDelay,
		scheduler:       opts.Scheduler,
		notifier:        opts.Notifier,
		logger:          opts.Logger.With(zap.String("session", opts.SessionID)),
		resolver:        resolver,
		conv:            conversation.New(resolver.Table().Greeting(), opts.Now),
		pending:         make(map[uint64]Timer),
		listeners:       make(map[int]func(Event)),
	}
}

// Submit sends the visitor's text. Blank or whitespace-only text is ignored
// and false is returned; nothing is appended or scheduled in that case.
func (c *Controller) Submit(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}

	msg := c.conv.Append(chat.SenderUser, text)
	draftCleared := c.state.Draft != ""
	typingStarted := !c.state.IsTyping
	c.state.Draft = ""
	c.state.IsTyping = true

	events := []Event{c.event(EventMessage, &msg)}
	if draftCleared {
		events = append(events, c.event(EventDraft, nil))
	}
	if typingStarted {
		events = append(events, c.event(EventTyping, nil))
	}
	events = append(events, c.scrollLocked()...)

	id := c.nextTask
	c.nextTask++
	c.pending[id] = c.scheduler.AfterFunc(c.replyDelay, func() {
		c.deliver(id, text)
	})
	pending := len(c.pending)
	c.queue = append(c.queue, events...)
	c.mu.Unlock()

	c.logger.Debug("visitor message accepted",
		zap.Int("messageId", msg.ID),
		zap.Int("pending", pending))
	c.dispatch()
	return true
}

// SubmitDraft submits whatever is currently in the text box.
func (c *Controller) SubmitDraft() bool {
	c.mu.Lock()
	draft := c.state.Draft
	c.mu.Unlock()
	return c.Submit(draft)
}

// SetDraft records the uncommitted text box contents.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	if c.closed || c.state.Draft == text {
		c.mu.Unlock()
		return
	}
	c.state.Draft = text
	c.queue = append(c.queue, c.event(EventDraft, nil))
	c.mu.Unlock()

	c.dispatch()
}

// SubmitName handles the "leave your name" follow-up. The acknowledgement is
// appended right away, without the typing delay or a keyword lookup, and a
// toast is raised through the notifier.
func (c *Controller) SubmitName(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	table := c.resolver.Table()
	title, description := table.Toast(name)
	toast := notify.Toast{Title: title, Description: description}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	events := c.clearDraftLocked()
	msg := c.conv.Append(chat.SenderBot, table.NameThanks(name))
	events = append(events, c.event(EventMessage, &msg))
	events = append(events, c.scrollLocked()...)
	toastEv := c.event(EventToast, nil)
	toastEv.Toast = &toast
	events = append(events, toastEv)
	c.queue = append(c.queue, events...)
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Notify(ctx, c.sessionID, toast)
	}
	c.dispatch()
	return true
}

// ToggleOpen flips panel visibility and returns the new value. Pending
// replies keep running while the panel is hidden.
func (c *Controller) ToggleOpen() bool {
	c.mu.Lock()
	if c.closed {
		open := c.state.IsOpen
		c.mu.Unlock()
		return open
	}

	c.state.IsOpen = !c.state.IsOpen
	open := c.state.IsOpen
	events := []Event{c.event(EventOpen, nil)}

	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
		c.scrollTimer = nil
	}
	if open {
		events = append(events, c.scrollLocked()...)
		// the panel animates in, scroll again once it has settled
		c.scrollGen++
		gen := c.scrollGen
		c.scrollTimer = c.scheduler.AfterFunc(c.openScrollDelay, func() {
			c.settleScroll(gen)
		})
	}
	c.queue = append(c.queue, events...)
	c.mu.Unlock()

	c.dispatch()
	return open
}

// Snapshot returns the messages and flags for rendering. Messages and
// flags are read together, so a reply landing concurrently is either fully
// in the snapshot or not at all.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		SessionID: c.sessionID,
		Messages:  c.conv.All(),
		State:     c.state,
		Phase:     c.phaseLocked(),
	}
}

// State returns the current UI flags.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Phase reports whether a bot reply is outstanding.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

func (c *Controller) phaseLocked() Phase {
	if len(c.pending) > 0 {
		return PhaseResponding
	}
	return PhaseIdle
}

// Pending returns the number of scheduled replies.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Messages returns the ordered conversation.
func (c *Controller) Messages() []chat.Message {
	return c.conv.All()
}

// Subscribe registers fn for every change event. Listeners are called
// outside the controller lock, one event at a time in Seq order, and must
// not block.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close stops every scheduled callback and drops the listeners. It is called
// when the hosting page session goes away; it is not a user-facing cancel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, timer := range c.pending {
		timer.Stop()
		delete(c.pending, id)
	}
	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
		c.scrollTimer = nil
	}
	c.queue = nil
	c.listeners = make(map[int]func(Event))
}

func (c *Controller) deliver(id uint64, text string) {
	rule, matched := c.resolver.Match(text)
	reply := rule.Reply
	if !matched {
		reply = c.resolver.Table().Fallback()
	}

	c.mu.Lock()
	if _, ok := c.pending[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, id)

	msg := c.conv.Append(chat.SenderBot, reply)
	events := []Event{c.event(EventMessage, &msg)}
	if len(c.pending) == 0 {
		c.state.IsTyping = false
		events = append(events, c.event(EventTyping, nil))
	}
	events = append(events, c.scrollLocked()...)
	c.queue = append(c.queue, events...)
	c.mu.Unlock()

	c.logger.Debug("bot reply delivered",
		zap.Int("messageId", msg.ID),
		zap.String("keyword", rule.Keyword),
		zap.Bool("fallback", !matched))
	c.dispatch()
}

func (c *Controller) settleScroll(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.scrollGen {
		c.mu.Unlock()
		return
	}
	c.scrollTimer = nil
	c.queue = append(c.queue, c.scrollLocked()...)
	c.mu.Unlock()

	c.dispatch()
}

func (c *Controller) clearDraftLocked() []Event {
	if c.state.Draft == "" {
		return nil
	}
	c.state.Draft = ""
	return []Event{c.event(EventDraft, nil)}
}

// scrollLocked asks the view to follow the newest message, but only while
// the panel is visible.
func (c *Controller) scrollLocked() []Event {
	if !c.state.IsOpen {
		return nil
	}
	last, ok := c.conv.Last()
	if !ok {
		return nil
	}
	ev := c.event(EventScroll, nil)
	ev.ScrollTo = last.ID
	return []Event{ev}
}

func (c *Controller) event(kind EventType, msg *chat.Message) Event {
	c.seq++
	return Event{
		Seq:       c.seq,
		Type:      kind,
		SessionID: c.sessionID,
		State:     c.state,
		Message:   msg,
	}
}

// dispatch hands queued events to the listeners in the order they were
// produced. Only one goroutine drains at a time; a caller that finds a drain
// in progress leaves its events to that goroutine.
func (c *Controller) dispatch() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true

	for len(c.queue) > 0 {
		batch := c.queue
		c.queue = nil
		listeners := make([]func(Event), 0, len(c.listeners))
		for _, fn := range c.listeners {
			listeners = append(listeners, fn)
		}
		c.mu.Unlock()

		for _, ev := range batch {
			for _, fn := range listeners {
				fn(ev)
			}
		}

		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}
