package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/lavajato/backend/internal/analysis/keyword"
	"github.com/zhouzirui/lavajato/backend/internal/model/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/notify"
	"github.com/zhouzirui/lavajato/backend/internal/service/widget"
)

var ErrSessionNotFound = errors.New("session not found")

const DefaultIdleTTL = 30 * time.Minute

// Config carries the per-widget tuning shared by every session.
type Config struct {
	ReplyDelay      time.Duration
	OpenScrollDelay time.Duration
	IdleTTL         time.Duration
	Scheduler       widget.Scheduler
	Notifier        notify.Notifier
	Logger          *zap.Logger
	Now             func() time.Time
}

type entry struct {
	session chat.Session
	ctrl    *widget.Controller
}

// Service keeps one widget controller per page load. Nothing outlives the
// process; a reloaded page simply opens a new session.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	resolver *keyword.Resolver
	cfg      Config
	logger   *zap.Logger
}

// NewService bootstraps the in-memory session registry.
func NewService(resolver *keyword.Resolver, cfg Config) *Service {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		sessions: make(map[string]*entry),
		resolver: resolver,
		cfg:      cfg,
		logger:   cfg.Logger,
	}
}

// CreateSession provisions a widget seeded with the greeting.
func (s *Service) CreateSession(ctx context.Context) (chat.Session, *widget.Controller, error) {
	if err := ctx.Err(); err != nil {
		return chat.Session{}, nil, err
	}

	now := s.cfg.Now()
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: now.UTC(),
		LastSeen:  now.UTC(),
	}
	ctrl := widget.New(s.resolver, widget.Options{
		SessionID:       session.ID,
		ReplyDelay:      s.cfg.ReplyDelay,
		OpenScrollDelay: s.cfg.OpenScrollDelay,
		Scheduler:       s.cfg.Scheduler,
		Notifier:        s.cfg.Notifier,
		Logger:          s.logger,
		Now:             s.cfg.Now,
	})

	s.mu.Lock()
	s.sessions[session.ID] = &entry{session: session, ctrl: ctrl}
	s.mu.Unlock()

	s.logger.Info("widget session created", zap.String("session", session.ID))
	return session, ctrl, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return e.session, nil
}

// Controller returns the session's controller and marks the session active.
func (s *Service) Controller(_ context.Context, sessionID string) (*widget.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.session.LastSeen = s.cfg.Now().UTC()
	return e.ctrl, nil
}

// LoadTranscript returns the ordered messages of a session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.ctrl.Messages(), nil
}

// CloseSession discards a session and stops its pending replies.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.ctrl.Close()
	s.logger.Info("widget session closed", zap.String("session", sessionID))
	return nil
}

// Sweep drops sessions idle for longer than the configured TTL and reports
// how many were removed.
func (s *Service) Sweep(now time.Time) int {
	var expired []*entry

	s.mu.Lock()
	for id, e := range s.sessions {
		if e.session.IdleFor(now) > s.cfg.IdleTTL {
			expired = append(expired, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		e.ctrl.Close()
	}
	if len(expired) > 0 {
		s.logger.Info("expired idle widget sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunJanitor sweeps on every tick until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(s.cfg.Now())
		}
	}
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown closes every controller.
func (s *Service) Shutdown() {
	s.mu.Lock()
	entries := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range entries {
		e.ctrl.Close()
	}
}
