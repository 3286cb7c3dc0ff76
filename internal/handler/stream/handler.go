package stream

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/lavajato/backend/internal/observability"
	chatService "github.com/zhouzirui/lavajato/backend/internal/service/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/widget"
	"github.com/zhouzirui/lavajato/backend/pkg/utils"
)

const (
	defaultHeartbeat = 15 * time.Second
	eventBuffer      = 64
)

// Handler pushes widget changes to the page via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	logger    *zap.Logger
	heartbeat time.Duration
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:   chatSvc,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// handleStream sends a snapshot first, then every controller event, with a
// heartbeat that also keeps the session from being swept while the tab is open.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, h.logger)
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctrl, err := h.chatSvc.Controller(ctx, sessionID)
	if err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	events := make(chan widget.Event, eventBuffer)
	cancel := ctrl.Subscribe(func(ev widget.Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("sse client too slow, dropping event",
				zap.String("session", sessionID),
				zap.String("event", string(ev.Type)))
		}
	})
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", ctrl.Snapshot()); err != nil {
		return
	}
	logger.Debug("sse stream opened", zap.String("session", sessionID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("sse stream closed", zap.String("session", sessionID))
			return
		case ev := <-events:
			if err := utils.SendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				return
			}
		case t := <-ticker.C:
			if _, err := h.chatSvc.Controller(ctx, sessionID); err != nil {
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"reason": err.Error()})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}
