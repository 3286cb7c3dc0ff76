package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatservice "github.com/zhouzirui/lavajato/backend/internal/service/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/widget"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingPeriod   = 25 * time.Second
	outboxSize   = 64
)

// Handler WebSocket处理器：把小组件的命令和事件放在同一条连接上
type Handler struct {
	chatSvc  *chatservice.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatservice.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 访客输入（提交或草稿）
type TextMessage struct {
	Text string `json:"text"`
}

// NameMessage 访客留下的姓名
type NameMessage struct {
	Name string `json:"name"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connection struct {
	sessionID string
	ctrl      *widget.Controller
	outbox    chan outgoingMessage
	logger    *zap.Logger
}

// push queues a message for the writer without ever blocking the caller.
func (c *connection) push(msg outgoingMessage) {
	msg.SessionID = c.sessionID
	msg.Timestamp = time.Now().UnixMilli()
	select {
	case c.outbox <- msg:
	default:
		c.logger.Warn("websocket outbox full, dropping message", zap.String("type", msg.Type))
	}
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctrl, err := h.chatSvc.Controller(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("session", sessionID))
	logger.Debug("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &connection{
		sessionID: sessionID,
		ctrl:      ctrl,
		outbox:    make(chan outgoingMessage, outboxSize),
		logger:    logger,
	}

	unsubscribe := ctrl.Subscribe(func(ev widget.Event) {
		c.push(outgoingMessage{Type: string(ev.Type), Data: ev})
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, conn, c)
	}()
	defer wg.Wait()
	defer cancel()

	c.push(outgoingMessage{Type: "snapshot", Data: ctrl.Snapshot()})

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Info("websocket read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.push(errorMessage("session mismatch"))
			continue
		}
		// any traffic counts as activity for the idle sweep
		if _, err := h.chatSvc.Controller(ctx, sessionID); err != nil {
			c.push(outgoingMessage{Type: "closed", Data: map[string]string{"reason": err.Error()}})
			return
		}

		h.handleMessage(ctx, c, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "submit":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.push(errorMessage("invalid submit payload"))
			return
		}
		c.push(ack(msg.Type, c.ctrl.Submit(text.Text)))
	case "submitDraft":
		c.push(ack(msg.Type, c.ctrl.SubmitDraft()))
	case "draft":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.push(errorMessage("invalid draft payload"))
			return
		}
		c.ctrl.SetDraft(text.Text)
	case "name":
		var name NameMessage
		if err := json.Unmarshal(msg.Data, &name); err != nil {
			c.push(errorMessage("invalid name payload"))
			return
		}
		c.push(ack(msg.Type, c.ctrl.SubmitName(ctx, name.Name)))
	case "toggle":
		c.ctrl.ToggleOpen()
	case "snapshot":
		c.push(outgoingMessage{Type: "snapshot", Data: c.ctrl.Snapshot()})
	default:
		c.push(errorMessage("unsupported message type: " + msg.Type))
	}
}

// writeLoop is the only goroutine that writes to conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// flush what is already queued, e.g. the "closed" reason
			if !drainOutbox(conn, c) {
				return
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case msg := <-c.outbox:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				c.logger.Info("websocket write failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// drainOutbox writes the queued messages without waiting for new ones. It
// returns false when the connection failed.
func drainOutbox(conn *websocket.Conn, c *connection) bool {
	for {
		select {
		case msg := <-c.outbox:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				c.logger.Info("websocket write failed", zap.Error(err))
				_ = conn.Close()
				return false
			}
		default:
			return true
		}
	}
}

func ack(command string, accepted bool) outgoingMessage {
	return outgoingMessage{Type: "ack", Data: map[string]any{"command": command, "accepted": accepted}}
}

func errorMessage(message string) outgoingMessage {
	return outgoingMessage{Type: "error", Data: map[string]string{"error": message}}
}
