package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/lavajato/backend/internal/model/chat"
	"github.com/zhouzirui/lavajato/backend/internal/observability"
	chatService "github.com/zhouzirui/lavajato/backend/internal/service/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/widget"
	"github.com/zhouzirui/lavajato/backend/pkg/utils"
)

// Handler 聊天小组件的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleSnapshot)
		r.Delete("/", h.handleCloseSession)
		r.Get("/info", h.handleSessionInfo)
		r.Get("/messages", h.handleTranscript)
		r.Post("/messages", h.handleSubmit)
		r.Put("/draft", h.handleDraft)
		r.Post("/name", h.handleName)
		r.Post("/toggle", h.handleToggle)
	})
}

type createSessionResponse struct {
	Session  chat.Session    `json:"session"`
	Snapshot widget.Snapshot `json:"snapshot"`
}

type acceptedResponse struct {
	Accepted bool `json:"accepted"`
}

// handleCreateSession 为一次页面加载创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, ctrl, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, createSessionResponse{
		Session:  session,
		Snapshot: ctrl.Snapshot(),
	})
}

// handleSnapshot 返回消息列表与界面状态
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, ctrl.Snapshot())
}

// handleSessionInfo 返回会话元数据（创建与最近活跃时间）
func (h *Handler) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleTranscript 返回按顺序排列的消息
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleSubmit 提交访客消息；空白内容直接忽略
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !ctrl.Submit(payload.Text) {
		utils.RespondJSON(w, http.StatusOK, acceptedResponse{Accepted: false})
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, acceptedResponse{Accepted: true})
}

// handleDraft 同步输入框内容
func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctrl.SetDraft(payload.Text)
	w.WriteHeader(http.StatusNoContent)
}

// handleName 记录访客姓名并立即致谢
func (h *Handler) handleName(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted := ctrl.SubmitName(r.Context(), payload.Name)
	utils.RespondJSON(w, http.StatusOK, acceptedResponse{Accepted: accepted})
}

// handleToggle 打开或收起聊天面板
func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"isOpen": ctrl.ToggleOpen()})
}

// handleCloseSession 页面卸载时释放会话
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.CloseSession(r.Context(), sessionID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*widget.Controller, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	ctrl, err := h.chatSvc.Controller(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return nil, false
	}
	return ctrl, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, chatService.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	observability.LoggerFromContext(r.Context(), h.logger).Error("chat request failed", zap.Error(err))
	utils.RespondError(w, http.StatusInternalServerError, "internal error")
}
