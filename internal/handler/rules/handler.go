package rules

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lavajato/backend/internal/model/rulebook"
	"github.com/zhouzirui/lavajato/backend/pkg/utils"
)

// Handler 关键词规则的只读接口，前端用来渲染快捷提问
type Handler struct {
	table *rulebook.Table
}

// New 创建规则处理器
func New(table *rulebook.Table) *Handler {
	return &Handler{table: table}
}

// RegisterRoutes 注册规则相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/rules", h.handleListKeywords)
}

// handleListKeywords 按声明顺序列出关键词
func (h *Handler) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"keywords": h.table.Keywords(),
	})
}
