package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/lavajato/backend/internal/handler/chat"
	"github.com/zhouzirui/lavajato/backend/internal/handler/realtime"
	"github.com/zhouzirui/lavajato/backend/internal/handler/rules"
	"github.com/zhouzirui/lavajato/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/lavajato/backend/internal/middleware"
	"github.com/zhouzirui/lavajato/backend/internal/model/rulebook"
	chatService "github.com/zhouzirui/lavajato/backend/internal/service/chat"
	"github.com/zhouzirui/lavajato/backend/pkg/utils"
)

// RouterOptions 路由层的可选配置
type RouterOptions struct {
	AllowedOrigin string
	Logger        *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(table *rulebook.Table, chatSvc *chatService.Service, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigin))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Len(),
		})
	})

	rulesHandler := rules.New(table)
	chatHandler := chat.New(chatSvc, logger)
	streamHandler := stream.New(chatSvc, logger)
	wsHandler := realtime.New(chatSvc, logger)

	r.Route("/api", func(api chi.Router) {
		rulesHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
