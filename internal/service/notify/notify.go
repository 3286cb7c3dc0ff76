package notify

import (
	"context"

	"go.uber.org/zap"
)

// Toast is a transient notification shown by the page, outside the chat panel.
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Notifier delivers toasts to whatever presents them.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, toast Toast)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, sessionID string, toast Toast)

func (f Func) Notify(ctx context.Context, sessionID string, toast Toast) {
	f(ctx, sessionID, toast)
}

// Multi fans a toast out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, sessionID string, toast Toast) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, sessionID, toast)
		}
	}
}

// LogNotifier records toasts in the service log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, sessionID string, toast Toast) {
	n.logger.Info("toast raised",
		zap.String("session", sessionID),
		zap.String("title", toast.Title),
		zap.String("description", toast.Description))
}
