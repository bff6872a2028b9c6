package ws

import (
	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/internal/pkg/pubsub"
)

// Deliver 将 Redis 上的用户事件转发给该用户的连接
func (h *Hub) Deliver(evt *pubsub.Event) {
	if evt == nil || evt.UserID == "" {
		return
	}
	// 事件广播到所有 API 实例，只有持有该用户连接的实例需要处理
	if !h.IsOnline(evt.UserID) {
		return
	}
	msg := &Message{Type: evt.Type, Message: evt.Message}
	if len(evt.Data) > 0 {
		msg.Data = evt.Data
	}
	if err := h.SendToUser(evt.UserID, msg); err != nil {
		h.logger.Warn("deliver event failed", zap.String("type", evt.Type), zap.Error(err))
	}
}
