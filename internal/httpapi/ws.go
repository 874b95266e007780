package httpapi

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/matheus3301/inboxd/internal/broker"
	"github.com/matheus3301/inboxd/internal/chat"
	"github.com/matheus3301/inboxd/internal/metrics"
	"go.uber.org/zap"
)

const (
	frameJoin  = "join-conversation"
	frameLeave = "leave-conversation"

	// eventBuffer is the per-connection event queue. A reader that falls
	// this far behind starts losing events rather than stalling publishers.
	eventBuffer = 64
)

type clientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

type serverFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WSHandler upgrades connections and bridges them to the broker. Each
// connection subscribes to conversations with join/leave frames; closing
// the connection leaves everything.
type WSHandler struct {
	broker *broker.Broker
	logger *zap.Logger
}

// NewWSHandler creates the WebSocket endpoint.
func NewWSHandler(b *broker.Broker, logger *zap.Logger) *WSHandler {
	return &WSHandler{broker: b, logger: logger}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	events := h.broker.Register(connID, eventBuffer)
	metrics.IncWSConnections()
	defer func() {
		h.broker.Disconnect(connID)
		metrics.DecWSConnections()
		_ = conn.CloseNow()
		h.logger.Info("websocket disconnected", zap.String("conn_id", connID))
	}()

	h.logger.Info("websocket connected", zap.String("conn_id", connID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writer: forward broker events to the client.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-events:
				frame := serverFrame{Type: string(evt.Kind), Data: eventData(evt)}
				if err := wsjson.Write(ctx, conn, frame); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Reader: process join/leave frames until the client goes away.
	for {
		var frame clientFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}
		switch frame.Type {
		case frameJoin:
			if frame.ConversationID != "" {
				h.broker.Join(connID, frame.ConversationID)
			}
		case frameLeave:
			if frame.ConversationID != "" {
				h.broker.Leave(connID, frame.ConversationID)
			}
		default:
			h.logger.Debug("ignoring unknown frame",
				zap.String("conn_id", connID), zap.String("type", frame.Type))
		}
	}
}

// eventData converts a broker payload to its wire form.
func eventData(evt broker.Event) any {
	switch p := evt.Payload.(type) {
	case *chat.NewMessagePayload:
		return map[string]any{
			"conversationId": p.ConversationID,
			"message":        toMessageDTO(p.Message),
		}
	case *chat.StatusUpdatePayload:
		return map[string]any{
			"conversationId": p.ConversationID,
			"messageId":      p.MessageID,
			"status":         string(p.Status),
		}
	}
	return evt.Payload
}
