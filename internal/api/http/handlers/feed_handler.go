package handlers

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

const feedBuffer = 64

// ChangeSource fans out every change event.
type ChangeSource interface {
	SubscribeAll(handler events.EventHandler) events.Unsubscribe
}

// PresenceRecorder stamps agent heartbeats.
type PresenceRecorder interface {
	Heartbeat(ctx context.Context, agentID string, at time.Time)
}

// FeedHandler streams change events to connected agents over a websocket
// and keeps their presence fresh while the socket is open.
type FeedHandler struct {
	changes   ChangeSource
	presence  PresenceRecorder
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewFeedHandler constructs handler.
func NewFeedHandler(changes ChangeSource, presence PresenceRecorder, heartbeat time.Duration, logger *zap.Logger) *FeedHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{changes: changes, presence: presence, heartbeat: heartbeat, logger: logger}
}

// Upgrade rejects plain HTTP requests and hands the caller id to the socket.
func (h *FeedHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return fiber.ErrUnauthorized
	}
	c.Locals(auth.PrincipalIDKey, principal.Agent.ID)
	return c.Next()
}

// Stream GET /ws.
func (h *FeedHandler) Stream() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *FeedHandler) serve(conn *websocket.Conn) {
	agentID, _ := conn.Locals(auth.PrincipalIDKey).(string)
	logger := h.logger.With(zap.String("agent_id", agentID))

	feed := make(chan events.Event, feedBuffer)
	unsubscribe := h.changes.SubscribeAll(func(_ context.Context, event events.Event) error {
		select {
		case feed <- event:
		default:
			logger.Warn("feed buffer full, dropping event", zap.String("event_type", string(event.Type)))
		}
		return nil
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	h.touch(agentID)

	for {
		select {
		case <-closed:
			logger.Debug("feed closed by client")
			return
		case event := <-feed:
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("feed write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			h.touch(agentID)
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.heartbeat/2)); err != nil {
				return
			}
		}
	}
}

func (h *FeedHandler) touch(agentID string) {
	if h.presence == nil || agentID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.presence.Heartbeat(ctx, agentID, time.Now())
}
