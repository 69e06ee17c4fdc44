package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/domain"
)

const (
	wsMaxDuration    = 5 * time.Minute
	wsPingInterval   = 30 * time.Second
	wsPongTimeout    = 10 * time.Second
	wsMaxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler live-tails a submission's status until it reaches a
// terminal state: poll the repository on a ticker, push on change,
// ping/pong keepalive, bounded connection lifetime.
type WebSocketHandler struct {
	svc    *SubmissionService
	logger *zap.Logger
}

// NewWebSocketHandler builds a WebSocketHandler.
func NewWebSocketHandler(svc *SubmissionService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{svc: svc, logger: logger}
}

// Stream handles GET /submissions/:id/stream.
func (h *WebSocketHandler) Stream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}

	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout + wsPingInterval))
		return nil
	})

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()
	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()
	maxTimer := time.NewTimer(wsMaxDuration)
	defer maxTimer.Stop()

	var lastStatus domain.Status

	for {
		select {
		case <-clientDone:
			return

		case <-maxTimer.C:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "max connection duration exceeded"))
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsPongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-pollTicker.C:
			view, err := h.svc.Get(c.Request.Context(), id)
			if err != nil {
				conn.WriteJSON(gin.H{"error": "submission not found"})
				return
			}

			if view.Status != lastStatus {
				conn.SetWriteDeadline(time.Now().Add(wsPongTimeout))
				if err := conn.WriteJSON(view); err != nil {
					return
				}
				lastStatus = view.Status
			}

			if view.Status == domain.StatusDone {
				conn.WriteJSON(view)
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "submission judged"))
				return
			}
		}
	}
}
