package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/constants"
	"github.com/arim/tastemap-go/internal/events"
)

// wsChannel adapts one websocket connection to the events.Channel contract.
// All writes go through the buffered send queue so the write pump is the
// only goroutine touching the connection.
type wsChannel struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func newWSChannel(conn *websocket.Conn, logger *zap.Logger) *wsChannel {
	return &wsChannel{
		conn:   conn,
		send:   make(chan []byte, constants.WebSocketConfig.SendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send queues data for the write pump. A closed channel or a full queue
// reports an error so the registry can prune this connection.
func (c *wsChannel) Send(data []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("channel closed")
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("channel closed")
	default:
		return fmt.Errorf("send buffer full")
	}
}

// CloseWithReason sends a close control frame carrying the reason, then
// tears the connection down.
func (c *wsChannel) CloseWithReason(reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		deadline := time.Now().Add(constants.WebSocketConfig.WriteWait)
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		if writeErr := c.conn.WriteControl(websocket.CloseMessage, message, deadline); writeErr != nil {
			c.logger.Debug("Failed to write close frame", zap.Error(writeErr))
		}
		err = c.conn.Close()
	})
	return err
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with periodic pings. It exits when the channel closes or a write
// fails.
func (c *wsChannel) writePump() {
	ticker := time.NewTicker(constants.WebSocketConfig.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				_ = c.CloseWithReason("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.CloseWithReason("ping failed")
				return
			}
		}
	}
}

// readPump consumes client frames to service pong handling and detect
// disconnects. The only inbound payload acted on is an application-level
// ping envelope, which gets a pong back; everything else is ignored.
func (c *wsChannel) readPump(userID string, onClose func()) {
	defer onClose()

	c.conn.SetReadLimit(constants.WebSocketConfig.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("WebSocket read error", zap.Error(err))
			}
			_ = c.CloseWithReason("connection closed")
			return
		}

		var inbound events.Event
		if err := json.Unmarshal(data, &inbound); err != nil {
			continue
		}
		if inbound.Type == events.TypePing {
			pong, err := json.Marshal(events.New(events.TypePong, userID, nil))
			if err != nil {
				continue
			}
			_ = c.Send(pong)
		}
	}
}
