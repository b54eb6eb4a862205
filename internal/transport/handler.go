package transport

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/events"
)

// UserResolver extracts the authenticated user identity from the request.
// Session handling lives outside this module; the default resolver reads the
// "user" query parameter.
type UserResolver func(r *http.Request) (string, error)

func queryUserResolver(r *http.Request) (string, error) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		return "", fmt.Errorf("missing user identity")
	}
	return userID, nil
}

// Handler upgrades HTTP requests to websocket push channels and binds them
// to the connection registry.
type Handler struct {
	registry    *events.Registry
	resolveUser UserResolver
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

func NewHandler(registry *events.Registry, resolveUser UserResolver, logger *zap.Logger) *Handler {
	if resolveUser == nil {
		resolveUser = queryUserResolver
	}
	return &Handler{
		registry:    registry,
		resolveUser: resolveUser,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolveUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}

	ch := newWSChannel(conn, h.logger)
	h.registry.Register(userID, ch)

	go ch.writePump()
	go ch.readPump(userID, func() {
		h.registry.Unregister(userID, ch)
	})

	h.registry.Deliver(userID, events.New(events.TypeConnected, userID, nil))
}
