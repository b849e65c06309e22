package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"coursehub-backend/internal/handlers"
	"coursehub-backend/internal/middleware"
	"coursehub-backend/internal/models"
	"coursehub-backend/internal/services"
	"coursehub-backend/internal/validate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type progressReporter interface {
	Report(u models.ProgressUpdate)
}

// inboundMessage is what players send over the socket.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub relays a user's update channel to that user's sockets and feeds
// inbound progress ticks to the tracker.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	writeMu     map[*websocket.Conn]*sync.Mutex
	redisClient *redis.Client
	auth        *middleware.JWTAuth
	tracker     progressReporter
	validator   *validate.Validator
	log         *zap.Logger
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, auth *middleware.JWTAuth, tracker progressReporter, validator *validate.Validator, log *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		writeMu:     make(map[*websocket.Conn]*sync.Mutex),
		redisClient: redisClient,
		auth:        auth,
		tracker:     tracker,
		validator:   validator,
		log:         log,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, _, err := h.auth.ParseUserID(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.registerConnection(userID, conn)

	go func() {
		defer h.unregisterConnection(userID, conn)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handleInbound(userID, conn, data)
		}
	}()
}

func (h *Hub) handleInbound(userID uuid.UUID, conn *websocket.Conn, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(conn, models.WSMessage{Type: "error", Payload: map[string]string{"message": "Invalid message"}})
		return
	}

	switch msg.Type {
	case "progress":
		var report models.ProgressReport
		if err := json.Unmarshal(msg.Payload, &report); err != nil {
			h.reply(conn, models.WSMessage{Type: "error", Payload: map[string]string{"message": "Invalid progress payload"}})
			return
		}
		update, fields := handlers.ProgressUpdateFromReport(h.validator, userID, report)
		if fields != nil {
			h.reply(conn, models.WSMessage{Type: "error", Payload: fields})
			return
		}
		h.tracker.Report(update)
	case "ping":
		h.reply(conn, models.WSMessage{Type: "pong"})
	default:
		h.reply(conn, models.WSMessage{Type: "error", Payload: map[string]string{"message": "Unknown message type"}})
	}
}

func (h *Hub) registerConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], conn)
	h.writeMu[conn] = &sync.Mutex{}

	// Start pub/sub subscription if this is the first connection for this user
	if len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribeToPubSub(ctx, userID)
	}

	h.log.Debug("websocket connected", zap.String("user_id", userID.String()), zap.Int("total", len(h.connections[userID])))
}

func (h *Hub) unregisterConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.writeMu, conn)

	conns := h.connections[userID]
	for i, c := range conns {
		if c == conn {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	h.log.Debug("websocket disconnected", zap.String("user_id", userID.String()))
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, services.UserUpdatesChannel(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[userID] {
		h.write(conn, data)
	}
}

func (h *Hub) reply(conn *websocket.Conn, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.write(conn, data)
}

// write serialises writers per connection; gorilla connections allow one
// concurrent writer. Callers hold h.mu for reading.
func (h *Hub) write(conn *websocket.Conn, data []byte) {
	m, ok := h.writeMu[conn]
	if !ok {
		return
	}
	m.Lock()
	defer m.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
	}
}

// Close drops every connection and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.connections {
		for _, c := range conns {
			c.Close()
		}
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
		}
	}
	h.connections = make(map[uuid.UUID][]*websocket.Conn)
	h.writeMu = make(map[*websocket.Conn]*sync.Mutex)
	h.cancelFuncs = make(map[uuid.UUID]context.CancelFunc)
}
