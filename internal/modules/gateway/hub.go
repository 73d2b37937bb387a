package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	pkgredis "github.com/mx-space/memory-explorer/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// NewHub builds the hub. rc may be nil, in which case events stay on this
// instance.
func NewHub(rc *pkgredis.Client, validate TokenValidator, opts ...HubOption) *Hub {
	h := &Hub{
		sidRoom:    make(map[string]string),
		roomCount:  make(map[string]int),
		broadcast:  make(chan Message, queueSize),
		register:   make(chan clientMeta, queueSize),
		unregister: make(chan clientMeta, queueSize),
		done:       make(chan struct{}),
		origin:     uuid.NewString(),
		rc:         rc,
		logger:     zap.NewNop(),
		sio:        socketio.NewServer(nil, nil),
		validate:   validate,
	}
	h.deliver = h.emitRoom
	for _, opt := range opts {
		opt(h)
	}
	h.registerNamespace()
	return h
}

// Run starts the hub loop and the redis subscriber. It returns when ctx is
// cancelled. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rc != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.deliver(msg)
			h.metrics.Notification(msg.Event)
			h.publish(ctx, msg)
		}
	}
}

func (h *Hub) publish(ctx context.Context, msg Message) {
	if h.rc == nil {
		return
	}
	msg.Origin = h.origin
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("gateway encode failed", zap.String("event", msg.Event), zap.Error(err))
		return
	}
	if err := h.rc.Publish(ctx, redisChannel, data); err != nil {
		h.logger.Warn("gateway publish failed", zap.String("channel", redisChannel), zap.Error(err))
	}
}

// subscribeRedis delivers events published by other instances.
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			if msg.Origin == h.origin || msg.Room == "" {
				continue
			}
			h.deliver(msg)
		}
	}
}

func (h *Hub) registerClient(c clientMeta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.sidRoom[c.sid]; ok {
		if old == c.room {
			return
		}
		h.decRoom(old)
	}
	h.sidRoom[c.sid] = c.room
	h.roomCount[c.room]++
}

func (h *Hub) unregisterClient(c clientMeta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.sidRoom[c.sid]
	if !ok {
		return
	}
	delete(h.sidRoom, c.sid)
	h.decRoom(room)
}

func (h *Hub) decRoom(room string) {
	if h.roomCount[room] <= 1 {
		delete(h.roomCount, room)
		return
	}
	h.roomCount[room]--
}

func (h *Hub) emitRoom(msg Message) {
	_ = h.sio.Of(Namespace, nil).To(socketio.Room(msg.Room)).Emit("message", gatewayPayload{Type: msg.Event, Data: msg.Payload})
}

// Emit queues an event for every client of the session room. It never
// blocks; a full queue drops the event.
func (h *Hub) Emit(room, event string, payload interface{}) {
	if room == "" {
		return
	}
	select {
	case h.broadcast <- Message{Event: event, Payload: payload, Room: room}:
	default:
		h.logger.Warn("gateway queue full, dropping event", zap.String("event", event), zap.String("room", room))
	}
}

// ClientCount returns the number of connected clients, optionally for one
// session room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room == "" {
		return len(h.sidRoom)
	}
	return h.roomCount[room]
}

// Rooms returns the number of sessions with at least one client.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomCount)
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}
