// Package gateway pushes explorer state to connected socket.io clients and
// fans events out to sibling instances over redis.
package gateway

import (
	"sync"

	"github.com/mx-space/memory-explorer/internal/pkg/metrics"
	pkgredis "github.com/mx-space/memory-explorer/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	Namespace    = "/explorer"
	redisChannel = "memory-explorer:events"

	EventExplorerState  = "EXPLORER_STATE"
	EventSlideshowState = "SLIDESHOW_STATE"
	EventNotice         = "NOTICE"
	eventConnect        = "GATEWAY_CONNECT"
	eventAuthFailed     = "AUTH_FAILED"

	queueSize = 256
)

// Message is the envelope used by hub broadcasts and redis fan-out.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room"`
	Origin  string      `json:"origin,omitempty"`
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clientMeta struct {
	sid  string
	room string
}

// TokenValidator maps a handshake token to the session room it may join.
type TokenValidator func(token string) (sessionID string, ok bool)

// Hub tracks connected clients per session room.
type Hub struct {
	mu sync.RWMutex

	sidRoom   map[string]string
	roomCount map[string]int

	broadcast  chan Message
	register   chan clientMeta
	unregister chan clientMeta
	done       chan struct{}

	origin   string
	rc       *pkgredis.Client
	logger   *zap.Logger
	metrics  *metrics.Metrics
	sio      *socketio.Server
	validate TokenValidator
	deliver  func(Message)
}

type HubOption func(*Hub)

func WithLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger.Named("Gateway")
		}
	}
}

func WithMetrics(m *metrics.Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// WithDeliver replaces the socket.io emitter, mostly for tests.
func WithDeliver(fn func(Message)) HubOption {
	return func(h *Hub) {
		if fn != nil {
			h.deliver = fn
		}
	}
}
