package gateway

import (
	"strings"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

func (h *Hub) registerNamespace() {
	ns := h.sio.Of(Namespace, nil)
	_ = ns.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}

		room, ok := h.authorize(extractToken(client))
		if !ok {
			_ = client.Emit("message", gatewayPayload{Type: eventAuthFailed, Data: "auth failed"})
			client.Disconnect(true)
			return
		}

		sid := string(client.Id())
		client.Join(socketio.Room(room))
		h.track(h.register, clientMeta{sid: sid, room: room})
		_ = client.Emit("message", gatewayPayload{Type: eventConnect, Data: "WebSocket connected"})

		_ = client.On("disconnect", func(_ ...any) {
			h.track(h.unregister, clientMeta{sid: sid, room: room})
		})
	})
}

// track queues a connect or disconnect for the hub loop. Once Run has
// returned nothing drains the queues, so the update is dropped.
func (h *Hub) track(queue chan<- clientMeta, c clientMeta) bool {
	select {
	case queue <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) authorize(token string) (string, bool) {
	if token == "" || h.validate == nil {
		return "", false
	}
	room, ok := h.validate(token)
	if !ok || room == "" {
		return "", false
	}
	return room, true
}

func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	return tokenFromHandshake(handshake.Query, handshake.Headers)
}

func tokenFromHandshake(query, headers map[string][]string) string {
	if token := firstValueFromMultiMap(query, "token"); token != "" {
		return normalizeToken(token)
	}
	if token := firstValueFromMultiMap(headers, "x-session-token"); token != "" {
		return normalizeToken(token)
	}
	return normalizeToken(firstValueFromMultiMap(headers, "authorization"))
}

func firstValueFromMultiMap(values map[string][]string, key string) string {
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		if v := strings.TrimSpace(list[0]); v != "" {
			return v
		}
	}
	return ""
}

func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
