package live

import (
	"encoding/json"
	"strings"
	"time"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

const redisPublishTimeout = 2 * time.Second

type inboundMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// socketConn adapts a socket.io socket to the directory's Conn.
type socketConn struct {
	client *socketio.Socket
}

func (c socketConn) Emit(event string, payload interface{}) error {
	return c.client.Emit(event, payload)
}

func (h *Hub) registerNamespace() {
	ns := h.sio.Of(namespaceWorker, nil)
	_ = ns.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}

		token := extractToken(client)
		workerID, ok := "", false
		if h.validate != nil && token != "" {
			workerID, ok = h.validate(token)
		}
		if !ok || workerID == "" {
			_ = client.Emit("message", messagePayload{Type: eventAuthFailed, Data: "auth failed"})
			client.Disconnect(true)
			return
		}

		h.Register(workerID, socketConn{client: client})
		_ = client.Emit("message", messagePayload{Type: eventGatewayConnect, Data: "WebSocket connected"})

		_ = client.On("message", func(eventArgs ...any) {
			msg, ok := parseInbound(eventArgs...)
			if !ok {
				return
			}
			switch msg.Type {
			case messageAppState:
				state := strFromAny(msg.Payload["state"])
				if state == "" {
					return
				}
				h.UpdateAppState(workerID, state)
				if h.onAppState != nil {
					h.onAppState(workerID, state)
				}
			}
		})

		_ = client.On("disconnect", func(_ ...any) {
			h.Unregister(workerID)
		})
	})
}

func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if token := firstValue(handshake.Query, "token"); token != "" {
		return token
	}
	return firstValue(handshake.Headers, "authorization")
}

func firstValue(values map[string][]string, key string) string {
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

func parseInbound(args ...any) (inboundMessage, bool) {
	if len(args) == 0 {
		return inboundMessage{}, false
	}

	var msg inboundMessage
	switch v := args[0].(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return inboundMessage{}, false
		}
	case map[string]interface{}:
		msg.Type = strFromAny(v["type"])
		if payload, ok := v["payload"].(map[string]interface{}); ok {
			msg.Payload = payload
		}
	default:
		return inboundMessage{}, false
	}

	if msg.Type == "" {
		return inboundMessage{}, false
	}
	if msg.Payload == nil {
		msg.Payload = map[string]interface{}{}
	}
	return msg, true
}

func strFromAny(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
