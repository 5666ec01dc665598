package live

import (
	"context"
	"encoding/json"
	"net/http"

	pkgredis "github.com/fieldtrace/core/internal/pkg/redis"
	"github.com/google/uuid"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	namespaceWorker = "/worker"

	redisChanLocate = "ft:gateway:locate"

	eventGatewayConnect  = "GATEWAY_CONNECT"
	eventAuthFailed      = "AUTH_FAILED"
	eventRequestLocation = "REQUEST_LOCATION"

	messageAppState = "app_state"
)

// messagePayload is the envelope for all server-to-device messages.
type messagePayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// locateRequest is fanned out over Redis so the instance holding the
// worker's socket can deliver a location request issued elsewhere.
type locateRequest struct {
	Origin    string `json:"origin"`
	WorkerID  string `json:"workerId"`
	JourneyID string `json:"journeyId"`
}

// TokenValidator checks a handshake token and returns the worker id.
type TokenValidator func(token string) (workerID string, ok bool)

// Hub exposes the in-process Registry over socket.io and fans location
// requests out to sibling instances over Redis. It satisfies
// ConnectionDirectory; sweep and admin code consume the interface only.
type Hub struct {
	*Registry

	instanceID string
	rc         *pkgredis.Client
	logger     *zap.Logger
	sio        *socketio.Server
	validate   TokenValidator
	onAppState func(workerID, state string)
}

// OnAppState registers a callback invoked after each app-state update,
// letting the monitor layer persist the last reported state.
func (h *Hub) OnAppState(fn func(workerID, state string)) {
	h.onAppState = fn
}

// NewHub creates the hub and wires the /worker namespace.
func NewHub(rc *pkgredis.Client, logger *zap.Logger, validate TokenValidator) *Hub {
	h := &Hub{
		Registry:   NewRegistry(),
		instanceID: uuid.New().String(),
		rc:         rc,
		logger:     logger,
		sio:        socketio.NewServer(nil, nil),
		validate:   validate,
	}
	h.registerNamespace()
	return h
}

// Run blocks on the Redis subscriber until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.sio.Close(nil)

	if h.rc == nil {
		<-ctx.Done()
		return
	}

	pubsub := h.rc.Subscribe(ctx, redisChanLocate)
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
			var req locateRequest
			if err := json.Unmarshal([]byte(redisMsg.Payload), &req); err != nil {
				continue
			}
			if req.Origin == h.instanceID {
				continue
			}
			// Deliver only if this instance holds the socket.
			h.Registry.RequestLocation(req.WorkerID, req.JourneyID)
		}
	}
}

// RequestLocation tries the local registry first. On a local miss the
// request is published to sibling instances, but the result stays false:
// this instance cannot confirm reachability, and delivery is best-effort
// either way.
func (h *Hub) RequestLocation(workerID, journeyID string) bool {
	if h.Registry.RequestLocation(workerID, journeyID) {
		return true
	}
	if h.rc != nil {
		data, err := json.Marshal(locateRequest{
			Origin:    h.instanceID,
			WorkerID:  workerID,
			JourneyID: journeyID,
		})
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
			defer cancel()
			if err := h.rc.Publish(ctx, redisChanLocate, string(data)); err != nil && h.logger != nil {
				h.logger.Warn("gateway locate publish failed", zap.Error(err))
			}
		}
	}
	return false
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}

var _ ConnectionDirectory = (*Hub)(nil)
