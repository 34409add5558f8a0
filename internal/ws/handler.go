package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/relay"
)

// Handler upgrades HTTP requests to the single relay websocket, registers the
// identity in the presence directory and pumps inbound envelopes through the
// relay.
type Handler struct {
	directory *presence.Directory
	relay     *relay.Relay
}

// NewHandler constructs a Handler.
func NewHandler(directory *presence.Directory, r *relay.Relay) *Handler {
	return &Handler{directory: directory, relay: r}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs its read loop. The user_id query
// parameter carries the caller identity; connections without one stay
// anonymous and can issue intents but receive no fan-out.
func (h *Handler) Handle(c *gin.Context) {
	userID, _ := strconv.ParseInt(c.Query("user_id"), 10, 64)

	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := presence.ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := presence.NewClient(conn, info)
	h.directory.Register(userID, client)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, info, "ws_connect", "")

	go h.readLoop(context.WithoutCancel(ctx), conn, client, info)
}

// readLoop applies each connection's intents strictly in arrival order; the
// next frame is not read until the previous intent's callback is written.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, client *presence.Client, info presence.ConnInfo) {
	var closeReason string
	defer func() {
		h.directory.UnregisterClient(info.UserID, client)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, info, "ws_error", closeReason)
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			_ = client.WriteJSON(models.Callback{
				Event:   "callback",
				Success: false,
				Error:   "malformed envelope",
			})
			continue
		}

		// Explicit goodbye: unregister before the socket closes so fan-out
		// stops targeting this connection immediately.
		if env.Event == "end" {
			closeReason = "client end"
			return
		}

		cb := h.relay.Dispatch(ctx, info.UserID, env)
		if env.AckID != 0 {
			_ = client.WriteJSON(cb)
		}
	}
}

func (h *Handler) publishLifecycle(ctx context.Context, info presence.ConnInfo, event, reason string) {
	payload := observability.WSEventPayload(
		event,
		info.ConnID,
		info.UserID,
		info.DeviceID,
		info.IP,
		time.Since(info.ConnectedAt).Milliseconds(),
		reason,
	)
	_ = observability.PublishEvent(ctx, observability.WSEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
