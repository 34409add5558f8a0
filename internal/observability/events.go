package observability

// WSEventsRoutingKey routes websocket lifecycle envelopes.
const WSEventsRoutingKey = "ws_events.relay"

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// WSEventPayload builds the envelope payload shared by ws_connect,
// ws_disconnect and ws_error events.
func WSEventPayload(event, connID string, userID int64, deviceID, ip string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     connID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   userID,
			"device_id": deviceID,
			"ip":        ip,
		},
	}
}
