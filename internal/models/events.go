package models

import "encoding/json"

// Envelope is one inbound intent frame on the websocket. Data is decoded into
// the event-specific payload struct at the relay boundary.
type Envelope struct {
	Event string          `json:"event"`
	AckID int64           `json:"ack_id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// Event is an outbound notification pushed to resolved connections.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Callback answers an intent on the requesting connection only. It is written
// when the intent carried an ack id.
type Callback struct {
	Event   string      `json:"event"`
	For     string      `json:"for"`
	AckID   int64       `json:"ack_id"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
