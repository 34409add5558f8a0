// Package presence maps stable user identities to their live transport
// connection. The mapping is process-local and in-memory; scaling out across
// processes needs an external shared registry in front of it.
package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"messenger-service/internal/observability"
)

// Conn is the write side of a transport connection. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Client wraps a transport connection with serialized writes, so fan-out
// from concurrent intents and callbacks to the owner never interleave.
type Client struct {
	conn Conn
	info ConnInfo
	mu   sync.Mutex
}

// NewClient wraps a connection.
func NewClient(conn Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// WriteJSON writes one frame; writes are serialized per connection.
func (c *Client) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Info returns the handshake metadata.
func (c *Client) Info() ConnInfo {
	return c.info
}

// Directory is the live identity to connection map.
type Directory struct {
	mu     sync.RWMutex
	online map[int64]*Client
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{online: make(map[int64]*Client)}
}

// Register stores the live connection for a known identity and marks the
// user online. Anonymous connections (userID <= 0) are permitted but
// untracked. A second registration for the same identity replaces the first.
func (d *Directory) Register(userID int64, client *Client) {
	if userID <= 0 || client == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.online[userID] = client
}

// Resolve returns the live connection for a user; absence means offline.
func (d *Directory) Resolve(userID int64) (*Client, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	client, ok := d.online[userID]
	return client, ok
}

// IsOnline reports whether the user has a live connection.
func (d *Directory) IsOnline(userID int64) bool {
	_, ok := d.Resolve(userID)
	return ok
}

// Unregister marks the user offline. Idempotent: duplicate disconnects are
// no-ops.
func (d *Directory) Unregister(userID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.online, userID)
}

// UnregisterClient removes the entry only if it still belongs to the given
// client, so a stale disconnect cannot evict a replacement connection.
func (d *Directory) UnregisterClient(userID int64, client *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if current, ok := d.online[userID]; ok && current == client {
		delete(d.online, userID)
	}
}

// Send delivers one event to the user's resolved connection. Offline targets
// are silently dropped: delivery is best-effort and the persisted state
// change has already succeeded. A write failure closes and evicts the
// connection.
func (d *Directory) Send(ctx context.Context, userID int64, event interface{}) bool {
	client, ok := d.Resolve(userID)
	if !ok {
		return false
	}

	if err := client.WriteJSON(event); err != nil {
		log.Printf("websocket write error user=%d: %v", userID, err)
		_ = client.Close()
		d.UnregisterClient(userID, client)
		d.publishWSError(ctx, client.Info(), err)
		return false
	}
	return true
}

func (d *Directory) publishWSError(ctx context.Context, info ConnInfo, err error) {
	observability.IncWSEvent("ws_error")
	payload := observability.WSEventPayload(
		"ws_error",
		info.ConnID,
		info.UserID,
		info.DeviceID,
		info.IP,
		time.Since(info.ConnectedAt).Milliseconds(),
		err.Error(),
	)
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, observability.WSEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
}
