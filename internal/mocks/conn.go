package mocks

import "sync"

// ConnRecorder satisfies presence.Conn and records every frame written to it,
// so tests can assert on fan-out without a real websocket.
type ConnRecorder struct {
	mu       sync.Mutex
	Frames   []interface{}
	WriteErr error
	Closed   bool
}

func (c *ConnRecorder) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.Frames = append(c.Frames, v)
	return nil
}

func (c *ConnRecorder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// Written returns a snapshot of the recorded frames.
func (c *ConnRecorder) Written() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.Frames))
	copy(out, c.Frames)
	return out
}
