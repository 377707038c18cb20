package sessions

import (
	"net"
	"sync"
)

// Channel is a client connection shared between the login handler, which
// streams the payload, and the liveness sweeper. Exclusive use is
// serialized by a per-channel mutex.
type Channel struct {
	conn      net.Conn
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewChannel(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// Exclusive runs fn with sole use of the connection, waiting if needed.
func (c *Channel) Exclusive(fn func(conn net.Conn) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.conn)
}

// TryExclusive runs fn only if the connection is idle. ok is false when
// another holder is using it.
func (c *Channel) TryExclusive(fn func(conn net.Conn) error) (ok bool, err error) {
	if !c.mu.TryLock() {
		return false, nil
	}
	defer c.mu.Unlock()
	return true, fn(c.conn)
}

// RemoteAddr is the peer address, or "" when unknown.
func (c *Channel) RemoteAddr() string {
	if c == nil || c.conn == nil || c.conn.RemoteAddr() == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// Close closes the connection once. It does not wait for an exclusive
// holder: closing unblocks any pending read or write.
func (c *Channel) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
