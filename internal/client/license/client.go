// Package license talks to the license server: it sends request records,
// reads textual responses, receives the payload after a successful login
// and answers liveness probes for as long as the session lives.
package license

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/protocol"
)

// maxResponse caps a textual response; the longest literal is far shorter.
const maxResponse = 256

type Client struct {
	addr         string
	dialTimeout  time.Duration
	replyTimeout time.Duration
	dial         func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewClient(addr string, dialTimeout, replyTimeout time.Duration) *Client {
	d := &net.Dialer{Timeout: dialTimeout}
	return &Client{
		addr:         addr,
		dialTimeout:  dialTimeout,
		replyTimeout: replyTimeout,
		dial:         d.DialContext,
	}
}

func (c *Client) Register(ctx context.Context, name, password, key string) (common.Outcome, error) {
	return c.Do(ctx, protocol.Request{Tag: protocol.TagRegister, Name: name, Password: password, Key: key})
}

func (c *Client) AddKey(ctx context.Context, adminName, adminPassword, key string) (common.Outcome, error) {
	return c.Do(ctx, protocol.Request{Tag: protocol.TagAddKey, Name: adminName, Password: adminPassword, Key: key})
}

func (c *Client) Validate(ctx context.Context, adminName, adminPassword, key string) (common.Outcome, error) {
	return c.Do(ctx, protocol.Request{Tag: protocol.TagValidate, Name: adminName, Password: adminPassword, Key: key})
}

// Do sends req on a fresh connection and returns the response text. The
// server closes the connection after answering.
func (c *Client) Do(ctx context.Context, req protocol.Request) (common.Outcome, error) {
	conn, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	out, err := io.ReadAll(io.LimitReader(conn, maxResponse))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", common.ErrTransport, err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%w: empty response", common.ErrTransport)
	}
	return common.Outcome(out), nil
}

// Login authenticates and, on success, returns the live session holding the
// payload. Any other outcome comes back with a nil session.
func (c *Client) Login(ctx context.Context, name, password string) (common.Outcome, *Session, error) {
	conn, err := c.send(ctx, protocol.Request{Tag: protocol.TagLogin, Name: name, Password: password})
	if err != nil {
		return "", nil, err
	}

	o, err := readLoginOutcome(conn)
	if err != nil || o != common.LoggedIn {
		_ = conn.Close()
		return o, nil, err
	}

	p, err := protocol.ReadPayload(conn)
	if err != nil {
		_ = conn.Close()
		return o, nil, fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return o, &Session{conn: conn, Payload: p}, nil
}

func (c *Client) send(ctx context.Context, req protocol.Request) (net.Conn, error) {
	b, err := req.Encode()
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", common.ErrTransport, c.addr, err)
	}
	if c.replyTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.replyTimeout))
	}

	if _, err := conn.Write(b); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: write request: %w", common.ErrTransport, err)
	}
	return conn, nil
}

// readLoginOutcome reads exactly the "Logged in" literal on success. Every
// other outcome is followed by the server closing the connection, so the
// rest is read to EOF.
func readLoginOutcome(r io.Reader) (common.Outcome, error) {
	head := make([]byte, len(common.LoggedIn))
	n, err := io.ReadFull(r, head)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF) && n > 0:
		return common.Outcome(head[:n]), nil
	default:
		return "", fmt.Errorf("%w: read response: %w", common.ErrTransport, err)
	}

	if bytes.Equal(head, []byte(common.LoggedIn)) {
		return common.LoggedIn, nil
	}

	rest, err := io.ReadAll(io.LimitReader(r, maxResponse))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", common.ErrTransport, err)
	}
	return common.Outcome(append(head, rest...)), nil
}
