package license

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/protocol"
)

// Session is a logged-in connection. The server keeps it alive only while
// the client echoes its probes.
type Session struct {
	conn      net.Conn
	closeOnce sync.Once

	Payload *protocol.Payload
}

// ServeProbes echoes liveness frames until ctx is done or the server drops
// the connection. onProbe, if set, runs after each echoed frame. A server
// side close returns nil.
func (s *Session) ServeProbes(ctx context.Context, onProbe func()) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	frame := make([]byte, protocol.ProbeSize)
	for {
		if _, err := io.ReadFull(s.conn, frame); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%w: read probe: %w", common.ErrTransport, err)
		}
		if _, err := s.conn.Write(frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: echo probe: %w", common.ErrTransport, err)
		}
		if onProbe != nil {
			onProbe()
		}
	}
}

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}
