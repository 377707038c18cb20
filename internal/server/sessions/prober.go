package sessions

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

const ProbeSize = protocol.ProbeSize

var (
	ErrChannelBusy   = errors.New("channel busy")
	ErrProbeMismatch = errors.New("probe reply does not match")
)

// Prober checks whether the peer behind ch still answers.
type Prober interface {
	Probe(ctx context.Context, ch *Channel) error
}

// EchoProber writes a random frame and expects the same bytes back within
// Timeout.
type EchoProber struct {
	Timeout time.Duration
}

func (p EchoProber) Probe(ctx context.Context, ch *Channel) error {
	ran, err := ch.TryExclusive(func(conn net.Conn) error {
		return p.exchange(ctx, conn)
	})
	if !ran {
		return ErrChannelBusy
	}
	return err
}

func (p EchoProber) exchange(ctx context.Context, conn net.Conn) error {
	deadline := time.Now().Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set deadline: %w", common.ErrTransport, err)
	}
	// a live session goes back to blocking I/O for payload streaming
	defer func() { _ = conn.SetDeadline(time.Time{}) }()

	frame := common.GenerateRandByteArray(ProbeSize)
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("%w: write probe: %w", common.ErrTransport, err)
	}

	reply := make([]byte, ProbeSize)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return fmt.Errorf("%w: read probe: %w", common.ErrTransport, err)
	}
	if !bytes.Equal(frame, reply) {
		return ErrProbeMismatch
	}
	return nil
}
