package sessions

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoProber_LivePeer(t *testing.T) {
	p := EchoProber{Timeout: time.Second}
	require.NoError(t, p.Probe(context.Background(), livePair(t)))
}

func TestEchoProber_ClosedPeer(t *testing.T) {
	p := EchoProber{Timeout: time.Second}
	err := p.Probe(context.Background(), deadPair(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrTransport))
}

func TestEchoProber_SilentPeerTimesOut(t *testing.T) {
	p := EchoProber{Timeout: 50 * time.Millisecond}

	start := time.Now()
	err := p.Probe(context.Background(), silentPair(t))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEchoProber_WrongReply(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	go func() {
		buf := make([]byte, ProbeSize)
		if _, err := io.ReadFull(client, buf); err != nil {
			return
		}
		buf[0] ^= 0xff
		_, _ = client.Write(buf)
	}()

	p := EchoProber{Timeout: time.Second}
	err := p.Probe(context.Background(), NewChannel(server))
	assert.ErrorIs(t, err, ErrProbeMismatch)
}

func TestEchoProber_BusyChannel(t *testing.T) {
	ch := silentPair(t)
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = ch.Exclusive(func(net.Conn) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	p := EchoProber{Timeout: time.Second}
	assert.ErrorIs(t, p.Probe(context.Background(), ch), ErrChannelBusy)
}
