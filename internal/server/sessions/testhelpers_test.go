package sessions

import (
	"io"
	"net"
	"testing"
	"time"
)

// echoPeer answers every probe frame on conn until it fails.
func echoPeer(conn net.Conn) {
	buf := make([]byte, ProbeSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		if _, err := conn.Write(buf); err != nil {
			return
		}
	}
}

// livePair returns a server-side channel whose client side echoes probes.
func livePair(t *testing.T) *Channel {
	t.Helper()
	server, client := net.Pipe()
	go echoPeer(client)
	t.Cleanup(func() { _ = server.Close(); _ = client.Close() })
	return NewChannel(server)
}

// deadPair returns a channel whose peer has hung up.
func deadPair(t *testing.T) *Channel {
	t.Helper()
	server, client := net.Pipe()
	_ = client.Close()
	t.Cleanup(func() { _ = server.Close() })
	return NewChannel(server)
}

// silentPair returns a channel whose peer never reads or writes.
func silentPair(t *testing.T) *Channel {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = server.Close(); _ = client.Close() })
	return NewChannel(server)
}

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
