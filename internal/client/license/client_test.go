package license

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one connection, decodes the request and hands the
// connection to serve.
func fakeServer(t *testing.T, serve func(conn net.Conn, req protocol.Request)) (addr string, got <-chan protocol.Request) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })

	reqs := make(chan protocol.Request, 1)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		req, err := protocol.ReadRequest(conn)
		if err != nil {
			_ = conn.Close()
			return
		}
		reqs <- req
		serve(conn, req)
	}()

	return lis.Addr().String(), reqs
}

func reply(text string) func(net.Conn, protocol.Request) {
	return func(conn net.Conn, _ protocol.Request) {
		_, _ = io.WriteString(conn, text)
		_ = conn.Close()
	}
}

func newTestClient(addr string) *Client {
	return NewClient(addr, time.Second, 2*time.Second)
}

func TestDo_SendsRecordAndReadsReply(t *testing.T) {
	addr, reqs := fakeServer(t, reply("Key added"))

	o, err := newTestClient(addr).AddKey(context.Background(), "admin", "s3cret", "KEY-12345678")
	require.NoError(t, err)
	assert.Equal(t, common.KeyAdded, o)

	req := <-reqs
	assert.Equal(t, protocol.TagAddKey, req.Tag)
	assert.Equal(t, "admin", req.Name)
	assert.Equal(t, "s3cret", req.Password)
	assert.Equal(t, "KEY-12345678", req.Key)
}

func TestRequestWrappers_UseTheirTags(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) (common.Outcome, error)
		tag  protocol.Tag
	}{
		{"register", func(c *Client) (common.Outcome, error) {
			return c.Register(context.Background(), "alice", "hunter22", "KEY-1")
		}, protocol.TagRegister},
		{"validate", func(c *Client) (common.Outcome, error) {
			return c.Validate(context.Background(), "admin", "pw", "KEY-1")
		}, protocol.TagValidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, reqs := fakeServer(t, reply("ok"))
			_, err := tt.call(newTestClient(addr))
			require.NoError(t, err)
			assert.Equal(t, tt.tag, (<-reqs).Tag)
		})
	}
}

func TestDo_EmptyReplyIsTransportError(t *testing.T) {
	addr, _ := fakeServer(t, reply(""))

	_, err := newTestClient(addr).Do(context.Background(), protocol.Request{Tag: protocol.TagValidate})
	require.ErrorIs(t, err, common.ErrTransport)
}

func TestDo_DialFailure(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	_, err = newTestClient(addr).Do(context.Background(), protocol.Request{Tag: protocol.TagValidate})
	require.ErrorIs(t, err, common.ErrTransport)
}

func TestDo_FieldTooLong(t *testing.T) {
	c := newTestClient("127.0.0.1:1")
	_, err := c.Register(context.Background(), strings.Repeat("n", 33), "pw", "key")
	require.ErrorIs(t, err, protocol.ErrFieldTooLong)
}

func TestLogin_ReceivesPayloadAndEchoesProbes(t *testing.T) {
	probe := bytes.Repeat([]byte{0xAB}, protocol.ProbeSize)
	echoed := make(chan []byte, 1)

	addr, _ := fakeServer(t, func(conn net.Conn, _ protocol.Request) {
		defer conn.Close()
		_, _ = io.WriteString(conn, string(common.LoggedIn))
		_, _ = protocol.WritePayload(conn, &protocol.Payload{Image: []byte("MZ"), Offsets: []uint64{7, 9}})

		_, _ = conn.Write(probe)
		back := make([]byte, protocol.ProbeSize)
		if _, err := io.ReadFull(conn, back); err == nil {
			echoed <- back
		}
	})

	o, sess, err := newTestClient(addr).Login(context.Background(), "alice", "hunter22")
	require.NoError(t, err)
	require.Equal(t, common.LoggedIn, o)
	require.NotNil(t, sess)
	assert.Equal(t, []byte("MZ"), sess.Payload.Image)
	assert.Equal(t, []uint64{7, 9}, sess.Payload.Offsets)

	probes := 0
	err = sess.ServeProbes(context.Background(), func() { probes++ })
	require.NoError(t, err, "server close ends the session cleanly")
	assert.Equal(t, 1, probes)

	select {
	case back := <-echoed:
		assert.Equal(t, probe, back)
	case <-time.After(2 * time.Second):
		t.Fatal("server never got the echo")
	}
}

func TestLogin_FailureOutcomes(t *testing.T) {
	for _, text := range []string{"Error", "Wrong password", "Already logged in", "Key expired"} {
		t.Run(text, func(t *testing.T) {
			addr, _ := fakeServer(t, reply(text))

			o, sess, err := newTestClient(addr).Login(context.Background(), "alice", "hunter22")
			require.NoError(t, err)
			assert.Nil(t, sess)
			assert.Equal(t, common.Outcome(text), o)
		})
	}
}

func TestLogin_TruncatedPayload(t *testing.T) {
	addr, _ := fakeServer(t, func(conn net.Conn, _ protocol.Request) {
		_, _ = io.WriteString(conn, string(common.LoggedIn))
		_, _ = conn.Write([]byte{1, 2, 3})
		_ = conn.Close()
	})

	o, sess, err := newTestClient(addr).Login(context.Background(), "alice", "hunter22")
	require.ErrorIs(t, err, common.ErrTransport)
	assert.Equal(t, common.LoggedIn, o)
	assert.Nil(t, sess)
}

func TestServeProbes_StopsOnCancel(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	sess := &Session{conn: client}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sess.ServeProbes(ctx, nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeProbes did not return after cancel")
	}
}

func TestReadLoginOutcome(t *testing.T) {
	tests := []struct {
		in      string
		want    common.Outcome
		wantErr bool
	}{
		{"Logged in", common.LoggedIn, false},
		{"Logged inTRAILING", common.LoggedIn, false},
		{"Error", common.GenericError, false},
		{"User doesn't exist", common.UserNotFound, false},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := readLoginOutcome(strings.NewReader(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
