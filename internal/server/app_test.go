package server

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/logging"
	"github.com/dmitrijs2005/gophlicense/internal/protocol"
	"github.com/dmitrijs2005/gophlicense/internal/server/config"
	"github.com/dmitrijs2005/gophlicense/internal/server/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	image := filepath.Join(dir, "payload", "client.exe")
	offsets := filepath.Join(dir, "payload", "offsets.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(image), 0o700))
	require.NoError(t, os.WriteFile(image, []byte("MZ-image-bytes"), 0o600))
	require.NoError(t, os.WriteFile(offsets, []byte("entry 1a2b\nhook 0x40\n"), 0o600))

	c := &config.Config{}
	c.LoadDefaults()
	c.ListenAddr = freeAddr(t)
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = filepath.Join(dir, "data", "license.db")
	c.AdminName = "admin"
	c.AdminPassword = "s3cret-admin"
	c.PayloadImage = image
	c.PayloadOffsets = offsets
	c.MetricsAddr = ""
	c.EndpointAddrGRPC = ""
	c.ConnLogPath = filepath.Join(dir, "log", "conn.log")
	return c
}

func exchange(t *testing.T, addr string, req protocol.Request) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	b, err := req.Encode()
	require.NoError(t, err)
	_, err = conn.Write(b)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

func startApp(t *testing.T, c *config.Config) (cancel func()) {
	t.Helper()

	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)

	ctx, cancelFn := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", c.ListenAddr, 100*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 3*time.Second, 20*time.Millisecond)

	return func() {
		cancelFn()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("app did not stop within timeout")
		}
	}
}

func TestApp_EndToEnd(t *testing.T) {
	c := testConfig(t)
	stop := startApp(t, c)
	defer stop()

	admin := func(tag protocol.Tag, key string) protocol.Request {
		return protocol.Request{Tag: tag, Name: c.AdminName, Password: c.AdminPassword, Key: key}
	}

	assert.Equal(t, "Key added", exchange(t, c.ListenAddr, admin(protocol.TagAddKey, "KEY-ABCDEF01")))
	assert.Equal(t, "Key already exists", exchange(t, c.ListenAddr, admin(protocol.TagAddKey, "KEY-ABCDEF01")))
	assert.Equal(t, "Error", exchange(t, c.ListenAddr, protocol.Request{
		Tag: protocol.TagAddKey, Name: c.AdminName, Password: "guess", Key: "KEY-ABCDEF02",
	}))

	assert.Equal(t, "User successfully registered", exchange(t, c.ListenAddr, protocol.Request{
		Tag: protocol.TagRegister, Name: "alice", Password: "hunter22", Key: "KEY-ABCDEF01",
	}))
	assert.Equal(t, "Key already in use", exchange(t, c.ListenAddr, protocol.Request{
		Tag: protocol.TagRegister, Name: "bobby", Password: "hunter22", Key: "KEY-ABCDEF01",
	}))
	assert.Equal(t, "Key validated", exchange(t, c.ListenAddr, admin(protocol.TagValidate, "KEY-ABCDEF01")))
	assert.Equal(t, "Unknown request", exchange(t, c.ListenAddr, protocol.Request{Tag: 42}))

	conn, err := net.DialTimeout("tcp", c.ListenAddr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	b, err := protocol.Request{Tag: protocol.TagLogin, Name: "alice", Password: "hunter22"}.Encode()
	require.NoError(t, err)
	_, err = conn.Write(b)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	head := make([]byte, len("Logged in"))
	_, err = io.ReadFull(conn, head)
	require.NoError(t, err)
	assert.Equal(t, "Logged in", string(head))

	p, err := protocol.ReadPayload(conn)
	require.NoError(t, err)
	assert.Equal(t, []byte("MZ-image-bytes"), p.Image)
	assert.Equal(t, []uint64{0x1a2b, 0x40}, p.Offsets)

	assert.Equal(t, "Already logged in", exchange(t, c.ListenAddr, protocol.Request{
		Tag: protocol.TagLogin, Name: "alice", Password: "hunter22",
	}))

	logged, err := os.ReadFile(c.ConnLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"remote_ip":"127.0.0.1"`)
}

func TestNewApp_RejectsUnknownDriver(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDriver = "oracle"

	_, err := NewApp(context.Background(), c, logging.Nop{})
	require.Error(t, err)
}

func TestNewPayloadSource(t *testing.T) {
	c := testConfig(t)

	src, err := newPayloadSource(context.Background(), c)
	require.NoError(t, err)
	router, ok := src.(payload.Router)
	require.True(t, ok)
	assert.Nil(t, router.S3)

	c.PayloadImage = "s3://payloads/client.exe"
	c.S3RootUser = "minio"
	c.S3RootPassword = "minio123"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"

	src, err = newPayloadSource(context.Background(), c)
	require.NoError(t, err)
	router, ok = src.(payload.Router)
	require.True(t, ok)
	assert.NotNil(t, router.S3)
}

func TestIsSQLiteFilePath(t *testing.T) {
	assert.True(t, isSQLiteFilePath("data/license.db"))
	assert.False(t, isSQLiteFilePath(":memory:"))
	assert.False(t, isSQLiteFilePath("file:license.db?cache=shared"))
	assert.False(t, isSQLiteFilePath(""))
}
