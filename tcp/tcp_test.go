package tcp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/cybroslabs/dlms-push-listener/codec"
	"github.com/cybroslabs/dlms-push-listener/hdlc"
	"github.com/cybroslabs/dlms-push-listener/internal/frametest"
	"github.com/cybroslabs/dlms-push-listener/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serve(t *testing.T, idle time.Duration) (*tcp, context.CancelFunc, chan error) {
	t.Helper()
	p := message.NewProcessor(codec.NewHDLCDecoder(true), nil)
	l, err := New("127.0.0.1:0", p, idle)
	require.NoError(t, err)
	l.SetLogger(zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()
	return l.(*tcp), cancel, done
}

func wait(t *testing.T, done chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServeAnswersPush(t *testing.T) {
	l, cancel, done := serve(t, 0)

	conn, err := net.Dial("tcp", l.Addr())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write(frametest.PushFrame(frametest.ObisPushAPDU(0xc000001a)))
	require.NoError(t, err)

	resp := make([]byte, 36)
	_, err = io.ReadFull(conn, resp)
	require.NoError(t, err)
	f, err := hdlc.Parse(resp, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02, 0x00, 0x23}, f.Destination.Raw)
	assert.Equal(t, byte(0x1a), resp[18])

	cancel()
	wait(t, done)

	s := l.Stats()
	assert.Equal(t, int64(1), s.Received)
	assert.Equal(t, int64(1), s.Answered)
	assert.Zero(t, s.Failed)

	// the connection was closed by the listener
	_, err = conn.Read(resp)
	assert.Error(t, err)
}

func TestServeIdleTimeout(t *testing.T) {
	l, _, done := serve(t, 50*time.Millisecond)

	conn, err := net.Dial("tcp", l.Addr())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	wait(t, done)
}

func TestNewBadAddress(t *testing.T) {
	_, err := New("127.0.0.1:-1", nil, 0)
	assert.Error(t, err)
}
