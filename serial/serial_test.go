package serial

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/codec"
	"github.com/cybroslabs/dlms-push-listener/hdlc"
	"github.com/cybroslabs/dlms-push-listener/internal/frametest"
	"github.com/cybroslabs/dlms-push-listener/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
)

type fakePort struct {
	r      io.Reader
	mu     sync.Mutex
	w      bytes.Buffer
	closed bool
}

func (f *fakePort) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w.Write(p)
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestServeFrames(t *testing.T) {
	var stream []byte
	stream = append(stream, 0x00, 0x55) // line noise
	stream = append(stream, frametest.PushFrame(frametest.ObisPushAPDU(0xc0000001))...)
	stream = append(stream, frametest.PushFrame(frametest.ObisPushAPDU(0xc0000002))...)
	port := &fakePort{r: bytes.NewReader(stream)}

	var cfg *serial.Config
	l := newListener(base.SerialStreamSettings{Device: "/dev/ttyUSB0", BaudRate: 2400, Parity: base.SerialEvenParity},
		message.NewProcessor(codec.NewHDLCDecoder(true), nil),
		func(c *serial.Config) (io.ReadWriteCloser, error) {
			cfg = c
			return port, nil
		})

	require.NoError(t, l.Serve(context.Background()))
	require.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Name)
	assert.Equal(t, 2400, cfg.Baud)
	assert.Equal(t, serial.ParityEven, cfg.Parity)

	out := port.w.Bytes()
	require.Len(t, out, 72)
	r := hdlc.NewFrameReader(bytes.NewReader(out))
	for _, inv := range []byte{1, 2} {
		fr, err := r.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, inv, fr[18])
	}
	assert.Equal(t, base.Stats{Received: 2, Answered: 2}, l.Stats())
	assert.Equal(t, "/dev/ttyUSB0", l.Addr())

	require.NoError(t, l.Close())
	assert.True(t, port.closed)
}

func TestServeOpenError(t *testing.T) {
	l := newListener(base.SerialStreamSettings{Device: "/dev/none"}, nil,
		func(*serial.Config) (io.ReadWriteCloser, error) { return nil, errors.New("no such device") })
	assert.ErrorContains(t, l.Serve(context.Background()), "/dev/none")
}

func TestConfig(t *testing.T) {
	c, err := Config(base.SerialStreamSettings{Device: "COM1"})
	require.NoError(t, err)
	assert.Equal(t, &serial.Config{Name: "COM1", Baud: 9600, Size: 8, Parity: serial.ParityNone, StopBits: serial.Stop1}, c)

	c, err = Config(base.SerialStreamSettings{
		Device: "COM1", BaudRate: 115200, DataBits: base.Serial7DataBits,
		Parity: base.SerialOddParity, StopBits: base.SerialTwoStopBits,
	})
	require.NoError(t, err)
	assert.Equal(t, byte(7), c.Size)
	assert.Equal(t, serial.ParityOdd, c.Parity)
	assert.Equal(t, serial.Stop2, c.StopBits)

	for _, s := range []base.SerialStreamSettings{
		{DataBits: 6},
		{Parity: 9},
		{StopBits: 9},
	} {
		_, err := Config(s)
		assert.Error(t, err)
	}
}
