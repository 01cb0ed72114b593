// Package tcp accepts meter connections and answers pushes on the same connection.
package tcp

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cybroslabs/dlms-push-listener/base"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type tcp struct {
	ln          net.Listener
	port        int
	processor   base.Processor
	idleTimeout time.Duration
	logger      *zap.SugaredLogger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
	closed *atomic.Bool

	received      *atomic.Int64
	answered      *atomic.Int64
	failed        *atomic.Int64
	totalincoming *atomic.Int64
	totaloutgoing *atomic.Int64
}

// New binds address (host:port, port 0 picks a free one). Every accepted
// connection is served by its own goroutine, each read is handed to processor
// as one message. A non zero idleTimeout drops connections silent for that long.
func New(address string, processor base.Processor, idleTimeout time.Duration) (base.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s failed: %w", address, err)
	}
	port := 0
	if a, ok := ln.Addr().(*net.TCPAddr); ok {
		port = a.Port
	}
	return &tcp{
		ln:            ln,
		port:          port,
		processor:     processor,
		idleTimeout:   idleTimeout,
		conns:         make(map[net.Conn]struct{}),
		closed:        atomic.NewBool(false),
		received:      atomic.NewInt64(0),
		answered:      atomic.NewInt64(0),
		failed:        atomic.NewInt64(0),
		totalincoming: atomic.NewInt64(0),
		totaloutgoing: atomic.NewInt64(0),
	}, nil
}

func (t *tcp) logf(format string, v ...any) {
	if t.logger != nil {
		t.logger.Infof(format, v...)
	}
}

func (t *tcp) SetLogger(logger *zap.SugaredLogger) {
	t.logger = logger
}

func (t *tcp) Addr() string {
	return t.ln.Addr().String()
}

func (t *tcp) Stats() base.Stats {
	return base.Stats{Received: t.received.Load(), Answered: t.answered.Load(), Failed: t.failed.Load()}
}

func (t *tcp) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = t.Close() })
	defer stop()

	t.logf("TCP listener started on port %d", t.port)
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			if t.closed.Load() {
				t.wg.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		if !t.track(conn) {
			_ = conn.Close()
			continue
		}
		t.wg.Add(1)
		go t.serveConn(conn)
	}
}

func (t *tcp) track(conn net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return false
	}
	t.conns[conn] = struct{}{}
	return true
}

func (t *tcp) untrack(conn net.Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
	_ = conn.Close()
}

// Close stops accepting and closes live connections, blocked Serve returns nil.
func (t *tcp) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := t.ln.Close()

	t.mu.Lock()
	for c := range t.conns {
		_ = c.Close()
	}
	t.mu.Unlock()

	t.logf("TCP listener on port %d stopped, total bytes incoming: %v, outgoing: %v", t.port, t.totalincoming.Load(), t.totaloutgoing.Load())
	return err
}

func (t *tcp) serveConn(conn net.Conn) {
	defer t.wg.Done()
	defer t.untrack(conn)

	peer := conn.RemoteAddr().String()
	t.logf("Connection from %s on port %d", peer, t.port)

	buf := make([]byte, base.MaxReceiveBuffer)
	for {
		if t.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(t.idleTimeout))
		}
		rx, err := conn.Read(buf)
		if rx > 0 {
			t.received.Inc()
			t.totalincoming.Add(int64(rx))
			if t.logger != nil {
				t.logger.Debugf("RX (%s): %6d %s", peer, rx, encodeHexString(buf[:rx]))
			}
			if resp := t.processor.Process(slices.Clone(buf[:rx]), peer, t.port); resp != nil {
				if err := t.write(conn, peer, resp); err != nil {
					t.failed.Inc()
					t.logf("Write to %s failed: %v", peer, err)
					return
				}
				t.answered.Inc()
			}
		}
		if err != nil {
			var ne net.Error
			switch {
			case errors.Is(err, io.EOF), t.closed.Load():
				t.logf("Disconnected %s", peer)
			case errors.As(err, &ne) && ne.Timeout():
				t.logf("Dropping %s, idle for %v", peer, t.idleTimeout)
			default:
				t.failed.Inc()
				t.logf("Read from %s failed: %v", peer, err)
			}
			return
		}
	}
}

func (t *tcp) write(conn net.Conn, peer string, src []byte) error {
	for len(src) > 0 {
		n, err := conn.Write(src)
		if err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		t.totaloutgoing.Add(int64(n))
		if t.logger != nil {
			t.logger.Debugf("TX (%s): %6d %s", peer, n, encodeHexString(src[:n]))
		}
		src = src[n:]
	}
	return nil
}

func encodeHexString(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
