// Package udp answers pushes received as datagrams.
package udp

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"

	"github.com/cybroslabs/dlms-push-listener/base"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type udp struct {
	pc        net.PacketConn
	port      int
	processor base.Processor
	logger    *zap.SugaredLogger
	wg        sync.WaitGroup
	closed    *atomic.Bool

	received *atomic.Int64
	answered *atomic.Int64
	failed   *atomic.Int64
}

// New binds address. Each datagram is one message processed in its own
// goroutine, the response goes back to the sender.
func New(address string, processor base.Processor) (base.Listener, error) {
	pc, err := net.ListenPacket("udp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s failed: %w", address, err)
	}
	port := 0
	if a, ok := pc.LocalAddr().(*net.UDPAddr); ok {
		port = a.Port
	}
	return &udp{
		pc:        pc,
		port:      port,
		processor: processor,
		closed:    atomic.NewBool(false),
		received:  atomic.NewInt64(0),
		answered:  atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
	}, nil
}

func (u *udp) logf(format string, v ...any) {
	if u.logger != nil {
		u.logger.Infof(format, v...)
	}
}

func (u *udp) SetLogger(logger *zap.SugaredLogger) {
	u.logger = logger
}

func (u *udp) Addr() string {
	return u.pc.LocalAddr().String()
}

func (u *udp) Stats() base.Stats {
	return base.Stats{Received: u.received.Load(), Answered: u.answered.Load(), Failed: u.failed.Load()}
}

func (u *udp) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = u.Close() })
	defer stop()

	u.logf("UDP listener started on port %d", u.port)
	buf := make([]byte, base.MaxReceiveBuffer)
	for {
		rx, addr, err := u.pc.ReadFrom(buf)
		if err != nil {
			if u.closed.Load() {
				u.wg.Wait()
				return nil
			}
			return fmt.Errorf("receive failed: %w", err)
		}
		if rx == 0 {
			continue
		}
		u.received.Inc()
		if u.logger != nil {
			u.logger.Debugf("RX (%s): %6d %s", addr, rx, encodeHexString(buf[:rx]))
		}
		u.wg.Add(1)
		go u.handle(slices.Clone(buf[:rx]), addr)
	}
}

func (u *udp) handle(data []byte, addr net.Addr) {
	defer u.wg.Done()
	resp := u.processor.Process(data, addr.String(), u.port)
	if resp == nil {
		return
	}
	if _, err := u.pc.WriteTo(resp, addr); err != nil {
		u.failed.Inc()
		u.logf("Write to %s failed: %v", addr, err)
		return
	}
	u.answered.Inc()
	if u.logger != nil {
		u.logger.Debugf("TX (%s): %6d %s", addr, len(resp), encodeHexString(resp))
	}
}

func (u *udp) Close() error {
	if !u.closed.CompareAndSwap(false, true) {
		return nil
	}
	u.logf("UDP listener on port %d stopped", u.port)
	return u.pc.Close()
}

func encodeHexString(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
