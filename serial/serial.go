// Package serial reads pushes from a serial line, typically an optical probe or
// the P1/HAN port of a meter, and writes acknowledgments back to it.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/hdlc"
	"github.com/tarm/serial"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type opener func(*serial.Config) (io.ReadWriteCloser, error)

func openPort(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(c)
}

type serialListener struct {
	settings  base.SerialStreamSettings
	processor base.Processor
	open      opener
	logger    *zap.SugaredLogger

	mu     sync.Mutex
	port   io.ReadWriteCloser
	closed *atomic.Bool

	received *atomic.Int64
	answered *atomic.Int64
	failed   *atomic.Int64
}

// New creates a listener on settings.Device, the port is opened by Serve.
func New(settings base.SerialStreamSettings, processor base.Processor) base.Listener {
	return newListener(settings, processor, openPort)
}

func newListener(settings base.SerialStreamSettings, processor base.Processor, open opener) *serialListener {
	return &serialListener{
		settings:  settings,
		processor: processor,
		open:      open,
		closed:    atomic.NewBool(false),
		received:  atomic.NewInt64(0),
		answered:  atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
	}
}

func (s *serialListener) logf(format string, v ...any) {
	if s.logger != nil {
		s.logger.Infof(format, v...)
	}
}

func (s *serialListener) SetLogger(logger *zap.SugaredLogger) {
	s.logger = logger
}

func (s *serialListener) Addr() string {
	return s.settings.Device
}

func (s *serialListener) Stats() base.Stats {
	return base.Stats{Received: s.received.Load(), Answered: s.answered.Load(), Failed: s.failed.Load()}
}

// Config translates settings into the port configuration, 8N1 when unset.
func Config(settings base.SerialStreamSettings) (*serial.Config, error) {
	c := &serial.Config{
		Name:        settings.Device,
		Baud:        settings.BaudRate,
		ReadTimeout: settings.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	switch settings.DataBits {
	case 0, base.Serial8DataBits:
	case base.Serial7DataBits:
		c.Size = 7
	default:
		return nil, fmt.Errorf("unsupported data bits %d", settings.DataBits)
	}
	switch settings.Parity {
	case 0, base.SerialNoParity:
	case base.SerialOddParity:
		c.Parity = serial.ParityOdd
	case base.SerialEvenParity:
		c.Parity = serial.ParityEven
	case base.SerialMarkParity:
		c.Parity = serial.ParityMark
	case base.SerialSpaceParity:
		c.Parity = serial.ParitySpace
	default:
		return nil, fmt.Errorf("unsupported parity %d", settings.Parity)
	}
	switch settings.StopBits {
	case 0, base.SerialOneStopBit:
	case base.SerialTwoStopBits:
		c.StopBits = serial.Stop2
	case base.SerialOneAndHalfStopBits:
		c.StopBits = serial.Stop1Half
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", settings.StopBits)
	}
	if c.Baud == 0 {
		c.Baud = 9600
	}
	return c, nil
}

// Serve returns nil when the device reports EOF or the listener is closed.
func (s *serialListener) Serve(ctx context.Context) error {
	cfg, err := Config(s.settings)
	if err != nil {
		return err
	}
	port, err := s.open(cfg)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", s.settings.Device, err)
	}
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = port.Close()
		return nil
	}
	s.port = port
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.logf("Serial listener started on %s, %d baud", cfg.Name, cfg.Baud)
	r := hdlc.NewFrameReader(port)
	for {
		fr, err := r.ReadFrame()
		if err != nil {
			switch {
			case s.closed.Load():
				return nil
			case errors.Is(err, io.EOF):
				s.logf("EOF from %s", s.settings.Device)
				return nil
			case errors.Is(err, base.ErrInvalidFrame), errors.Is(err, io.ErrNoProgress):
				s.logf("Skipping garbage on %s: %v", s.settings.Device, err)
				continue
			}
			return fmt.Errorf("error while reading frame: %w", err)
		}
		s.received.Inc()
		if n := r.Skipped(); n > 0 {
			s.logf("%d bytes skipped before frame", n)
		}
		if s.logger != nil {
			s.logger.Debugf("RX (%s): %6d %X", s.settings.Device, len(fr), fr)
		}
		resp := s.processor.Process(fr, s.settings.Device, 0)
		if resp == nil {
			continue
		}
		if _, err := port.Write(resp); err != nil {
			s.failed.Inc()
			s.logf("Write to %s failed: %v", s.settings.Device, err)
			continue
		}
		s.answered.Inc()
		if s.logger != nil {
			s.logger.Debugf("TX (%s): %6d %X", s.settings.Device, len(resp), resp)
		}
	}
}

func (s *serialListener) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
