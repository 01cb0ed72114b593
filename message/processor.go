// Package message classifies inbound buffers and answers data notifications.
package message

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/codec"
	"github.com/cybroslabs/dlms-push-listener/enrich"
	"github.com/cybroslabs/dlms-push-listener/hdlc"
	"go.uber.org/zap"
	"k8s.io/utils/ptr"
)

var autoconnectPattern = regexp.MustCompile(`<sn=(\S+)\s+ip=(\d+\.\d+\.\d+\.\d+)\s+pt=(\d+)>`)

// ParseAutoconnect finds an autoconnect announcement anywhere in raw.
func ParseAutoconnect(raw []byte) (Autoconnect, bool) {
	m := autoconnectPattern.FindSubmatch(raw)
	if m == nil {
		return Autoconnect{}, false
	}
	port, err := strconv.ParseUint(string(m[3]), 10, 16)
	if err != nil {
		return Autoconnect{}, false
	}
	return Autoconnect{SerialNumber: string(m[1]), IP: string(m[2]), Port: uint16(port)}, true
}

type Processor struct {
	decoder codec.Decoder
	events  Events
	logger  *zap.SugaredLogger
	now     func() time.Time
	ack     hdlc.AckOptions
}

type Option func(*Processor)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock replaces time.Now, the clock goes into acknowledgments and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// WithDeviation sets the deviation in minutes written into acknowledgments.
func WithDeviation(minutes int16) Option {
	return func(p *Processor) {
		p.ack.DeviationMinutes = ptr.To(minutes)
	}
}

// WithFCSBigEndian writes acknowledgment checksums high byte first.
func WithFCSBigEndian(be bool) Option {
	return func(p *Processor) {
		p.ack.FCSBigEndian = be
	}
}

// NewProcessor creates a processor, events may be nil.
func NewProcessor(decoder codec.Decoder, events Events, opts ...Option) *Processor {
	if events == nil {
		events = EventsFunc{}
	}
	p := &Processor{
		decoder: decoder,
		events:  events,
		logger:  zap.NewNop().Sugar(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process handles one inbound buffer and returns the acknowledgment to send, nil
// if there is nothing to send. It never fails, problems are logged.
func (p *Processor) Process(raw []byte, peer string, localPort int) (resp []byte) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("panic processing %d bytes from %s (port %d): %v", len(raw), peer, localPort, r)
			resp = nil
		}
	}()

	resp, err := p.process(raw, peer, localPort)
	if err != nil {
		if errors.Is(err, base.ErrMissingInvokeId) || errors.Is(err, base.ErrFrameTooShort) {
			p.logger.Warnf("no response to %s (port %d): %v", peer, localPort, err)
		} else {
			p.logger.Errorf("processing message from %s (port %d) failed: %v", peer, localPort, err)
		}
		return nil
	}
	return resp
}

func (p *Processor) process(raw []byte, peer string, localPort int) ([]byte, error) {
	received := p.now()
	if a, ok := ParseAutoconnect(raw); ok {
		a.Peer, a.LocalPort, a.ReceivedAt = peer, localPort, received
		p.logger.Infof("autoconnect (port %d): <sn=%s ip=%s pt=%d>", localPort, a.SerialNumber, a.IP, a.Port)
		p.events.OnAutoconnect(a)
		return nil, nil
	}

	if len(raw) == 0 || raw[0] != base.HdlcFlag {
		p.logger.Infof("non DLMS message from %s (port %d): %s", peer, localPort, strings.ToValidUTF8(string(raw), "�"))
		return nil, nil
	}

	p.logger.Debugf("RX (%s): %6d %s", peer, len(raw), encodeHexString(raw))
	if len(raw) < base.MinFrameLength {
		return nil, fmt.Errorf("%w: %d bytes", base.ErrFrameTooShort, len(raw))
	}

	root, err := p.decoder.Decode(raw)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("%w: empty tree", base.ErrXmlDecodeFailure)
	}
	tree := enrich.Enrich(root)
	if p.logger.Desugar().Core().Enabled(zap.DebugLevel) {
		if x, err := tree.XML(); err == nil {
			p.logger.Debugf("decoded frame from %s (port %d):\n%s", peer, localPort, x)
		}
	}

	p.events.OnFrame(FrameEvent{Tree: tree, Raw: raw, Peer: peer, LocalPort: localPort, ReceivedAt: received})

	addr, err := hdlc.AckAddress(raw)
	if err != nil {
		return nil, err
	}
	inv, ok := tree.InvokeID()
	if !ok || !inv.HasInvokeID {
		return nil, fmt.Errorf("%w: no LongInvokeIdAndPriority in frame", base.ErrMissingInvokeId)
	}
	p.logger.Debugf("meter address %X, our address %X, invoke id %d, %s %s", raw[4:8], raw[3], inv.InvokeID, inv.Priority, inv.Service)

	ack, err := hdlc.BuildAck(addr, inv.AckInvoke(), p.now(), p.ack)
	if err != nil {
		return nil, err
	}
	p.logger.Debugf("TX (%s): %6d %s", peer, len(ack), encodeHexString(ack))
	return ack, nil
}

func encodeHexString(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
