package hdlc

import (
	"fmt"
	"time"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/llc"
	"k8s.io/utils/ptr"
)

type AckOptions struct {
	// DeviationMinutes goes into the datetime of the acknowledgment, nil means -180.
	DeviationMinutes *int16
	// FCSBigEndian stores HCS and FCS high byte first. Default is low byte
	// first, the HDLC wire order.
	FCSBigEndian bool
}

// AckAddress builds the acknowledgment address field out of an inbound frame:
// 4 bytes of meter address (offset 4) followed by our 1 byte address (offset 3).
func AckAddress(raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("%w: %d bytes, need 8 for addressing", base.ErrFrameTooShort, len(raw))
	}
	a := make([]byte, 0, 5)
	a = append(a, raw[4:8]...)
	return append(a, raw[3]), nil
}

// BuildAck builds the acknowledgment of a data notification:
//
//	7E A0 len address 13 HCS E6 E7 00 10 invoke(4) 0C datetime(13) FCS 7E
//
// Only the low three bytes of invoke are sent, the priority byte is zero.
func BuildAck(address []byte, invoke uint32, now time.Time, opts AckOptions) ([]byte, error) {
	if len(address) == 0 {
		return nil, fmt.Errorf("%w: empty address field", base.ErrResponseConstruction)
	}
	dev := ptr.Deref(opts.DeviationMinutes, base.DefaultDeviationMinutes)

	pdu := make([]byte, 0, 19)
	invoke &= base.InvokeIdMask
	pdu = append(pdu, base.ResponseInvokeTag, byte(invoke>>24), byte(invoke>>16), byte(invoke>>8), byte(invoke))
	year := now.Year()
	pdu = append(pdu, base.ResponseDateTimeTag,
		byte(year>>8), byte(year), byte(now.Month()), byte(now.Day()), 0xff,
		byte(now.Hour()), byte(now.Minute()), byte(now.Second()), 0xff,
		byte(uint16(dev)>>8), byte(uint16(dev)), 0x00, 0x00)

	info := llc.Wrap(llc.DirectionResponse, pdu)
	length := len(address) + 1 + len(info) + 6 // control byte is part of the information field
	if length > 0xff {
		return nil, fmt.Errorf("%w: frame too long (%d)", base.ErrResponseConstruction, length)
	}

	fr := make([]byte, 0, length+2)
	fr = append(fr, base.HdlcFlag, base.HdlcFrameFormat, byte(length))
	fr = append(fr, address...)
	fr = append(fr, base.HdlcUIFinal)
	fr = putFCS(fr, ComputeFCS(fr[1:]), opts.FCSBigEndian)
	fr = append(fr, info...)
	fr = putFCS(fr, ComputeFCS(fr[1:]), opts.FCSBigEndian)
	return append(fr, base.HdlcFlag), nil
}

func putFCS(d []byte, fcs uint16, be bool) []byte {
	if be {
		return append(d, byte(fcs>>8), byte(fcs))
	}
	return append(d, byte(fcs), byte(fcs>>8))
}
