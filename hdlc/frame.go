package hdlc

import (
	"fmt"

	"github.com/cybroslabs/dlms-push-listener/base"
)

const (
	flag       = 0x7e
	formatMask = 0xf0
	formatType = 0xa0
	segmentBit = 0x08
	finalBit   = 0x10
	maxLength  = 0x7ff
)

// Address is one HDLC address field, 1, 2 or 4 bytes long, last byte carrying the termination bit.
type Address struct {
	Raw   []byte
	Upper uint16 // logical
	Lower uint16 // physical
}

// Value folds the address into a single number, upper part shifted by 7 or 14 bits
// depending on the address length.
func (a Address) Value() uint32 {
	switch len(a.Raw) {
	case 1:
		return uint32(a.Upper)
	case 2:
		return uint32(a.Upper)<<7 | uint32(a.Lower)
	default:
		return uint32(a.Upper)<<14 | uint32(a.Lower)
	}
}

// Frame is a parsed inbound HDLC frame. Slices point into the parsed buffer.
type Frame struct {
	Segmented   bool
	Length      int
	Destination Address
	Source      Address
	Control     byte
	HCS         uint16
	FCS         uint16
	HCSValid    bool
	FCSValid    bool
	Info        []byte
	Raw         []byte // whole frame including both flags
}

// Final reports the poll/final bit of the control field.
func (f *Frame) Final() bool {
	return f.Control&finalBit != 0
}

// UI reports an unnumbered information frame.
func (f *Frame) UI() bool {
	return f.Control&^finalBit == 0x03
}

// Parse parses the first frame found at the start of buf. buf has to start with
// the opening flag, bytes after the closing flag are ignored. With verify set,
// a HCS or FCS mismatch is returned as base.ErrChecksum, otherwise only reported
// through HCSValid and FCSValid.
func Parse(buf []byte, verify bool) (*Frame, error) {
	if len(buf) < base.MinFrameLength-1 {
		return nil, fmt.Errorf("%w: %d bytes", base.ErrFrameTooShort, len(buf))
	}
	if buf[0] != flag {
		return nil, fmt.Errorf("%w: missing opening flag", base.ErrInvalidFrame)
	}
	if buf[1]&formatMask != formatType {
		return nil, fmt.Errorf("%w: invalid frame format %02X", base.ErrInvalidFrame, buf[1])
	}
	length := int(buf[1]&7)<<8 | int(buf[2])
	if length < 7 {
		return nil, fmt.Errorf("%w: invalid frame length %d", base.ErrInvalidFrame, length)
	}
	if len(buf) < length+2 {
		return nil, fmt.Errorf("%w: declared %d bytes, got %d", base.ErrFrameTooShort, length+2, len(buf))
	}
	if buf[length+1] != flag {
		return nil, fmt.Errorf("%w: there is no closing flag", base.ErrInvalidFrame)
	}

	ori := buf[1 : length+1]
	f := &Frame{
		Segmented: ori[0]&segmentBit != 0,
		Length:    length,
		Raw:       buf[:length+2],
	}
	offset := 2
	var err error
	f.Destination, offset, err = parseAddress(ori, offset)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	f.Source, offset, err = parseAddress(ori, offset)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if len(ori) < offset+3 {
		return nil, fmt.Errorf("%w: no room for control and fcs", base.ErrFrameTooShort)
	}
	f.Control = ori[offset]
	f.FCS = uint16(ori[len(ori)-2]) | uint16(ori[len(ori)-1])<<8
	rem := len(ori) - offset
	switch {
	case rem == 3: // control and fcs only
		f.FCSValid = ComputeFCS(ori[:len(ori)-2]) == f.FCS
		f.HCSValid = f.FCSValid
	case rem == 4:
		return nil, fmt.Errorf("%w: invalid frame length", base.ErrInvalidFrame)
	default:
		f.HCS = uint16(ori[offset+1]) | uint16(ori[offset+2])<<8
		hcs, fcs := crc16HeaderFrame(ori[:len(ori)-2], offset+1)
		f.HCSValid = hcs == f.HCS
		f.FCSValid = fcs == f.FCS
		f.Info = ori[offset+3 : len(ori)-2]
	}
	if verify {
		if !f.HCSValid {
			return f, fmt.Errorf("%w: hcs mismatch", base.ErrChecksum)
		}
		if !f.FCSValid {
			return f, fmt.Errorf("%w: fcs mismatch", base.ErrChecksum)
		}
	}
	return f, nil
}

func parseAddress(ori []byte, offset int) (a Address, next int, err error) {
	for i := 0; i < 4; i++ {
		if offset+i >= len(ori) {
			return a, offset, fmt.Errorf("%w: truncated address field", base.ErrFrameTooShort)
		}
		if ori[offset+i]&1 == 0 {
			continue
		}
		raw := ori[offset : offset+i+1]
		switch len(raw) {
		case 1:
			a.Upper = uint16(raw[0] >> 1)
		case 2:
			a.Upper = uint16(raw[0] >> 1)
			a.Lower = uint16(raw[1] >> 1)
		case 4:
			a.Upper = uint16(raw[0]>>1)<<7 | uint16(raw[1]>>1)
			a.Lower = uint16(raw[2]>>1)<<7 | uint16(raw[3]>>1)
		default:
			return a, offset, fmt.Errorf("%w: premature termination bit in address field", base.ErrInvalidFrame)
		}
		a.Raw = raw
		return a, offset + len(raw), nil
	}
	return a, offset, fmt.Errorf("%w: there is no termination bit in address field", base.ErrInvalidFrame)
}
