package hdlc

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/ghostiam/binstruct"
)

const maxBytesBefore7e = 1000

// minHeader is the frame format field: 4 bits type, segmentation bit, 11 bits length.
type minHeader struct {
	FormatLength uint16
}

func (h minHeader) length() int {
	return int(h.FormatLength & maxLength)
}

// FrameReader splits a byte stream (serial line, tcp stream) into HDLC frames.
type FrameReader struct {
	r        *bufio.Reader
	inFrame  bool // closing flag of the previous frame may open the next one
	hdr      [2]byte
	skipped  int
	lastSkip int
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, base.MaxReceiveBuffer)}
}

// Skipped returns number of bytes dropped while searching for the last frame start.
func (f *FrameReader) Skipped() int {
	return f.lastSkip
}

// ReadFrame returns the next complete frame including both flags.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	f.skipped = 0
	for {
		if !f.inFrame {
			if err := f.seekFlag(); err != nil {
				return nil, err
			}
		}
		f.inFrame = false

		b, err := f.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == flag { // doubled flag, this one opens
			f.inFrame = true
			continue
		}
		if b&formatMask != formatType {
			f.skipped++
			continue
		}
		f.hdr[0] = b
		if f.hdr[1], err = f.r.ReadByte(); err != nil {
			return nil, err
		}
		var h minHeader
		if err = binstruct.UnmarshalBE(f.hdr[:], &h); err != nil {
			return nil, fmt.Errorf("%w: %w", base.ErrInvalidFrame, err)
		}
		length := h.length()
		if length < 7 {
			f.skipped += 2
			continue
		}

		fr := make([]byte, length+2)
		fr[0] = flag
		fr[1] = f.hdr[0]
		fr[2] = f.hdr[1]
		if _, err = io.ReadFull(f.r, fr[3:]); err != nil {
			return nil, err
		}
		if fr[len(fr)-1] != flag {
			return nil, fmt.Errorf("%w: there is no closing flag", base.ErrInvalidFrame)
		}
		f.inFrame = true
		f.lastSkip = f.skipped
		return fr, nil
	}
}

func (f *FrameReader) seekFlag() error {
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return err
		}
		if b == flag {
			return nil
		}
		f.skipped++
		if f.skipped > maxBytesBefore7e {
			f.lastSkip = f.skipped
			f.skipped = 0
			return fmt.Errorf("%w: too many bytes before any 0x7e found", base.ErrInvalidFrame)
		}
	}
}
