package dlmsal

import (
	"encoding/binary"
	"fmt"

	"github.com/cybroslabs/dlms-push-listener/base"
)

// DataNotification is the unsolicited push APDU:
//
//	0F long-invoke-id-and-priority(4) date-time notification-body
type DataNotification struct {
	LongInvokeIdAndPriority uint32
	DateTime                []byte // 12 bytes or nil when absent
	Body                    DlmsData
}

// InvokeId returns the low three bytes of the invoke-id-and-priority field.
func (d *DataNotification) InvokeId() uint32 {
	return d.LongInvokeIdAndPriority & base.InvokeIdMask
}

// Priority returns the high byte of the invoke-id-and-priority field.
func (d *DataNotification) Priority() byte {
	return byte(d.LongInvokeIdAndPriority >> 24)
}

// DecodeDataNotification decodes apdu including the leading 0x0F tag.
// The optional date-time is accepted either bare (0C + 12 bytes) or
// as a tagged octet string (09 0C + 12 bytes).
func DecodeDataNotification(apdu []byte) (*DataNotification, error) {
	if len(apdu) < 6 {
		return nil, fmt.Errorf("%w: too short data notification", base.ErrFrameTooShort)
	}
	if base.CosemTag(apdu[0]) != base.TagDataNotification {
		return nil, fmt.Errorf("%w: not a data notification, tag %d", base.ErrInvalidFrame, apdu[0])
	}
	dn := &DataNotification{LongInvokeIdAndPriority: binary.BigEndian.Uint32(apdu[1:5])}
	off := 5
	switch apdu[off] {
	case 0x00:
		off++
	case 0x0c:
		if len(apdu) < off+13 {
			return nil, fmt.Errorf("%w: too short date-time", base.ErrFrameTooShort)
		}
		dn.DateTime = newcopy(apdu[off+1 : off+13])
		off += 13
	case byte(TagOctetString):
		if len(apdu) < off+2 {
			return nil, fmt.Errorf("%w: too short date-time", base.ErrFrameTooShort)
		}
		l := int(apdu[off+1])
		if len(apdu) < off+2+l {
			return nil, fmt.Errorf("%w: too short date-time", base.ErrFrameTooShort)
		}
		if l > 0 {
			dn.DateTime = newcopy(apdu[off+2 : off+2+l])
		}
		off += 2 + l
	default:
		return nil, fmt.Errorf("%w: unexpected date-time encoding %02X", base.ErrInvalidFrame, apdu[off])
	}
	if off >= len(apdu) {
		return nil, fmt.Errorf("%w: no notification body", base.ErrFrameTooShort)
	}
	body, _, err := DecodeData(apdu[off:])
	if err != nil {
		return nil, fmt.Errorf("notification body: %w", err)
	}
	dn.Body = body
	return dn, nil
}
