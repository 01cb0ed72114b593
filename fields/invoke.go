package fields

import (
	"fmt"
	"strconv"

	"github.com/cybroslabs/dlms-push-listener/base"
)

type InvokeInfo struct {
	HighByte    byte
	Priority    string // "Normal priority." or "High priority." or "Priority byte: 0x.."
	Service     string // "Confirmed service." or "Non-confirmed service." or "Service type unknown."
	Known       bool   // high byte is one of 40, 80, C0
	Confirmed   bool
	InvokeID    uint64
	HasInvokeID bool
}

// DecodeInvokeID decodes a LongInvokeIdAndPriority value: high byte is the
// priority and service class, the rest is the invoke-id. Non hex characters are
// ignored, at least 8 hex digits are required.
func DecodeInvokeID(s string) (InvokeInfo, bool) {
	var r InvokeInfo
	clean := CleanHex(s)
	if len(clean) < 8 {
		return r, false
	}
	hb, _ := strconv.ParseUint(clean[:2], 16, 8)
	r.HighByte = byte(hb)
	switch r.HighByte {
	case base.PriorityNormalConfirmed:
		r.Priority, r.Service, r.Known, r.Confirmed = "Normal priority.", "Confirmed service.", true, true
	case base.PriorityHighUnconfirmed:
		r.Priority, r.Service, r.Known = "High priority.", "Non-confirmed service.", true
	case base.PriorityHighConfirmed:
		r.Priority, r.Service, r.Known, r.Confirmed = "High priority.", "Confirmed service.", true, true
	default:
		r.Priority, r.Service = fmt.Sprintf("Priority byte: 0x%s", clean[:2]), "Service type unknown."
	}
	if id, err := strconv.ParseUint(clean[2:], 16, 64); err == nil {
		r.InvokeID, r.HasInvokeID = id, true
	}
	return r, true
}

// AckInvoke returns the invoke-id as sent back in the acknowledgment, low three bytes only.
func (i InvokeInfo) AckInvoke() uint32 {
	return uint32(i.InvokeID) & base.InvokeIdMask
}
