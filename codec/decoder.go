package codec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/dlmsal"
	"github.com/cybroslabs/dlms-push-listener/hdlc"
	"github.com/cybroslabs/dlms-push-listener/llc"
	"go.uber.org/zap"
)

// Decoder turns one raw inbound message into a tree.
type Decoder interface {
	Decode(raw []byte) (*Node, error)
}

// HDLCDecoder decodes HDLC framed DLMS messages into trees shaped like
//
//	HDLC
//	  TargetAddress, SourceAddress
//	  PDU
//	    DataNotification
//	      LongInvokeIdAndPriority, DateTime
//	      NotificationBody
//	        DataValue
//	          Structure, Array, OctetString, UInt32 ...
type HDLCDecoder struct {
	verify bool
	logger *zap.SugaredLogger
}

func NewHDLCDecoder(verifyChecksums bool) *HDLCDecoder {
	return &HDLCDecoder{verify: verifyChecksums}
}

func (d *HDLCDecoder) SetLogger(logger *zap.SugaredLogger) {
	d.logger = logger
}

func (d *HDLCDecoder) logf(format string, v ...any) {
	if d.logger != nil {
		d.logger.Debugf(format, v...)
	}
}

func (d *HDLCDecoder) Decode(raw []byte) (*Node, error) {
	f, err := hdlc.Parse(raw, d.verify)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", base.ErrXmlDecodeFailure, err)
	}
	if !f.HCSValid || !f.FCSValid {
		d.logf("checksum mismatch ignored, hcs valid: %v, fcs valid: %v", f.HCSValid, f.FCSValid)
	}

	root := NewNode("HDLC", Attr{Name: "len", Value: fmt.Sprintf("%X", f.Length)})
	root.Add(
		NewNode("TargetAddress", valueAttr(fmt.Sprintf("%X", f.Destination.Value()))),
		NewNode("SourceAddress", valueAttr(fmt.Sprintf("%X", f.Source.Value()))),
	)
	if len(f.Info) == 0 {
		return root.Add(NewNode(controlName(f.Control))), nil
	}

	apdu, dir, err := llc.Strip(f.Info)
	if err != nil { // some meters push without LLC
		apdu = f.Info
	} else {
		d.logf("llc %s header stripped", dir)
	}
	pdu, err := DecodeAPDU(apdu)
	if err != nil {
		return nil, err
	}
	return root.Add(pdu), nil
}

// DecodeAPDU decodes a bare APDU into a PDU node.
func DecodeAPDU(apdu []byte) (*Node, error) {
	if len(apdu) == 0 {
		return nil, fmt.Errorf("%w: empty apdu", base.ErrXmlDecodeFailure)
	}
	pdu := NewNode("PDU")
	tag := base.CosemTag(apdu[0])
	if tag != base.TagDataNotification {
		// recognized but not decoded further
		n := NewNode(tag.String(), valueAttr(encodeHex(apdu[1:])))
		if tag.String() == "Unknown" {
			n.Attrs = append(n.Attrs, Attr{Name: "Tag", Value: fmt.Sprintf("%02X", apdu[0])})
		}
		return pdu.Add(n), nil
	}

	dn, err := dlmsal.DecodeDataNotification(apdu)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", base.ErrXmlDecodeFailure, err)
	}
	n := NewNode(tag.String())
	n.Add(NewNode("LongInvokeIdAndPriority", valueAttr(fmt.Sprintf("%08X", dn.LongInvokeIdAndPriority))))
	if dn.DateTime != nil {
		n.Add(NewNode("DateTime", valueAttr(encodeHex(dn.DateTime))))
	}
	n.Add(NewNode("NotificationBody").Add(NewNode("DataValue").Add(DataNode(&dn.Body))))
	return pdu.Add(n), nil
}

// DataNode converts a decoded A-XDR item into a node; containers carry a hex Qty
// attribute, scalars the hex of their content as Value.
func DataNode(d *dlmsal.DlmsData) *Node {
	switch d.Tag {
	case dlmsal.TagArray, dlmsal.TagStructure, dlmsal.TagCompactArray:
		items := d.Items()
		n := NewNode(d.Tag.String(), Attr{Name: "Qty", Value: fmt.Sprintf("%02X", len(items))})
		for i := range items {
			n.Add(DataNode(&items[i]))
		}
		return n
	case dlmsal.TagNull, dlmsal.TagDontCare:
		return NewNode(d.Tag.String())
	case dlmsal.TagVisibleString, dlmsal.TagUTF8String:
		return NewNode(d.Tag.String(), valueAttr(d.Value.(string)))
	}
	return NewNode(d.Tag.String(), valueAttr(encodeHex(d.Raw)))
}

func valueAttr(v string) Attr {
	return Attr{Name: "Value", Value: v}
}

func encodeHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

func controlName(c byte) string {
	c &^= 0x10
	switch {
	case c == 0x83:
		return "Snrm"
	case c == 0x43:
		return "Disc"
	case c == 0x63:
		return "Ua"
	case c == 0x0f:
		return "Dm"
	case c == 0x87:
		return "Frmr"
	case c == 0x03:
		return "Ui"
	case c&0x01 == 0:
		return "I"
	case c&0x0f == 0x01:
		return "Rr"
	case c&0x0f == 0x05:
		return "Rnr"
	}
	return "Unknown"
}
