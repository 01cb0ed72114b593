// Package push extracts persisted records from annotated DataNotification trees.
//
// Two body shapes are recognized. An OBIS push carries an array of capture
// object structures followed by the captured values:
//
//	Structure
//	  Array            capture objects, OctetString obis each
//	  value 1 .. n-1   first capture object has no value
//
// A day push carries a logical name and a table of timestamped rows:
//
//	Structure
//	  OctetString      logical name, not 6 bytes long
//	  Array
//	    Structure      OctetString date-time, UInt32...
package push

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/codec"
	"github.com/cybroslabs/dlms-push-listener/dlmsal"
	"github.com/cybroslabs/dlms-push-listener/enrich"
	"github.com/cybroslabs/dlms-push-listener/fields"
	"k8s.io/utils/ptr"
)

type Kind string

const (
	KindObisPush Kind = "obis_push"
	KindDayPush  Kind = "day_push"
)

const timestampLayout = "2006-01-02T15:04:05-07:00"

type Result interface {
	Kind() Kind
	// InvokeID returns the invoke-id of the notification, nil when it has none.
	InvokeID() *uint64
}

// TypedValue is the JSON shape of a single captured value.
type TypedValue struct {
	Type    string       `json:"type"`
	Value   *string      `json:"value,omitempty"`
	Decimal string       `json:"decimal,omitempty"`
	Obis    string       `json:"obis,omitempty"`
	ASCII   *string      `json:"ascii,omitempty"`
	Qty     string       `json:"qty,omitempty"`
	Fields  []TypedValue `json:"fields,omitempty"`
	Items   []TypedValue `json:"items,omitempty"`
}

var (
	emptyValue   = TypedValue{Type: "Empty", Value: ptr.To("")}
	missingValue = TypedValue{Type: "Missing", Value: ptr.To("[missing]")}
)

type Record struct {
	Obis    string     `json:"obis"`
	Value   TypedValue `json:"value"`
	Comment string     `json:"comment"`
	Events  []string   `json:"events,omitempty"` // set bits of the event status word
}

type ObisPush struct {
	Invoke  *uint64  `json:"invoke_id"`
	Records []Record `json:"records"`
	// siblings after the values, not interpreted
	Extra int `json:"extra,omitempty"`
}

func (p *ObisPush) Kind() Kind        { return KindObisPush }
func (p *ObisPush) InvokeID() *uint64 { return p.Invoke }

type Entry struct {
	Timestamp string   `json:"timestamp"`
	Values    []uint32 `json:"values"`
}

type DayPush struct {
	Invoke      *uint64 `json:"invoke_id"`
	LogicalName string  `json:"logical_name"`
	Data        []Entry `json:"data"`
}

func (p *DayPush) Kind() Kind        { return KindDayPush }
func (p *DayPush) InvokeID() *uint64 { return p.Invoke }

func invokeID(t *enrich.Tree) *uint64 {
	i, ok := t.InvokeID()
	if !ok || !i.HasInvokeID {
		return nil
	}
	return ptr.To(i.InvokeID)
}

func dataValue(t *enrich.Tree) *codec.Node {
	if t == nil || t.Root == nil {
		return nil
	}
	return t.Root.Find("NotificationBody", "DataValue")
}

// IsDayPush reports whether the first Structure below the notification data
// starts with an OctetString that is not an OBIS code.
func IsDayPush(t *enrich.Tree) bool {
	dv := dataValue(t)
	if dv == nil {
		return false
	}
	var st *codec.Node
	dv.Walk(func(n *codec.Node) bool {
		if n.Tag == "Structure" {
			st = n
		}
		return st == nil
	})
	if st == nil || len(st.Children) == 0 {
		return false
	}
	first := st.Children[0]
	return first.Tag == "OctetString" && len(first.Value()) != base.ObisHexLength
}

// Extract classifies the notification body and extracts it.
func Extract(t *enrich.Tree) (Result, error) {
	if IsDayPush(t) {
		return ExtractDayPush(t)
	}
	return ExtractObisPush(t), nil
}

// ExtractObisPush never fails, a body without capture objects gives no records.
func ExtractObisPush(t *enrich.Tree) *ObisPush {
	res := &ObisPush{Records: []Record{}}
	if t == nil || t.Root == nil {
		return res
	}
	res.Invoke = invokeID(t)

	arr := t.Root.Find("DataValue", "Structure", "Array")
	if arr == nil {
		return res
	}
	type obisEntry struct {
		obis    string
		comment string
	}
	var entries []obisEntry
	for _, st := range arr.ChildrenByTag("Structure") {
		os := st.Child("OctetString")
		if os == nil {
			continue
		}
		entries = append(entries, obisEntry{obis: fields.HexToObis(os.Value()), comment: t.Comment(os)})
	}

	after := arr.FollowingSiblings()
	expected := max(0, len(entries)-1)
	if len(after) > expected {
		res.Extra = len(after) - expected
		after = after[:expected]
	}
	for i, e := range entries {
		var v TypedValue
		switch {
		case i == 0:
			v = emptyValue
		case i-1 < len(after):
			v = NewTypedValue(after[i-1])
		default:
			v = missingValue
		}
		r := Record{Obis: e.obis, Value: v, Comment: e.comment}
		if e.obis == base.EventStatusObis && v.Value != nil && len(*v.Value) == 8 {
			if w, err := strconv.ParseUint(*v.Value, 16, 32); err == nil {
				r.Events = base.ActiveEvents(uint32(w))
			}
		}
		res.Records = append(res.Records, r)
	}
	return res
}

// NewTypedValue converts a data node recursively.
func NewTypedValue(n *codec.Node) TypedValue {
	v := TypedValue{Type: n.Tag}
	raw := n.Value()
	switch n.Tag {
	case "Enum":
		v.Value = ptr.To(raw)
	case "OctetString":
		v.Value = ptr.To(raw)
		if len(raw) == base.ObisHexLength {
			if o := fields.HexToObis(raw); o != raw {
				v.Obis = o
			}
		}
		if s, ok := fields.TryASCII(raw); ok {
			v.ASCII = ptr.To(s)
		}
	case "UInt32", "UInt16", "UInt8":
		v.Value = ptr.To(raw)
		if d, err := strconv.ParseUint(raw, 16, 64); err == nil {
			v.Decimal = strconv.FormatUint(d, 10)
		}
	case "Int8":
		v.Value = ptr.To(raw)
		if d, err := strconv.ParseUint(raw, 16, 8); err == nil {
			v.Decimal = strconv.Itoa(int(int8(d)))
		}
	case "Structure", "Array":
		v.Qty = "0"
		if q, ok := n.Attr("Qty"); ok {
			v.Qty = q
		}
		items := make([]TypedValue, 0, len(n.Children))
		for _, c := range n.Children {
			items = append(items, NewTypedValue(c))
		}
		if n.Tag == "Structure" {
			v.Fields = items
		} else {
			v.Items = items
		}
	default:
		v.Value = ptr.To("[" + n.Tag + "]")
	}
	return v
}

// ExtractDayPush reads the logical name and the profile rows. Rows with an
// undecodable timestamp are skipped.
func ExtractDayPush(t *enrich.Tree) (*DayPush, error) {
	dv := dataValue(t)
	if dv == nil {
		return nil, fmt.Errorf("%w: no notification data", base.ErrUnsupportedValueShape)
	}
	st := dv.Child("Structure")
	if st == nil || len(st.Children) < 2 {
		return nil, fmt.Errorf("%w: no profile structure", base.ErrUnsupportedValueShape)
	}

	res := &DayPush{Invoke: invokeID(t), Data: []Entry{}}
	name := st.Children[0].Value()
	if s, ok := fields.TryASCII(name); ok {
		res.LogicalName = s
	} else {
		res.LogicalName = name
	}

	for _, row := range st.Children[1].ChildrenByTag("Structure") {
		if len(row.Children) == 0 || row.Children[0].Tag != "OctetString" {
			continue
		}
		ts, err := rowTimestamp(row.Children[0].Value())
		if err != nil {
			continue
		}
		e := Entry{Timestamp: ts, Values: []uint32{}}
		for _, c := range row.Children[1:] {
			if c.Tag != "UInt32" {
				continue
			}
			u, err := strconv.ParseUint(c.Value(), 16, 32)
			if err != nil {
				u = 0
			}
			e.Values = append(e.Values, uint32(u))
		}
		res.Data = append(res.Data, e)
	}
	return res, nil
}

func rowTimestamp(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", base.ErrMalformedHex, err)
	}
	dt, err := dlmsal.NewDlmsDateTimeFromSlice(b)
	if err != nil {
		return "", err
	}
	tt, err := dt.ToTime()
	if err != nil {
		return "", err
	}
	return tt.Format(timestampLayout), nil
}
