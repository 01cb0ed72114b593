// Package frametest builds well formed push frames for tests.
package frametest

import (
	"encoding/binary"
	"time"

	"github.com/cybroslabs/dlms-push-listener/hdlc"
)

var (
	ClientAddress = []byte{0x03}
	MeterAddress  = []byte{0x00, 0x02, 0x00, 0x23}
)

// Frame wraps info into a UI frame from MeterAddress to ClientAddress with
// HCS and FCS in wire order.
func Frame(info []byte) []byte {
	length := 2 + len(ClientAddress) + len(MeterAddress) + 1 + 2 + len(info) + 2
	fr := []byte{0x7e, 0xa0 | byte(length>>8), byte(length)}
	fr = append(fr, ClientAddress...)
	fr = append(fr, MeterAddress...)
	fr = append(fr, 0x13)
	hcs := hdlc.ComputeFCS(fr[1:])
	fr = append(fr, byte(hcs), byte(hcs>>8))
	fr = append(fr, info...)
	fcs := hdlc.ComputeFCS(fr[1:])
	fr = append(fr, byte(fcs), byte(fcs>>8))
	return append(fr, 0x7e)
}

// PushFrame wraps apdu with the E6 E7 00 LLC header and a frame.
func PushFrame(apdu []byte) []byte {
	return Frame(append([]byte{0xe6, 0xe7, 0x00}, apdu...))
}

// DateTime encodes t as 12 bytes of DLMS date-time with the given deviation.
func DateTime(t time.Time, deviation int16) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint16(b, uint16(t.Year()))
	b[2] = byte(t.Month())
	b[3] = byte(t.Day())
	b[4] = 0xff
	b[5] = byte(t.Hour())
	b[6] = byte(t.Minute())
	b[7] = byte(t.Second())
	b[8] = 0x00
	binary.BigEndian.PutUint16(b[9:], uint16(deviation))
	return b
}

func notification(invoke uint32, body []byte) []byte {
	apdu := []byte{0x0f, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(apdu[1:], invoke)
	apdu = append(apdu, 0x0c)
	apdu = append(apdu, DateTime(time.Date(2026, 1, 13, 14, 33, 20, 0, time.UTC), -180)...)
	return append(apdu, body...)
}

// ObisPushAPDU is a push of three capture objects (Push1, clock, active energy)
// followed by two values: the clock as octet string and 12345 as UInt32.
func ObisPushAPDU(invoke uint32) []byte {
	body := []byte{
		0x02, 0x03,
		0x01, 0x03,
		0x02, 0x04, 0x12, 0x00, 0x28, 0x09, 0x06, 0x00, 0x00, 0x19, 0x09, 0x00, 0xff, 0x0f, 0x01, 0x12, 0x00, 0x00,
		0x02, 0x04, 0x12, 0x00, 0x08, 0x09, 0x06, 0x00, 0x00, 0x01, 0x00, 0x00, 0xff, 0x0f, 0x02, 0x12, 0x00, 0x00,
		0x02, 0x04, 0x12, 0x00, 0x03, 0x09, 0x06, 0x01, 0x00, 0x01, 0x08, 0x00, 0xff, 0x0f, 0x02, 0x12, 0x00, 0x00,
		0x09, 0x0c, 0x07, 0xea, 0x01, 0x0d, 0x02, 0x0e, 0x21, 0x14, 0x00, 0xff, 0x4c, 0x00,
		0x06, 0x00, 0x00, 0x30, 0x39,
	}
	return notification(invoke, body)
}

type Row struct {
	At        time.Time
	Deviation int16
	Values    []uint32
}

// DayPushAPDU is a profile push: logical name followed by an array of
// timestamped UInt32 rows.
func DayPushAPDU(invoke uint32, name string, rows []Row) []byte {
	body := []byte{0x02, 0x02, 0x09, byte(len(name))}
	body = append(body, name...)
	body = append(body, 0x01, byte(len(rows)))
	for _, r := range rows {
		body = append(body, 0x02, byte(1+len(r.Values)), 0x09, 0x0c)
		body = append(body, DateTime(r.At, r.Deviation)...)
		for _, v := range r.Values {
			body = append(body, 0x06, 0, 0, 0, 0)
			binary.BigEndian.PutUint32(body[len(body)-4:], v)
		}
	}
	return notification(invoke, body)
}

// HalfHourRows returns n rows 30 minutes apart starting at from, four values each.
func HalfHourRows(from time.Time, n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{At: from.Add(time.Duration(i) * 30 * time.Minute), Deviation: 180, Values: []uint32{uint32(i), 1, 2, 3}}
	}
	return rows
}
