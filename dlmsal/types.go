package dlmsal

import (
	"fmt"
	"strings"
	"time"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/ghostiam/binstruct"
)

const (
	DateTimeInvalidDeviation int16 = -32768
)

type DlmsDateTime struct {
	Date      DlmsDate
	Time      DlmsTime
	Deviation int16
	Status    byte
}

type DlmsDate struct {
	Year      uint16
	Month     byte
	Day       byte
	DayOfWeek byte
}

type DlmsTime struct {
	Hour       byte
	Minute     byte
	Second     byte
	Hundredths byte
}

// wire layout of the 12 byte date-time
type dateTimeLayout struct {
	Year       uint16
	Month      uint8
	Day        uint8
	DayOfWeek  uint8
	Hour       uint8
	Minute     uint8
	Second     uint8
	Hundredths uint8
	Deviation  int16
	Status     uint8
}

func (t *DlmsDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%02d UTC%+03d Status: %02x",
		t.Date.Year, t.Date.Month, t.Date.Day,
		t.Time.Hour, t.Time.Minute, t.Time.Second, t.Time.Hundredths, t.Deviation, t.Status)
}

func (t *DlmsDateTime) HasDate() bool {
	return t.Date.Year != 0xffff && t.Date.Month != 0xff && t.Date.Day != 0xff
}

func (t *DlmsDateTime) HasTime() bool {
	return t.Time.Hour != 0xff && t.Time.Minute != 0xff && t.Time.Second != 0xff
}

// ToTime converts to time.Time in a fixed zone of the deviation, UTC when the deviation is unspecified.
// Hundredths are ignored.
func (t *DlmsDateTime) ToTime() (tt time.Time, err error) {
	if !t.HasDate() || !t.HasTime() {
		return tt, fmt.Errorf("%w: incomplete date or time", base.ErrInvalidInput)
	}
	if t.Date.Month < 1 || t.Date.Month > 12 || t.Date.Day < 1 || t.Date.Day > 31 || t.Time.Hour > 23 || t.Time.Minute > 59 || t.Time.Second > 59 {
		return tt, fmt.Errorf("%w: date or time out of range", base.ErrInvalidInput)
	}
	loc := time.UTC
	if t.Deviation != DateTimeInvalidDeviation && t.Deviation != 0 {
		loc = time.FixedZone("", int(t.Deviation)*60)
	}
	tt = time.Date(int(t.Date.Year), time.Month(t.Date.Month), int(t.Date.Day), int(t.Time.Hour), int(t.Time.Minute), int(t.Time.Second), 0, loc)
	if tt.Day() != int(t.Date.Day) { // 31st of a short month
		return time.Time{}, fmt.Errorf("%w: day out of range", base.ErrInvalidInput)
	}
	return
}

func NewDlmsDateTimeFromSlice(src []byte) (val DlmsDateTime, err error) {
	if len(src) < 12 {
		err = fmt.Errorf("%w: invalid length %d", base.ErrInvalidInput, len(src))
		return
	}
	var l dateTimeLayout
	if err = binstruct.UnmarshalBE(src[:12], &l); err != nil {
		return val, fmt.Errorf("%w: %w", base.ErrInvalidInput, err)
	}
	return DlmsDateTime{
		Date:      DlmsDate{Year: l.Year, Month: l.Month, Day: l.Day, DayOfWeek: l.DayOfWeek},
		Time:      DlmsTime{Hour: l.Hour, Minute: l.Minute, Second: l.Second, Hundredths: l.Hundredths},
		Deviation: l.Deviation,
		Status:    l.Status,
	}, nil
}

type DlmsObis struct {
	A byte
	B byte
	C byte
	D byte
	E byte
	F byte
}

func (o DlmsObis) String() string {
	return fmt.Sprintf("%d-%d:%d.%d.%d.%d", o.A, o.B, o.C, o.D, o.E, o.F)
}

// Dotted returns the A.B.C.D.E.F form.
func (o DlmsObis) Dotted() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d", o.A, o.B, o.C, o.D, o.E, o.F)
}

// Hex returns upper case hex of the six bytes, the key of the name registry.
func (o DlmsObis) Hex() string {
	return strings.ToUpper(fmt.Sprintf("%02x%02x%02x%02x%02x%02x", o.A, o.B, o.C, o.D, o.E, o.F))
}

func (o DlmsObis) Bytes() []byte {
	return []byte{o.A, o.B, o.C, o.D, o.E, o.F}
}

func NewDlmsObisFromSlice(src []byte) (ob DlmsObis, err error) {
	if len(src) < 6 {
		err = fmt.Errorf("%w: invalid length %d", base.ErrInvalidInput, len(src))
		return
	}
	return DlmsObis{A: src[0], B: src[1], C: src[2], D: src[3], E: src[4], F: src[5]}, nil
}
