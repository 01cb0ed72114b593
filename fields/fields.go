// Package fields holds stateless decoders of single DLMS field values given as hex text.
// They never fail loudly: malformed input yields passthrough or absence.
package fields

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/dlmsal"
)

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", base.ErrMalformedHex, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", base.ErrMalformedHex, err)
	}
	return b, nil
}

// HexToObis converts 12 hex characters into the dotted A.B.C.D.E.F form.
// Anything else is returned unchanged.
func HexToObis(s string) string {
	if len(s) != base.ObisHexLength {
		return s
	}
	b, err := decodeHex(s)
	if err != nil {
		return s
	}
	o, _ := dlmsal.NewDlmsObisFromSlice(b)
	return o.Dotted()
}

// TryASCII decodes hex as 7-bit ASCII.
func TryASCII(s string) (string, bool) {
	b, err := decodeHex(s)
	if err != nil {
		return "", false
	}
	for _, c := range b {
		if c >= 0x80 {
			return "", false
		}
	}
	return string(b), true
}

// IsPrintable reports whether s is non-empty and contains only printable ASCII.
func IsPrintable(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// TryDlmsDateTime renders 5 to 12 bytes of DLMS date-time as
// YYYY-MM-DD[ HH:MM:SS][ UTC±HH[:MM]]. Unspecified parts are left out, it
// fails when neither date nor time is fully specified.
func TryDlmsDateTime(s string) (string, bool) {
	if len(s) < 10 || len(s) > 24 {
		return "", false
	}
	d, err := decodeHex(s)
	if err != nil {
		return "", false
	}
	year := uint16(d[0])<<8 | uint16(d[1])
	month, day := d[2], d[3]
	hour, minute, second := byte(0xff), byte(0xff), byte(0xff)
	if len(d) > 5 {
		hour = d[5]
	}
	if len(d) > 6 {
		minute = d[6]
	}
	if len(d) > 7 {
		second = d[7]
	}
	hasDate := year != 0xffff && month != 0xff && day != 0xff
	hasTime := hour != 0xff && minute != 0xff && second != 0xff
	if !hasDate && !hasTime {
		return "", false
	}

	var sb strings.Builder
	if hasDate {
		fmt.Fprintf(&sb, "%04d-%02d-%02d", year, month, day)
	}
	if hasTime {
		if hasDate {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02d:%02d:%02d", hour, minute, second)
	}
	if len(d) >= 11 {
		dev := int16(uint16(d[9])<<8 | uint16(d[10]))
		if dev != dlmsal.DateTimeInvalidDeviation && dev != 0 {
			sign := byte('+')
			m := int(dev)
			if m < 0 {
				sign = '-'
				m = -m
			}
			fmt.Fprintf(&sb, " UTC%c%02d", sign, m/60)
			if m%60 != 0 {
				fmt.Fprintf(&sb, ":%02d", m%60)
			}
		}
	}
	return sb.String(), true
}

// CurrentDateTimeHex encodes now as
//
//	year(2) month day FF hour minute second 00 FF deviation(2) 00
//
// The deviation is taken as given, now's own zone is not consulted.
func CurrentDateTimeHex(now time.Time, deviationMinutes int16) string {
	year := now.Year()
	b := []byte{
		byte(year >> 8), byte(year), byte(now.Month()), byte(now.Day()), 0xff,
		byte(now.Hour()), byte(now.Minute()), byte(now.Second()), 0x00,
		0xff, byte(uint16(deviationMinutes) >> 8), byte(uint16(deviationMinutes)), 0x00,
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

// BytesToHexString formats []byte or []int as space separated upper case hex pairs.
func BytesToHexString(v any) (string, error) {
	var sb strings.Builder
	switch d := v.(type) {
	case []byte:
		for i, b := range d {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%02X", b)
		}
	case []int:
		for i, b := range d {
			if b < 0 || b > 0xff {
				return "", fmt.Errorf("%w: %d is not a byte", base.ErrInvalidInput, b)
			}
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%02X", b)
		}
	default:
		return "", fmt.Errorf("%w: unsupported type %T", base.ErrInvalidInput, v)
	}
	return sb.String(), nil
}

// CleanHex upper cases s and drops everything that is not a hex digit.
func CleanHex(s string) string {
	var sb strings.Builder
	for _, c := range strings.ToUpper(s) {
		if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
