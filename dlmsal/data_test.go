package dlmsal

import (
	"testing"
	"time"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataScalars(t *testing.T) {
	tests := []struct {
		name  string
		src   []byte
		tag   dataTag
		value interface{}
	}{
		{"null", []byte{0x00}, TagNull, nil},
		{"boolean", []byte{0x03, 0x01}, TagBoolean, true},
		{"int32", []byte{0x05, 0xff, 0xff, 0xff, 0xfe}, TagDoubleLong, int32(-2)},
		{"uint32", []byte{0x06, 0x00, 0x00, 0x00, 0x1a}, TagDoubleLongUnsigned, uint32(26)},
		{"octet string", []byte{0x09, 0x02, 0xab, 0xcd}, TagOctetString, []byte{0xab, 0xcd}},
		{"visible string", []byte{0x0a, 0x03, 'a', 'b', 'c'}, TagVisibleString, "abc"},
		{"utf8 string", []byte{0x0c, 0x02, 0xc3, 0xa9}, TagUTF8String, "é"},
		{"bcd", []byte{0x0d, 0x92}, TagBCD, int8(-12)},
		{"int8", []byte{0x0f, 0xff}, TagInteger, int8(-1)},
		{"int16", []byte{0x10, 0xff, 0xfe}, TagLong, int16(-2)},
		{"uint8", []byte{0x11, 0xfe}, TagUnsigned, uint8(254)},
		{"uint16", []byte{0x12, 0x01, 0x00}, TagLongUnsigned, uint16(256)},
		{"int64", []byte{0x14, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, TagLong64, int64(-1)},
		{"uint64", []byte{0x15, 0, 0, 0, 0, 0, 0, 0x01, 0x00}, TagLong64Unsigned, uint64(256)},
		{"enum", []byte{0x16, 0x05}, TagEnum, uint8(5)},
		{"float32", []byte{0x17, 0x3f, 0xc0, 0x00, 0x00}, TagFloat32, float32(1.5)},
		{"float64", []byte{0x18, 0x3f, 0xf8, 0, 0, 0, 0, 0, 0}, TagFloat64, float64(1.5)},
		{"date", []byte{0x1a, 0x07, 0xea, 0x01, 0x0d, 0xff}, TagDate, DlmsDate{Year: 2026, Month: 1, Day: 13, DayOfWeek: 0xff}},
		{"time", []byte{0x1b, 0x0e, 0x21, 0x14, 0x00}, TagTime, DlmsTime{Hour: 14, Minute: 33, Second: 20}},
		{"bitstring", []byte{0x04, 0x03, 0xa0}, TagBitString, []bool{true, false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, n, err := DecodeData(tt.src)
			require.NoError(t, err)
			assert.Equal(t, len(tt.src), n)
			assert.Equal(t, tt.tag, d.Tag)
			assert.Equal(t, tt.value, d.Value)
		})
	}
}

func TestDecodeDataNested(t *testing.T) {
	src := []byte{
		0x02, 0x02,
		0x01, 0x02,
		0x11, 0x01,
		0x11, 0x02,
		0x09, 0x06, 0x00, 0x00, 0x19, 0x09, 0x00, 0xff,
		0xaa, // trailing byte is not consumed
	}
	d, n, err := DecodeData(src)
	require.NoError(t, err)
	assert.Equal(t, len(src)-1, n)
	require.Equal(t, TagStructure, d.Tag)
	items := d.Items()
	require.Len(t, items, 2)
	assert.Equal(t, TagArray, items[0].Tag)
	assert.Len(t, items[0].Items(), 2)
	assert.Nil(t, items[0].Raw)
	assert.Equal(t, []byte{0x00, 0x00, 0x19, 0x09, 0x00, 0xff}, items[1].Raw)
}

func TestDecodeDataCompactArray(t *testing.T) {
	d, _, err := DecodeData([]byte{0x13, 0x11, 0x03, 0x01, 0x02, 0x03})
	require.NoError(t, err)
	items := d.Items()
	require.Len(t, items, 3)
	assert.Equal(t, uint8(3), items[2].Value)

	d, _, err = DecodeData([]byte{0x13, 0x02, 0x02, 0x11, 0x12, 0x06, 0x01, 0x00, 0x01, 0x02, 0x00, 0x02})
	require.NoError(t, err)
	items = d.Items()
	require.Len(t, items, 2)
	assert.Equal(t, uint16(2), items[1].Items()[1].Value)
	assert.Equal(t, []dataTag{TagUnsigned, TagLongUnsigned}, d.Value.(DlmsCompactArray).Tags)
}

func TestDecodeDataErrors(t *testing.T) {
	_, _, err := DecodeData([]byte{0x08, 0x00})
	assert.ErrorIs(t, err, base.ErrUnsupportedValueShape)

	_, _, err = DecodeData([]byte{0x06, 0x00, 0x01})
	assert.ErrorIs(t, err, base.ErrInvalidInput)

	_, _, err = DecodeData([]byte{0x02, 0x02, 0x11, 0x01})
	assert.ErrorIs(t, err, base.ErrInvalidInput)

	_, _, err = DecodeData(nil)
	assert.ErrorIs(t, err, base.ErrInvalidInput)

	_, _, err = DecodeData([]byte{0x0c, 0x01, 0xff})
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}

func TestDecodeDataDeepNesting(t *testing.T) {
	var src []byte
	for range maxDepth + 2 {
		src = append(src, 0x01, 0x01)
	}
	src = append(src, 0x00)
	_, _, err := DecodeData(src)
	assert.ErrorIs(t, err, base.ErrUnsupportedValueShape)
}

func TestDateTime(t *testing.T) {
	d, _, err := DecodeData([]byte{0x19, 0x07, 0xea, 0x01, 0x0d, 0x02, 0x0e, 0x21, 0x14, 0x00, 0xff, 0x4c, 0x00})
	require.NoError(t, err)
	dt := d.Value.(DlmsDateTime)
	assert.Equal(t, int16(-180), dt.Deviation)
	assert.True(t, dt.HasDate())
	assert.True(t, dt.HasTime())

	tt, err := dt.ToTime()
	require.NoError(t, err)
	assert.Equal(t, "2026-01-13T14:33:20-03:00", tt.Format(time.RFC3339))

	dt.Deviation = DateTimeInvalidDeviation
	tt, err = dt.ToTime()
	require.NoError(t, err)
	assert.Equal(t, "2026-01-13T14:33:20+00:00", tt.Format("2006-01-02T15:04:05-07:00"))

	dt.Time.Hour = 0xff
	assert.False(t, dt.HasTime())
	_, err = dt.ToTime()
	assert.ErrorIs(t, err, base.ErrInvalidInput)

	_, err = NewDlmsDateTimeFromSlice([]byte{0x07, 0xea})
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}

func TestObis(t *testing.T) {
	o, err := NewDlmsObisFromSlice([]byte{0x00, 0x00, 0x19, 0x09, 0x00, 0xff})
	require.NoError(t, err)
	assert.Equal(t, "0.0.25.9.0.255", o.Dotted())
	assert.Equal(t, "0-0:25.9.0.255", o.String())
	assert.Equal(t, "0000190900FF", o.Hex())

	_, err = NewDlmsObisFromSlice([]byte{0x01})
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}
