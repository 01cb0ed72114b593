package dlmsal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/cybroslabs/dlms-push-listener/base"
)

type dataTag uint16

const (
	TagNull               dataTag = 0
	TagArray              dataTag = 1
	TagStructure          dataTag = 2
	TagBoolean            dataTag = 3
	TagBitString          dataTag = 4
	TagDoubleLong         dataTag = 5
	TagDoubleLongUnsigned dataTag = 6
	TagFloatingPoint      dataTag = 7
	TagOctetString        dataTag = 9
	TagVisibleString      dataTag = 10
	TagUTF8String         dataTag = 12
	TagBCD                dataTag = 13
	TagInteger            dataTag = 15
	TagLong               dataTag = 16
	TagUnsigned           dataTag = 17
	TagLongUnsigned       dataTag = 18
	TagCompactArray       dataTag = 19
	TagLong64             dataTag = 20
	TagLong64Unsigned     dataTag = 21
	TagEnum               dataTag = 22
	TagFloat32            dataTag = 23
	TagFloat64            dataTag = 24
	TagDateTime           dataTag = 25
	TagDate               dataTag = 26
	TagTime               dataTag = 27
	TagDontCare           dataTag = 255
)

const maxDepth = 64

// String returns the element name used for the tag in decoded trees.
func (t dataTag) String() string {
	switch t {
	case TagNull:
		return "None"
	case TagArray:
		return "Array"
	case TagStructure:
		return "Structure"
	case TagBoolean:
		return "Boolean"
	case TagBitString:
		return "BitString"
	case TagDoubleLong:
		return "Int32"
	case TagDoubleLongUnsigned:
		return "UInt32"
	case TagFloatingPoint:
		return "FloatingPoint"
	case TagOctetString:
		return "OctetString"
	case TagVisibleString:
		return "String"
	case TagUTF8String:
		return "StringUTF8"
	case TagBCD:
		return "Bcd"
	case TagInteger:
		return "Int8"
	case TagLong:
		return "Int16"
	case TagUnsigned:
		return "UInt8"
	case TagLongUnsigned:
		return "UInt16"
	case TagCompactArray:
		return "CompactArray"
	case TagLong64:
		return "Int64"
	case TagLong64Unsigned:
		return "UInt64"
	case TagEnum:
		return "Enum"
	case TagFloat32:
		return "Float32"
	case TagFloat64:
		return "Float64"
	case TagDateTime:
		return "DateTime"
	case TagDate:
		return "Date"
	case TagTime:
		return "Time"
	case TagDontCare:
		return "DontCare"
	}
	return fmt.Sprintf("Tag%d", uint16(t))
}

// DlmsData is one decoded A-XDR item. Raw holds the encoded content without tag
// and length, it is nil for arrays and structures.
type DlmsData struct {
	Value interface{}
	Tag   dataTag
	Raw   []byte
}

// Items returns children of an array, structure or compact array.
func (d *DlmsData) Items() []DlmsData {
	switch v := d.Value.(type) {
	case []DlmsData:
		return v
	case DlmsCompactArray:
		return v.Value
	}
	return nil
}

type DlmsCompactArray struct {
	Tag   dataTag
	Tags  []dataTag // structure item types, only for compact array of structures
	Value []DlmsData
}

// DecodeData decodes a single tagged item from src and returns number of bytes consumed.
func DecodeData(src []byte) (data DlmsData, n int, err error) {
	var tmp tmpbuffer
	r := bytes.NewReader(src)
	data, err = decodeDataTag(r, &tmp, 0)
	if err != nil {
		return data, 0, err
	}
	return data, len(src) - r.Len(), nil
}

func decodeDataTag(src io.Reader, tmp *tmpbuffer, depth int) (data DlmsData, err error) {
	_, err = io.ReadFull(src, tmp[:1])
	if err != nil {
		return data, fmt.Errorf("%w: no data tag, %w", base.ErrInvalidInput, err)
	}
	return decodeData(src, dataTag(tmp[0]), tmp, depth)
}

func decodeDataArray(src io.Reader, tag dataTag, tmp *tmpbuffer, depth int) (data DlmsData, err error) {
	if depth >= maxDepth {
		return data, fmt.Errorf("%w: too deep nesting", base.ErrUnsupportedValueShape)
	}
	l, _, err := decodelength(src, tmp)
	if err != nil {
		return data, fmt.Errorf("%w: %s length, %w", base.ErrInvalidInput, tag, err)
	}
	d := make([]DlmsData, 0, min(l, 256))
	for i := 0; i < int(l); i++ {
		item, err := decodeDataTag(src, tmp, depth+1)
		if err != nil {
			return data, err
		}
		d = append(d, item)
	}
	return DlmsData{Tag: tag, Value: d}, nil
}

func readfixed(src io.Reader, n int, tag dataTag) ([]byte, error) {
	v := make([]byte, n)
	if _, err := io.ReadFull(src, v); err != nil {
		return nil, fmt.Errorf("%w: too short data for %s, %w", base.ErrInvalidInput, tag, err)
	}
	return v, nil
}

func readvariable(src io.Reader, tag dataTag, tmp *tmpbuffer) ([]byte, error) {
	l, _, err := decodelength(src, tmp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s length, %w", base.ErrInvalidInput, tag, err)
	}
	if l > base.MaxReceiveBuffer*16 {
		return nil, fmt.Errorf("%w: %s too long (%d)", base.ErrInvalidInput, tag, l)
	}
	return readfixed(src, int(l), tag)
}

func decodeData(src io.Reader, tag dataTag, tmp *tmpbuffer, depth int) (data DlmsData, err error) {
	var v []byte
	switch tag {
	case TagNull, TagDontCare:
		return DlmsData{Tag: tag}, nil
	case TagArray, TagStructure:
		return decodeDataArray(src, tag, tmp, depth)
	case TagCompactArray:
		return decodeCompactArray(src, tmp, depth)
	case TagOctetString:
		if v, err = readvariable(src, tag, tmp); err != nil {
			return
		}
		return DlmsData{Tag: tag, Value: v, Raw: v}, nil
	case TagVisibleString:
		if v, err = readvariable(src, tag, tmp); err != nil {
			return
		}
		return DlmsData{Tag: tag, Value: string(v), Raw: v}, nil
	case TagUTF8String:
		if v, err = readvariable(src, tag, tmp); err != nil {
			return
		}
		if !utf8.Valid(v) {
			return data, fmt.Errorf("%w: byte slice contain invalid UTF-8 runes", base.ErrInvalidInput)
		}
		return DlmsData{Tag: tag, Value: string(v), Raw: v}, nil
	case TagBitString:
		l, _, err := decodelength(src, tmp)
		if err != nil {
			return data, fmt.Errorf("%w: bitstring length, %w", base.ErrInvalidInput, err)
		}
		if v, err = readfixed(src, int((l+7)>>3), tag); err != nil {
			return data, err
		}
		val := make([]bool, l)
		for i := range val {
			val[i] = v[i>>3]&(0x80>>(i&7)) != 0
		}
		return DlmsData{Tag: tag, Value: val, Raw: v}, nil
	}

	size := fixedSize(tag)
	if size == 0 {
		return data, fmt.Errorf("%w: unknown tag %d", base.ErrUnsupportedValueShape, tag)
	}
	if v, err = readfixed(src, size, tag); err != nil {
		return
	}
	data = DlmsData{Tag: tag, Raw: v}
	switch tag {
	case TagBoolean:
		data.Value = v[0] != 0
	case TagDoubleLong:
		data.Value = int32(binary.BigEndian.Uint32(v))
	case TagDoubleLongUnsigned:
		data.Value = binary.BigEndian.Uint32(v)
	case TagFloatingPoint, TagFloat32:
		data.Value = math.Float32frombits(binary.BigEndian.Uint32(v))
	case TagBCD:
		b := int(v[0]&0xf) + 10*(int(v[0]>>4)&7)
		if (v[0] & 0x80) != 0 {
			b = -b
		}
		data.Value = int8(b)
	case TagInteger:
		data.Value = int8(v[0])
	case TagLong:
		data.Value = int16(binary.BigEndian.Uint16(v))
	case TagUnsigned, TagEnum:
		data.Value = v[0]
	case TagLongUnsigned:
		data.Value = binary.BigEndian.Uint16(v)
	case TagLong64:
		data.Value = int64(binary.BigEndian.Uint64(v))
	case TagLong64Unsigned:
		data.Value = binary.BigEndian.Uint64(v)
	case TagFloat64:
		data.Value = math.Float64frombits(binary.BigEndian.Uint64(v))
	case TagDateTime:
		data.Value, err = NewDlmsDateTimeFromSlice(v)
	case TagDate:
		data.Value = DlmsDate{Year: binary.BigEndian.Uint16(v), Month: v[2], Day: v[3], DayOfWeek: v[4]}
	case TagTime:
		data.Value = DlmsTime{Hour: v[0], Minute: v[1], Second: v[2], Hundredths: v[3]}
	}
	return data, err
}

func fixedSize(tag dataTag) int {
	switch tag {
	case TagBoolean, TagBCD, TagInteger, TagUnsigned, TagEnum:
		return 1
	case TagLong, TagLongUnsigned:
		return 2
	case TagTime, TagDoubleLong, TagDoubleLongUnsigned, TagFloatingPoint, TagFloat32:
		return 4
	case TagDate:
		return 5
	case TagLong64, TagLong64Unsigned, TagFloat64:
		return 8
	case TagDateTime:
		return 12
	}
	return 0
}

func decodeCompactArray(src io.Reader, tmp *tmpbuffer, depth int) (data DlmsData, err error) {
	if _, err = io.ReadFull(src, tmp[:1]); err != nil {
		return data, fmt.Errorf("%w: too short data for compact array, %w", base.ErrInvalidInput, err)
	}
	ctag := dataTag(tmp[0])
	var types []dataTag
	if ctag == TagStructure { // determine structure items types
		t, err := readvariable(src, ctag, tmp)
		if err != nil {
			return data, err
		}
		types = make([]dataTag, len(t))
		for i, b := range t {
			types[i] = dataTag(b)
		}
	} else {
		if ctag == TagNull {
			return data, fmt.Errorf("%w: unable to decode compact array with null tag", base.ErrUnsupportedValueShape)
		}
		types = []dataTag{ctag}
	}

	content, err := readvariable(src, TagCompactArray, tmp)
	if err != nil {
		return data, err
	}
	cnt := bytes.NewReader(content)
	items := make([]DlmsData, 0, 16)
	for cnt.Len() > 0 {
		if ctag != TagStructure {
			item, err := decodeData(cnt, ctag, tmp, depth+1)
			if err != nil {
				return data, err
			}
			items = append(items, item)
			continue
		}
		str := make([]DlmsData, len(types))
		for i, ty := range types {
			if str[i], err = decodeData(cnt, ty, tmp, depth+1); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return data, fmt.Errorf("%w: there are no bytes left for another structure item", base.ErrInvalidInput)
				}
				return data, err
			}
		}
		items = append(items, DlmsData{Tag: TagStructure, Value: str})
		if len(types) == 0 {
			break
		}
	}
	toret := DlmsCompactArray{Tag: ctag, Value: items}
	if ctag == TagStructure {
		toret.Tags = types
	}
	return DlmsData{Tag: TagCompactArray, Value: toret, Raw: content}, nil
}
