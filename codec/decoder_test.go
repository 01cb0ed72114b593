package codec

import (
	"testing"
	"time"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/internal/frametest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeObisPush(t *testing.T) {
	d := NewHDLCDecoder(true)
	d.SetLogger(zap.NewNop().Sugar())
	root, err := d.Decode(frametest.PushFrame(frametest.ObisPushAPDU(0xc000001a)))
	require.NoError(t, err)

	assert.Equal(t, "HDLC", root.Tag)
	assert.Equal(t, "1", root.Child("TargetAddress").Value())
	assert.Equal(t, "4011", root.Child("SourceAddress").Value())

	dn := root.Find("PDU", "DataNotification")
	require.NotNil(t, dn)
	assert.Equal(t, "C000001A", dn.Child("LongInvokeIdAndPriority").Value())
	assert.Equal(t, "07EA010DFF0E211400FF4C00", dn.Child("DateTime").Value())

	arr := root.Find("DataValue", "Structure", "Array")
	require.NotNil(t, arr)
	q, _ := arr.Attr("Qty")
	assert.Equal(t, "03", q)
	require.Len(t, arr.Children, 3)
	assert.Equal(t, "0000190900FF", arr.Children[0].Child("OctetString").Value())
	assert.Equal(t, "0028", arr.Children[0].Child("UInt16").Value())
	assert.Equal(t, "01", arr.Children[0].Child("Int8").Value())

	after := arr.FollowingSiblings()
	require.Len(t, after, 2)
	assert.Equal(t, "OctetString", after[0].Tag)
	assert.Equal(t, "UInt32", after[1].Tag)
	assert.Equal(t, "00003039", after[1].Value())
}

func TestDecodeDayPush(t *testing.T) {
	rows := frametest.HalfHourRows(time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC), 2)
	root, err := NewHDLCDecoder(true).Decode(frametest.PushFrame(frametest.DayPushAPDU(7, "PEN0001", rows)))
	require.NoError(t, err)

	str := root.Find("NotificationBody", "DataValue", "Structure")
	require.NotNil(t, str)
	require.Len(t, str.Children, 2)
	assert.Equal(t, "50454E30303031", str.Children[0].Value())
	assert.Equal(t, "Array", str.Children[1].Tag)
	require.Len(t, str.Children[1].Children, 2)
	row := str.Children[1].Children[1]
	require.Len(t, row.Children, 5)
	assert.Equal(t, "07EA010DFF001E000000B400", row.Children[0].Value())
	assert.Equal(t, "00000001", row.Children[1].Value())
}

func TestDecodeWithoutLLC(t *testing.T) {
	root, err := NewHDLCDecoder(true).Decode(frametest.Frame(frametest.ObisPushAPDU(1)))
	require.NoError(t, err)
	assert.NotNil(t, root.Find("PDU", "DataNotification", "NotificationBody"))
}

func TestDecodeChecksum(t *testing.T) {
	raw := frametest.PushFrame(frametest.ObisPushAPDU(1))
	raw[len(raw)-5] ^= 0x01

	_, err := NewHDLCDecoder(true).Decode(raw)
	assert.ErrorIs(t, err, base.ErrXmlDecodeFailure)
	assert.ErrorIs(t, err, base.ErrChecksum)

	root, err := NewHDLCDecoder(false).Decode(raw)
	require.NoError(t, err)
	assert.NotNil(t, root.Find("DataValue"))
}

func TestDecodeControlFrame(t *testing.T) {
	root, err := NewHDLCDecoder(true).Decode([]byte{0x7e, 0xa0, 0x07, 0x03, 0x21, 0x93, 0x0f, 0x01, 0x7e})
	require.NoError(t, err)
	assert.NotNil(t, root.Child("Snrm"))
	assert.Nil(t, root.Child("PDU"))
}

func TestDecodeOtherApdu(t *testing.T) {
	root, err := NewHDLCDecoder(true).Decode(frametest.PushFrame([]byte{0xc4, 0x01, 0xc1, 0x00, 0x11, 0x05}))
	require.NoError(t, err)
	n := root.Find("PDU", "GetResponse")
	require.NotNil(t, n)
	assert.Equal(t, "01C1001105", n.Value())

	root, err = NewHDLCDecoder(true).Decode(frametest.PushFrame([]byte{0x77, 0x01}))
	require.NoError(t, err)
	n = root.Find("PDU", "Unknown")
	require.NotNil(t, n)
	tag, _ := n.Attr("Tag")
	assert.Equal(t, "77", tag)
}

func TestDecodeBrokenBody(t *testing.T) {
	apdu := frametest.ObisPushAPDU(1)
	_, err := NewHDLCDecoder(true).Decode(frametest.PushFrame(apdu[:len(apdu)-3]))
	assert.ErrorIs(t, err, base.ErrXmlDecodeFailure)

	_, err = DecodeAPDU(nil)
	assert.ErrorIs(t, err, base.ErrXmlDecodeFailure)
}

func TestDecodeNotAFrame(t *testing.T) {
	_, err := NewHDLCDecoder(true).Decode([]byte("hello world, no frame"))
	assert.ErrorIs(t, err, base.ErrXmlDecodeFailure)
}
