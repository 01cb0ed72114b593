package sink

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cybroslabs/dlms-push-listener/codec"
	"github.com/cybroslabs/dlms-push-listener/enrich"
	"github.com/cybroslabs/dlms-push-listener/internal/frametest"
	"github.com/cybroslabs/dlms-push-listener/message"
	"github.com/cybroslabs/dlms-push-listener/push"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var received = time.Date(2026, 1, 13, 14, 33, 20, 0, time.FixedZone("", -3*3600))

func tree(t *testing.T, apdu []byte) *enrich.Tree {
	t.Helper()
	root, err := codec.NewHDLCDecoder(true).Decode(frametest.PushFrame(apdu))
	require.NoError(t, err)
	return enrich.Enrich(root)
}

func TestSaveAutoconnect(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data", "nested"), nil)
	a := message.Autoconnect{SerialNumber: "ABC123", IP: "10.0.0.5", Port: 4059, Peer: "10.0.0.5:5000", LocalPort: 4059, ReceivedAt: received}

	fn, err := s.SaveAutoconnect(a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "autoconnect_2026-01-13.json"), fn)
	_, err = s.SaveAutoconnect(a)
	require.NoError(t, err)

	recs, err := Load[AutoconnectRecord](fn)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "ABC123", recs[0].SerialNumber)
	assert.Equal(t, "10.0.0.5", recs[0].IP)
	assert.Equal(t, uint16(4059), recs[0].Port)
	assert.Equal(t, "2026-01-13T14:33:20.000000-03:00", recs[0].ReceivedAt)
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
	_, err = uuid.Parse(recs[0].ID)
	assert.NoError(t, err)
}

func TestSaveObisPush(t *testing.T) {
	s := New(t.TempDir(), nil)
	res, err := push.Extract(tree(t, frametest.ObisPushAPDU(0xc000001a)))
	require.NoError(t, err)

	fn, err := s.SavePush(res, Meta{ReceivedAt: received, Peer: "peer", LocalPort: 4059})
	require.NoError(t, err)
	assert.Equal(t, "dlms_push_2026-01-13.json", filepath.Base(fn))

	recs, err := Load[ObisPushRecord](fn)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].InvokeID)
	assert.Equal(t, uint64(26), *recs[0].InvokeID)
	assert.Equal(t, "peer", recs[0].Peer)
	require.Len(t, recs[0].Records, 3)
	assert.Equal(t, "Empty", recs[0].Records[0].Value.Type)
	assert.Equal(t, "12345", recs[0].Records[2].Value.Decimal)

	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  {\n    \"id\"")
}

func TestSaveDayPush(t *testing.T) {
	s := New(t.TempDir(), nil)
	rows := frametest.HalfHourRows(time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC), 4)
	res, err := push.Extract(tree(t, frametest.DayPushAPDU(3, "PEN0001", rows)))
	require.NoError(t, err)

	fn, err := s.SavePush(res, Meta{ReceivedAt: received})
	require.NoError(t, err)
	assert.Equal(t, "dlms_day_push_2026-01-13.json", filepath.Base(fn))

	recs, err := Load[DayPushRecord](fn)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "PEN0001", recs[0].LogicalName)
	assert.Len(t, recs[0].Data, 4)
	assert.Equal(t, push.ProfileHalfHourly, recs[0].Profile)
	assert.True(t, recs[0].IntervalsValid)
}

type otherResult struct{}

func (otherResult) Kind() push.Kind   { return "other" }
func (otherResult) InvokeID() *uint64 { return nil }

func TestSavePushUnsupported(t *testing.T) {
	_, err := New(t.TempDir(), nil).SavePush(otherResult{}, Meta{})
	assert.Error(t, err)
}

func TestSaveRestartsBrokenFile(t *testing.T) {
	for name, content := range map[string]string{
		"broken":    "[{\"id\": ",
		"not array": `{"id": "x"}`,
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			s := New(t.TempDir(), nil)
			fn := s.FileName(PrefixAutoconnect, received)
			require.NoError(t, os.WriteFile(fn, []byte(content), 0o644))

			_, err := s.SaveAutoconnect(message.Autoconnect{SerialNumber: "A", ReceivedAt: received})
			require.NoError(t, err)
			recs, err := Load[AutoconnectRecord](fn)
			require.NoError(t, err)
			assert.Len(t, recs, 1)
		})
	}
}

func TestSaveConcurrent(t *testing.T) {
	s := New(t.TempDir(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SaveAutoconnect(message.Autoconnect{SerialNumber: "A", ReceivedAt: received})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recs, err := Load[AutoconnectRecord](s.FileName(PrefixAutoconnect, received))
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}

func TestHandler(t *testing.T) {
	s := New(t.TempDir(), nil)
	h := NewHandler(s, nil)
	var _ message.Events = h

	h.OnFrame(message.FrameEvent{Tree: tree(t, frametest.ObisPushAPDU(1)), Peer: "p", LocalPort: 1, ReceivedAt: received})
	h.OnFrame(message.FrameEvent{Tree: tree(t, []byte{0xc4, 0x01, 0xc1, 0x00, 0x11, 0x05}), ReceivedAt: received})
	h.OnFrame(message.FrameEvent{})
	h.OnAutoconnect(message.Autoconnect{SerialNumber: "A", IP: "1.2.3.4", Port: 1, ReceivedAt: received})

	recs, err := Load[ObisPushRecord](s.FileName(PrefixObisPush, received))
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	acs, err := Load[AutoconnectRecord](s.FileName(PrefixAutoconnect, received))
	require.NoError(t, err)
	assert.Len(t, acs, 1)

	_, err = os.Stat(s.FileName(PrefixDayPush, received))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
