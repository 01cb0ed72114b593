// Package sink persists push records into date-partitioned JSON array files.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cybroslabs/dlms-push-listener/message"
	"github.com/cybroslabs/dlms-push-listener/push"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	PrefixObisPush    = "dlms_push_"
	PrefixDayPush     = "dlms_day_push_"
	PrefixAutoconnect = "autoconnect_"

	dateLayout       = "2006-01-02"
	receivedAtLayout = "2006-01-02T15:04:05.000000-07:00"
)

type AutoconnectRecord struct {
	ID           string `json:"id"`
	ReceivedAt   string `json:"received_at"`
	SerialNumber string `json:"sn"`
	IP           string `json:"ip"`
	Port         uint16 `json:"port"`
	Peer         string `json:"peer,omitempty"`
	LocalPort    int    `json:"local_port,omitempty"`
}

type ObisPushRecord struct {
	ID         string        `json:"id"`
	ReceivedAt string        `json:"received_at"`
	Peer       string        `json:"peer,omitempty"`
	LocalPort  int           `json:"local_port,omitempty"`
	InvokeID   *uint64       `json:"invoke_id"`
	Records    []push.Record `json:"records"`
}

type DayPushRecord struct {
	ID             string       `json:"id"`
	ReceivedAt     string       `json:"received_at"`
	Peer           string       `json:"peer,omitempty"`
	LocalPort      int          `json:"local_port,omitempty"`
	InvokeID       *uint64      `json:"invoke_id"`
	LogicalName    string       `json:"logical_name"`
	Data           []push.Entry `json:"data"`
	Profile        push.Profile `json:"profile"`
	IntervalsValid bool         `json:"intervals_valid"`
}

// Meta describes where and when a push was received.
type Meta struct {
	ReceivedAt time.Time
	Peer       string
	LocalPort  int
}

// Sink appends records to <dir>/<prefix>YYYY-MM-DD.json, the date taken from
// the receive time. Appends are serialized.
type Sink struct {
	dir    string
	logger *zap.SugaredLogger
	mu     sync.Mutex
}

func New(dir string, logger *zap.SugaredLogger) *Sink {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Sink{dir: dir, logger: logger}
}

func (s *Sink) Dir() string {
	return s.dir
}

// FileName returns the file a record of the prefix received at t goes to.
func (s *Sink) FileName(prefix string, t time.Time) string {
	return filepath.Join(s.dir, prefix+t.Format(dateLayout)+".json")
}

func (s *Sink) SaveAutoconnect(a message.Autoconnect) (string, error) {
	at := receivedAt(a.ReceivedAt)
	r := AutoconnectRecord{
		ID:           uuid.NewString(),
		ReceivedAt:   at.Format(receivedAtLayout),
		SerialNumber: a.SerialNumber,
		IP:           a.IP,
		Port:         a.Port,
		Peer:         a.Peer,
		LocalPort:    a.LocalPort,
	}
	fn := s.FileName(PrefixAutoconnect, at)
	return fn, s.append(fn, r)
}

func (s *Sink) SavePush(res push.Result, m Meta) (string, error) {
	at := receivedAt(m.ReceivedAt)
	switch p := res.(type) {
	case *push.ObisPush:
		fn := s.FileName(PrefixObisPush, at)
		return fn, s.append(fn, ObisPushRecord{
			ID:         uuid.NewString(),
			ReceivedAt: at.Format(receivedAtLayout),
			Peer:       m.Peer,
			LocalPort:  m.LocalPort,
			InvokeID:   p.Invoke,
			Records:    p.Records,
		})
	case *push.DayPush:
		profile := push.ClassifyDayPush(p)
		fn := s.FileName(PrefixDayPush, at)
		return fn, s.append(fn, DayPushRecord{
			ID:             uuid.NewString(),
			ReceivedAt:     at.Format(receivedAtLayout),
			Peer:           m.Peer,
			LocalPort:      m.LocalPort,
			InvokeID:       p.Invoke,
			LogicalName:    p.LogicalName,
			Data:           p.Data,
			Profile:        profile,
			IntervalsValid: push.ValidateDayPushIntervals(p, profile),
		})
	}
	return "", fmt.Errorf("unsupported push result %T", res)
}

func receivedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (s *Sink) append(fn string, rec any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return fmt.Errorf("unable to create data directory: %w", err)
	}
	records, err := readArray(fn)
	if err != nil {
		s.logger.Warnf("restarting %s as an empty array: %v", fn, err)
		records = nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("unable to encode record: %w", err)
	}
	records = append(records, b)

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode records: %w", err)
	}
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("unable to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("unable to replace %s: %w", fn, err)
	}
	return nil
}

// readArray returns the raw elements of the JSON array in fn, nothing if fn does not exist.
func readArray(fn string) ([]json.RawMessage, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Load reads all records of a JSON array file.
func Load[T any](fn string) ([]T, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	var r []T
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return r, nil
}
