package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const PrefixLog = "dlms_log_"

// DailyFile is a zapcore.WriteSyncer appending to <dir>/dlms_log_YYYY-MM-DD.txt,
// switching files when the date changes.
type DailyFile struct {
	dir  string
	now  func() time.Time
	mu   sync.Mutex
	date string
	f    *os.File
}

func NewDailyFile(dir string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	return &DailyFile{dir: dir, now: time.Now}, nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	date := d.now().Format(dateLayout)
	if d.f == nil || date != d.date {
		if d.f != nil {
			_ = d.f.Close()
			d.f = nil
		}
		f, err := os.OpenFile(filepath.Join(d.dir, PrefixLog+date+".txt"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		d.f, d.date = f, date
	}
	return d.f.Write(p)
}

func (d *DailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	return d.f.Sync()
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// FileCore encodes entries as "[15:04:05] LEVEL message fields" lines into w.
func FileCore(w zapcore.WriteSyncer, level zapcore.LevelEnabler) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + t.Format(time.TimeOnly) + "]")
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.ConsoleSeparator = " "
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), w, level)
}

// Tee returns logger writing additionally to w.
func Tee(logger *zap.Logger, w zapcore.WriteSyncer, level zapcore.LevelEnabler) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, FileCore(w, level))
	}))
}
