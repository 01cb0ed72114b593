package sink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	d, err := NewDailyFile(dir)
	require.NoError(t, err)
	now := time.Date(2026, 1, 13, 23, 59, 59, 0, time.Local)
	d.now = func() time.Time { return now }

	_, err = d.Write([]byte("first\n"))
	require.NoError(t, err)
	now = now.Add(2 * time.Second)
	_, err = d.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, d.Sync())
	require.NoError(t, d.Close())

	b, err := os.ReadFile(filepath.Join(dir, "dlms_log_2026-01-13.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(b))
	b, err = os.ReadFile(filepath.Join(dir, "dlms_log_2026-01-14.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(b))
}

func TestTee(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDailyFile(dir)
	require.NoError(t, err)
	defer d.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := Tee(zap.New(core), d, zapcore.InfoLevel)
	logger.Sugar().Infof("autoconnect (port %d)", 4059)
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	assert.Equal(t, 1, logs.Len())
	b, err := os.ReadFile(filepath.Join(dir, PrefixLog+time.Now().Format(dateLayout)+".txt"))
	require.NoError(t, err)
	assert.Regexp(t, `^\[\d\d:\d\d:\d\d\] INFO autoconnect \(port 4059\)\n$`, string(b))
}
