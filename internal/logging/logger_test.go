package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visme-go/internal/config"
)

func TestInitWritesPerLevelFiles(t *testing.T) {
	root := t.TempDir()
	log, err := Init(root, config.LoggingConfig{Directory: "logs", MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	require.NoError(t, err)

	log.Info("detection finished", zap.String("trial", "t1"))
	log.Warn("slow")
	_ = log.Sync()

	files, err := filepath.Glob(filepath.Join(root, "logs", "*-info.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trial":"t1"`)
	assert.NotContains(t, string(data), "slow")
}

func observed(level logger.LogLevel) (*GormZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormZapLogger(zap.New(core))
	return l.LogMode(level).(*GormZapLogger), logs
}

func TestGormZapLoggerTrace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	t.Run("errors", func(t *testing.T) {
		l, logs := observed(logger.Warn)
		l.Trace(ctx, time.Now(), sql, errors.New("boom"))
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		l, logs := observed(logger.Warn)
		l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("slow query", func(t *testing.T) {
		l, logs := observed(logger.Warn)
		l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "slow query", logs.All()[0].Message)
	})

	t.Run("silent", func(t *testing.T) {
		l, logs := observed(logger.Silent)
		l.Trace(ctx, time.Now().Add(-time.Second), sql, errors.New("boom"))
		assert.Equal(t, 0, logs.Len())
	})
}
