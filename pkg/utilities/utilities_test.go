package utilities

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewSnowflakeID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewSnowflakeID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewKSUID(t *testing.T) {
	a, b := NewKSUID(), NewKSUID()
	assert.Len(t, a, 27)
	assert.NotEqual(t, a, b)
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFromString("debug"))
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("bogus"))
}

func TestDurationFromEnv(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, DurationFromEnv("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "nope")
	assert.Equal(t, time.Minute, DurationFromEnv("TEST_DURATION", time.Minute))
}

func TestInit_WithRotatingFile(t *testing.T) {
	dir := t.TempDir()
	lg, err := Init(Config{Level: "info", File: filepath.Join(dir, "api.log")})
	require.NoError(t, err)
	lg.Info("hello")
	_ = lg.Sync()
}
