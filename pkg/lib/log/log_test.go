package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestSetup_LazyLoggerFollowsDefault(t *testing.T) {
	restoreDefault(t)
	logger := Logger("core/test")

	var first, second bytes.Buffer
	Setup(&first, LevelInfo, false)
	logger.Debug("hidden")
	logger.Info("accepted", "remote", "10.0.0.5:4000")

	assert.NotContains(t, first.String(), "hidden")
	assert.Contains(t, first.String(), "component=core/test")
	assert.Contains(t, first.String(), "remote=10.0.0.5:4000")

	// 重定向后同一个 LazyLogger 输出到新目标
	Setup(&second, LevelDebug, false)
	logger.Debug("visible")
	assert.Contains(t, second.String(), "visible")
	assert.NotContains(t, first.String(), "visible")
}

func TestSetup_JSON(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	Setup(&buf, LevelWarn, true)
	Logger("core/json").Info("dropped")
	Logger("core/json").Error("failed", "err", "boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "failed", rec["msg"])
	assert.Equal(t, "core/json", rec["component"])
	assert.Equal(t, "boom", rec["err"])
}
