package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	logger.Info("数据集加载完成")
	logger.Event(WARNING, "sheet has blank rows", Fields{"sheet": "lokasi", "rows": 2})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "数据集加载完成", first["message"])
	assert.Contains(t, first, "time")

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "warn", second["level"])
	assert.Equal(t, "lokasi", second["sheet"])
	assert.Equal(t, float64(2), second["rows"])
}

func TestLoggerSubscribe(t *testing.T) {
	logger := NewWriterLogger(&bytes.Buffer{})
	sub := logger.Subscribe()

	logger.Error("gagal membaca sheet")

	select {
	case msg := <-sub:
		assert.Contains(t, msg, "gagal membaca sheet")
		assert.Contains(t, msg, `"level":"error"`)
	default:
		t.Fatal("subscriber did not receive the entry")
	}

	logger.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok)

	// 取消订阅后继续写日志不应阻塞或panic
	logger.Info("after unsubscribe")
}

func TestLoggerFileAndRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	for i := 0; i < 20; i++ {
		logger.Debug("rotate me")
	}
	require.NoError(t, logger.CheckRotate("1 * 64"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "rotated file plus a fresh app.log")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	logger.Info("fresh")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fresh")
}

func TestLoggerReopen(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(filepath.Join(dir, "a.log"))
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Reopen(filepath.Join(dir, "b.log")))
	logger.Info("to b")

	data, err := os.ReadFile(filepath.Join(dir, "b.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to b")
}

func TestEval(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(64), eval("64"))
	assert.Equal(t, int64(0), eval("ten megabytes"))
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "WARNING", WARNING.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLoggerRotateRenameFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("before")
	require.NoError(t, os.Remove(path))

	// 原文件已被删除，改名失败
	assert.Error(t, logger.CheckRotate("10"))

	logger.Info("still writing")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "still writing")

	// 之后的轮转检查照常工作
	assert.NoError(t, logger.CheckRotate("1 * 1024 * 1024"))
}
