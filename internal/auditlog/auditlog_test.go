// internal/auditlog/auditlog_test.go
//
// 驗證稽核日誌的磁碟契約：依日期命名的 JSON 陣列檔、
// 分鐘精度時間戳，以及錯誤欄位僅在失敗紀錄出現。
package auditlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendsToDailyFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)

	fixed := time.Date(2026, 8, 30, 14, 5, 42, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Log("INFO", "10.0.0.7", "BC", "")
	l.Log("ER", "10.0.0.7", "XX", "UNKNOWN COMMAND")

	data, err := os.ReadFile(filepath.Join(dir, "30,08,2026.json"))
	require.NoError(t, err)

	var entries []Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, "2026-08-30T14:05", entries[0].Timestamp) // 分鐘精度，無秒數
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "10.0.0.7", entries[0].ClientIP)
	assert.Equal(t, "BC", entries[0].Command)
	assert.Empty(t, entries[0].Error)

	assert.Equal(t, "ER", entries[1].Level)
	assert.Equal(t, "UNKNOWN COMMAND", entries[1].Error)
}

func TestLogRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)

	fixed := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	path := filepath.Join(dir, "30,08,2026.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l.Log("INFO", "10.0.0.7", "BN", "")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "BN", entries[0].Command)
}
