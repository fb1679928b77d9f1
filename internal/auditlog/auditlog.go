// internal/auditlog/auditlog.go

// Package auditlog 實作稽核日誌協作者：每處理一筆指令寫入一筆紀錄，
// 依日期分檔（DD,MM,YYYY.json），單檔為一個 JSON 陣列。
// 時間戳只記到分鐘，內容包含層級、客戶端 IP、原始指令與可選的錯誤訊息。
package auditlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("auditlog")

// Entry 為單筆稽核紀錄的磁碟格式。
type Entry struct {
	Timestamp string `json:"timestamp"` // 分鐘精度，例如 2026-08-30T14:05
	Level     string `json:"level"`     // INFO 或 ER
	ClientIP  string `json:"client_ip"`
	Command   string `json:"command"`
	Error     string `json:"error,omitempty"`
}

// Logger 將稽核紀錄寫入 dir 下的日檔；寫入以互斥鎖序列化。
type Logger struct {
	mu  sync.Mutex
	dir string
	now func() time.Time // 測試時可替換
}

// New 建立稽核日誌器並確保目錄存在。
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create log dir %s", dir)
	}
	return &Logger{dir: dir, now: time.Now}, nil
}

// Log 追加一筆紀錄到當日檔案。
// 寫入失敗只記錄警告，不影響指令處理（稽核為 best-effort）。
func (l *Logger) Log(level, clientIP, command, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry := Entry{
		Timestamp: now.Format("2006-01-02T15:04"),
		Level:     level,
		ClientIP:  clientIP,
		Command:   command,
		Error:     errMsg,
	}
	path := filepath.Join(l.dir, now.Format("02,01,2006")+".json")

	var entries []Entry
	if data, err := os.ReadFile(path); err == nil {
		// 檔案損壞時從空陣列重新開始
		_ = json.Unmarshal(data, &entries)
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Warningf("encode audit log: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warningf("write audit log %s: %v", path, err)
	}
}
