// internal/storage/model.go
//
// 定義「資料持久化層 (storage layer)」的結構模型。
// 該層的責任是提供銀行節點的快照序列化格式（目前為 JSON），
// 並保存必要的中繼資訊 (Meta)，以便版本控制與未來可擴充為資料庫後端。
package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Meta 為所有持久化快照的中繼資料 (metadata)。
// 記錄儲存方式、版本與建立時間，協助後續格式升級或除錯。
type Meta struct {
	Storage   string    `json:"storage"`        // 儲存類型，例如 "json_snapshot"
	Version   int       `json:"version"`        // 結構版本號
	Timestamp time.Time `json:"timestamp"`      // 快照建立時間
	Note      string    `json:"note,omitempty"` // 備註欄，可選
}

// PersistAccount 為帳戶在儲存層的序列化格式。
// 僅保存資料狀態，不含同步鎖或方法。
type PersistAccount struct {
	Number  int             `json:"number"`  // 帳號（本行內唯一）
	Balance decimal.Decimal `json:"balance"` // 帳戶餘額，永不為負
}

// Snapshot 為銀行狀態的完整快照。
// 除了帳戶清單外，也包含回收帳號池與下一個未用帳號，
// 讓還原後的帳號配置順序與關機前完全一致。
type Snapshot struct {
	Meta        Meta             `json:"_meta"`        // 中繼資料
	Accounts    []PersistAccount `json:"accounts"`     // 帳戶清單（依帳號排序）
	FreeNumbers []int            `json:"free_numbers"` // 已刪除、可回收的帳號（遞增排序）
	NextNumber  int              `json:"next_number"`  // 下一個從未使用過的帳號
}
