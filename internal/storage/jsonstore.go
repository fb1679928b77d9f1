// internal/storage/jsonstore.go
//
// 提供 JSON 快照 (Snapshot) 的序列化與反序列化實作。
// 採「原子寫入」策略 (atomic write)：先寫入 .tmp 檔，再以 rename() 取代原檔，
// 確保寫入中斷（停電或程式崩潰）時原檔不會損壞、也不會觀察到半寫狀態。
package storage

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// LoadSnapshot 讀取指定路徑的 JSON 快照，並解析成 Snapshot 結構。
// 若檔案不存在或格式錯誤，回傳對應錯誤給上層（通常於系統啟動時呼叫）。
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return snap, errors.Wrapf(err, "decode snapshot %s", path)
	}
	return snap, nil
}

// SaveSnapshot 將 Snapshot 序列化為 JSON 檔案，並採原子方式寫入。
// 流程：
//  1. 設定 Meta.Storage 與當前時間戳。
//  2. 寫入 path+".tmp" 暫存檔。
//  3. 寫入完成後使用 os.Rename() 取代正式檔案。
func SaveSnapshot(path string, snap Snapshot) error {
	snap.Meta.Storage = "json_snapshot"
	snap.Meta.Timestamp = time.Now()
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "create snapshot tmp file")
	}

	// 使用縮排格式輸出，方便人工檢視
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return errors.Wrap(err, "encode snapshot")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close snapshot tmp file")
	}

	// 原子替換
	return errors.Wrap(os.Rename(tmp, path), "replace snapshot")
}
