// internal/bank/errors.go
//
// 本檔集中定義「領域錯誤（domain errors）」。
// 這些錯誤屬於商業邏輯層級（非系統錯誤），由上層 session 轉換成
// 協定規定的 ER 回應文字。集中管理能確保回應行為一致、方便測試。
package bank

import "errors"

var (
	// ErrNotFound 代表帳戶不存在。
	ErrNotFound = errors.New("account not found")

	// ErrBadAmount 代表金額非法（<= 0）。
	// 正常流程下 parser 會先擋掉，此為 Ledger 的最後防線。
	ErrBadAmount = errors.New("amount must be > 0")

	// ErrInsufficient 代表餘額不足，導致提款失敗。
	ErrInsufficient = errors.New("insufficient funds")

	// ErrNonZeroBalance 代表帳戶仍有餘額，不得刪除。
	ErrNonZeroBalance = errors.New("account still holds funds")

	// ErrBankFull 代表帳號空間（10000–99999）已用罄。
	ErrBankFull = errors.New("no account numbers left")

	// ErrPersistence 代表快照寫入失敗且嚴格模式已回滾該筆變更。
	ErrPersistence = errors.New("snapshot write failed")
)
