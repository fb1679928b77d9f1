// internal/bank/bank.go

// Package bank 定義核心商業邏輯：帳戶建立、存款、提款、刪除、餘額與總額查詢。
// 採用單一互斥鎖 (sync.Mutex) 保障所有狀態變更「原子且序列化」，避免競爭條件。
// 金額使用 decimal.Decimal 定點數儲存，避免浮點誤差；餘額在任何時刻皆不為負。
package bank

import (
	"sort"
	"sync"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/op/go-logging"
	"github.com/shopspring/decimal"

	"github.com/LeZajoch/alfa-3/internal/storage"
)

var log = logging.MustGetLogger("bank")

// 帳號空間：本行帳號一律落在 [FirstNumber, LastNumber]。
const (
	FirstNumber = 10000
	LastNumber  = 99999
)

// Bank 為聚合根 (Aggregate Root)：管理本節點的所有帳戶。
//   - mu：序列化所有讀寫，且每次變更與其快照寫入位於同一臨界區，
//     確保持久化檔永遠不會擷取到「變更到一半」的狀態。
//   - accts：帳號 → 餘額索引表。
//   - free：回收帳號池（有序集合），配號時優先取最小值。
//   - next：從未使用過的下一個帳號（high-water mark）。
type Bank struct {
	mu      sync.Mutex
	code    string
	accts   map[int]decimal.Decimal
	free    *treeset.Set
	next    int
	persist func(storage.Snapshot) error
	strict  bool
}

// NewBank 建立空白銀行實例；code 為本行的 bank code（通常是本機位址）。
func NewBank(code string) *Bank {
	return &Bank{
		code:  code,
		accts: make(map[int]decimal.Decimal),
		free:  treeset.NewWithIntComparator(),
		next:  FirstNumber,
	}
}

// Code 回傳本行的 bank code。
func (b *Bank) Code() string { return b.code }

// SetPersist 注入持久化鉤子，於每次成功變更後在臨界區內同步觸發。
// strict 為 true 時，快照寫入失敗會回滾該筆變更並回傳 ErrPersistence；
// 否則僅記錄警告，記憶體內的變更照常生效。
func (b *Bank) SetPersist(fn func(storage.Snapshot) error, strict bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.persist = fn
	b.strict = strict
}

// CreateAccount 配發新帳號：回收池非空時取池中最小帳號，
// 否則取 high-water mark 並遞增；帳號空間用罄回傳 ErrBankFull。
// 新帳戶初始餘額為 0。
func (b *Bank) CreateAccount() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int
	recycled := false
	if !b.free.Empty() {
		it := b.free.Iterator()
		it.First()
		n = it.Value().(int)
		b.free.Remove(n)
		recycled = true
	} else {
		if b.next > LastNumber {
			return 0, ErrBankFull
		}
		n = b.next
		b.next++
	}
	b.accts[n] = decimal.Zero

	if err := b.commitLocked(func() {
		delete(b.accts, n)
		if recycled {
			b.free.Add(n)
		} else {
			b.next--
		}
	}); err != nil {
		return 0, err
	}
	return n, nil
}

// Deposit 存款：金額需 > 0；若帳戶不存在回傳 ErrNotFound。
func (b *Bank) Deposit(number int, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrBadAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.accts[number]
	if !ok {
		return ErrNotFound
	}
	b.accts[number] = bal.Add(amount)
	return b.commitLocked(func() { b.accts[number] = bal })
}

// Withdraw 提款：金額需 > 0 且不得超過餘額（維持非負）。
// 餘額不足時完全不改變狀態並回傳 ErrInsufficient。
func (b *Bank) Withdraw(number int, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrBadAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.accts[number]
	if !ok {
		return ErrNotFound
	}
	if bal.LessThan(amount) {
		return ErrInsufficient
	}
	b.accts[number] = bal.Sub(amount)
	return b.commitLocked(func() { b.accts[number] = bal })
}

// Balance 回傳帳戶目前餘額；不存在回傳 ErrNotFound。唯讀，不觸發持久化。
func (b *Bank) Balance(number int) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.accts[number]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return bal, nil
}

// DeleteAccount 刪除帳戶：僅當餘額為 0 時允許；
// 成功後帳號進入回收池，優先於任何新帳號被重新配發。
func (b *Bank) DeleteAccount(number int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.accts[number]
	if !ok {
		return ErrNotFound
	}
	if !bal.IsZero() {
		return ErrNonZeroBalance
	}
	delete(b.accts, number)
	b.free.Add(number)
	return b.commitLocked(func() {
		b.accts[number] = decimal.Zero
		b.free.Remove(number)
	})
}

// TotalValue 回傳全行總額（所有帳戶餘額之和）。唯讀。
func (b *Bank) TotalValue() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := decimal.Zero
	for _, bal := range b.accts {
		total = total.Add(bal)
	}
	return total
}

// ClientCount 回傳目前有效帳戶數。唯讀。
func (b *Bank) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.accts)
}

// Snapshot 匯出銀行狀態到可持久化的 storage.Snapshot。
// 帳戶依帳號排序輸出，使快照檔對相同狀態具有穩定內容。
func (b *Bank) Snapshot() storage.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Restore 由 storage.Snapshot 還原銀行狀態：重建帳戶表、回收池與 high-water mark。
func (b *Bank) Restore(s storage.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accts = make(map[int]decimal.Decimal, len(s.Accounts))
	for _, pa := range s.Accounts {
		b.accts[pa.Number] = pa.Balance
	}
	b.free = treeset.NewWithIntComparator()
	for _, n := range s.FreeNumbers {
		b.free.Add(n)
	}
	b.next = s.NextNumber
	if b.next < FirstNumber {
		b.next = FirstNumber
	}
}

// snapshotLocked 於持鎖狀態下建立快照；呼叫端必須已持有 b.mu。
func (b *Bank) snapshotLocked() storage.Snapshot {
	numbers := make([]int, 0, len(b.accts))
	for n := range b.accts {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	s := storage.Snapshot{
		Meta:       storage.Meta{Version: 1},
		NextNumber: b.next,
	}
	for _, n := range numbers {
		s.Accounts = append(s.Accounts, storage.PersistAccount{Number: n, Balance: b.accts[n]})
	}
	for _, v := range b.free.Values() {
		s.FreeNumbers = append(s.FreeNumbers, v.(int))
	}
	return s
}

// commitLocked 於變更完成後、仍持鎖時觸發持久化。
// undo 為該筆變更的精確反向操作，僅在嚴格模式且寫入失敗時執行。
func (b *Bank) commitLocked(undo func()) error {
	if b.persist == nil {
		return nil
	}
	if err := b.persist(b.snapshotLocked()); err != nil {
		if b.strict {
			undo()
			return ErrPersistence
		}
		log.Warningf("snapshot write failed, keeping in-memory state: %v", err)
	}
	return nil
}
