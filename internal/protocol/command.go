// internal/protocol/command.go

// Package protocol 將一行文字指令解析為型別化的 Command。
// 解析器不做任何 I/O、無副作用；錯誤訊息即為協定規定的 ER 回應文字。
//
// 指令文法（輸入已去除行尾、轉為大寫）：
//
//	HELP | BC | AC | BA | BN
//	AD <account>/<bank_code> <amount>
//	AW <account>/<bank_code> <amount>
//	AB <account>/<bank_code>
//	AR <account>/<bank_code>
//
// <bank_code> 為不透明字串，只做相等比較，不在此層驗證或解析。
package protocol

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind 標示指令種類（tagged variant，取代類別階層式的 command pattern）。
type Kind int

const (
	KindHelp Kind = iota
	KindBankCode
	KindCreate
	KindDeposit
	KindWithdraw
	KindBalance
	KindRemove
	KindTotal
	KindCount
)

// Command 為解析完成的指令，僅攜帶對應種類實際用到的欄位。
// Raw 保留原始（已大寫化）指令行，供代理轉發時原封不動送出。
type Command struct {
	Kind     Kind
	Account  int             // AD/AW/AB/AR
	BankCode string          // AD/AW/AB/AR
	Amount   decimal.Decimal // AD/AW
	Raw      string
}

// Addressed 回報指令是否指向特定帳戶（因而攜帶 bank code）。
func (c Command) Addressed() bool {
	switch c.Kind {
	case KindDeposit, KindWithdraw, KindBalance, KindRemove:
		return true
	}
	return false
}

// ParseError 表示指令行無法解析；Message 為回覆給客戶端的文字。
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func parseErr(msg string) error { return &ParseError{Message: msg} }

// 各指令的格式錯誤訊息，沿用既有協定的固定文案。
const (
	msgFundsFormat   = "ACCOUNT NUMBER AND AMOUNT ARE NOT IN THE CORRECT FORMAT."
	msgAccountFormat = "THE ACCOUNT NUMBER FORMAT IS NOT CORRECT."
)

// Parse 解析一行指令（呼叫端已去除 CRLF 並轉為大寫）。
// 回傳型別化 Command，或 *ParseError 指出哪個 token 不合法。
func Parse(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, parseErr("INVALID COMMAND")
	}
	cmd := Command{Raw: line}

	switch parts[0] {
	case "HELP":
		cmd.Kind = KindHelp
		return bare(cmd, parts)
	case "BC":
		cmd.Kind = KindBankCode
		return bare(cmd, parts)
	case "AC":
		cmd.Kind = KindCreate
		return bare(cmd, parts)
	case "BA":
		cmd.Kind = KindTotal
		return bare(cmd, parts)
	case "BN":
		cmd.Kind = KindCount
		return bare(cmd, parts)

	case "AD", "AW":
		if parts[0] == "AD" {
			cmd.Kind = KindDeposit
		} else {
			cmd.Kind = KindWithdraw
		}
		if len(parts) != 3 {
			return Command{}, parseErr(msgFundsFormat)
		}
		acct, code, err := parseTarget(parts[1], msgFundsFormat)
		if err != nil {
			return Command{}, err
		}
		amount, derr := decimal.NewFromString(parts[2])
		if derr != nil || !amount.IsPositive() {
			return Command{}, parseErr(msgFundsFormat)
		}
		cmd.Account, cmd.BankCode, cmd.Amount = acct, code, amount
		return cmd, nil

	case "AB", "AR":
		if parts[0] == "AB" {
			cmd.Kind = KindBalance
		} else {
			cmd.Kind = KindRemove
		}
		if len(parts) != 2 {
			return Command{}, parseErr(msgAccountFormat)
		}
		acct, code, err := parseTarget(parts[1], msgAccountFormat)
		if err != nil {
			return Command{}, err
		}
		cmd.Account, cmd.BankCode = acct, code
		return cmd, nil

	default:
		return Command{}, parseErr("UNKNOWN COMMAND")
	}
}

// bare 檢查無參數指令不得攜帶多餘 token。
func bare(cmd Command, parts []string) (Command, error) {
	if len(parts) != 1 {
		return Command{}, parseErr("INVALID NUMBER OF ARGUMENTS FOR " + parts[0])
	}
	return cmd, nil
}

// parseTarget 解析 <account>/<bank_code>：帳號需為正整數，
// bank code 僅需非空，其餘一律視為不透明字串。
func parseTarget(token, msg string) (int, string, error) {
	numStr, code, found := strings.Cut(token, "/")
	if !found || code == "" {
		return 0, "", parseErr(msg)
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, "", parseErr(msg)
	}
	return n, code, nil
}
