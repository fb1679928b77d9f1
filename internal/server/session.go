// internal/server/session.go
//
// 每條連線一個 session：以 CRLF 切割輸入位元組流（允許跨多次 read 的
// 不完整片段），逐行走 解析 → （本地執行 | 代理轉發）→ 回應 的迴圈，
// 直到對端斷線或伺服器關機。
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/LeZajoch/alfa-3/internal/bank"
	"github.com/LeZajoch/alfa-3/internal/protocol"
)

// welcomeBanner 於連線建立時送出（含 CRLF 結尾）。
const welcomeBanner = "WELCOME TO THE BANK SERVER!"

// helpText 為 HELP 指令的回應內容；session 會再補上最後的 CRLF。
const helpText = "Available Commands:\r\n" +
	"BC - returns bank code\r\n" +
	"AC - creates an account and returns its number\r\n" +
	"AD - adds money to account\r\n" +
	"AW - withdraws money from account\r\n" +
	"AB - returns account balance\r\n" +
	"AR - deletes account if empty\r\n" +
	"BA - returns bank value\r\n" +
	"BN - returns number of clients in bank"

// handle 驅動單一連線的狀態機。關機訊號到達時關閉連線，
// 讓阻塞中的讀取立即返回；處理到一半的指令仍會完成並回覆。
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	clientIP := remoteIP(conn)
	log.Debugf("client %s connected", clientIP)

	if _, err := conn.Write([]byte(welcomeBanner + "\r\n")); err != nil {
		return
	}

	sc := bufio.NewScanner(conn)
	sc.Split(splitCRLF)
	for sc.Scan() {
		line := strings.ToUpper(strings.TrimSpace(sc.Text()))
		resp := s.process(line, clientIP)
		if _, err := conn.Write([]byte(resp + "\r\n")); err != nil {
			return
		}
	}
	log.Debugf("client %s disconnected", clientIP)
}

// splitCRLF 為 bufio.Scanner 的切割函式：止於 CRLF 的完整行才算一個 token，
// 其後的位元組留在緩衝區給下一行；串流結束時未終結的殘餘資料直接丟棄。
func splitCRLF(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.Index(data, []byte{'\r', '\n'}); i >= 0 {
		return i + 2, data[:i], nil
	}
	return 0, nil, nil
}

// process 處理一行（已大寫化）指令並回傳回應文字（不含 CRLF）。
// 每筆指令——包含被代理與失敗的——都會寫入一筆稽核日誌。
func (s *Server) process(line, clientIP string) string {
	cmd, err := protocol.Parse(line)
	if err != nil {
		s.audit.Log("ER", clientIP, line, err.Error())
		return "ER " + err.Error()
	}

	// 帳戶定址指令：bank code 不同於本行時，AD/AW/AB 走代理；
	// AR 僅允許本行帳戶。
	if cmd.Addressed() && cmd.BankCode != s.cfg.BankCode {
		if cmd.Kind == protocol.KindRemove {
			s.audit.Log("ER", clientIP, line, "THE ACCOUNT NUMBER FORMAT IS NOT CORRECT.")
			return "ER THE ACCOUNT NUMBER FORMAT IS NOT CORRECT."
		}
		resp, err := s.forward(cmd)
		if err != nil {
			s.audit.Log("ER", clientIP, line, err.Error())
			return "ER " + err.Error()
		}
		s.audit.Log("INFO", clientIP, line, "")
		return resp
	}

	resp, err := s.execute(cmd)
	if err != nil {
		msg := wireError(cmd.Kind, err)
		s.audit.Log("ER", clientIP, line, msg)
		return "ER " + msg
	}
	s.audit.Log("INFO", clientIP, line, "")
	return resp
}

// execute 對本地 Ledger 執行指令並組出成功回應。
func (s *Server) execute(cmd protocol.Command) (string, error) {
	switch cmd.Kind {
	case protocol.KindHelp:
		return helpText, nil
	case protocol.KindBankCode:
		return "BC " + s.cfg.BankCode, nil
	case protocol.KindCreate:
		n, err := s.bank.CreateAccount()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("AC %d/%s", n, s.cfg.BankCode), nil
	case protocol.KindDeposit:
		return "AD", s.bank.Deposit(cmd.Account, cmd.Amount)
	case protocol.KindWithdraw:
		return "AW", s.bank.Withdraw(cmd.Account, cmd.Amount)
	case protocol.KindBalance:
		bal, err := s.bank.Balance(cmd.Account)
		if err != nil {
			return "", err
		}
		return "AB " + bal.String(), nil
	case protocol.KindRemove:
		return "AR", s.bank.DeleteAccount(cmd.Account)
	case protocol.KindTotal:
		return "BA " + s.bank.TotalValue().String(), nil
	case protocol.KindCount:
		return fmt.Sprintf("BN %d", s.bank.ClientCount()), nil
	}
	return "", &protocol.ParseError{Message: "UNKNOWN COMMAND"}
}

// wireError 將領域錯誤對應為協定規定的錯誤文案。
// 「帳戶不存在」的文案依指令種類不同（資金類與查詢/刪除類各一套）。
func wireError(kind protocol.Kind, err error) string {
	switch {
	case errors.Is(err, bank.ErrInsufficient):
		return "INSUFFICIENT FUNDS."
	case errors.Is(err, bank.ErrNonZeroBalance):
		return "CANNOT DELETE AN ACCOUNT THAT HAS FUNDS."
	case errors.Is(err, bank.ErrBankFull):
		return "OUR BANK DOES NOT ALLOW NEW ACCOUNT CREATION."
	case errors.Is(err, bank.ErrPersistence):
		return "PERSISTENCE ERROR"
	case errors.Is(err, bank.ErrNotFound), errors.Is(err, bank.ErrBadAmount):
		if kind == protocol.KindDeposit || kind == protocol.KindWithdraw {
			return "ACCOUNT NUMBER AND AMOUNT ARE NOT IN THE CORRECT FORMAT."
		}
		return "THE ACCOUNT NUMBER FORMAT IS NOT CORRECT."
	}
	return strings.ToUpper(err.Error())
}

// remoteIP 取出對端 IP（不含埠號）；無法解析時回傳完整位址字串。
func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
