// internal/server/proxy.go
//
// 代理路由：AD/AW/AB 指令的 bank code 非本行時，開一條新的對外 TCP 連線
// 到目標銀行（統一埠號），原封轉發指令、讀回單行回應後關閉連線，
// 並把該行原樣轉交給原始客戶端。
//
// 對外 I/O 一律在未持有 Ledger 鎖的情況下進行，
// 慢速或失聯的同儕不會卡住其他客戶端的本地操作。
package server

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/LeZajoch/alfa-3/internal/protocol"
)

// 代理失敗的兩種結果，session 會轉成對應的 ER 回應。
var (
	ErrProxyUnreachable = errors.New("PROXY UNREACHABLE")
	ErrProxyTimeout     = errors.New("PROXY TIMEOUT")
)

// forward 將指令同步轉發到 cmd.BankCode 所指的銀行並回傳其回應行。
// 連線建立與整段往返皆受 ProxyTimeout 限制；逾時與拒連分開回報。
func (s *Server) forward(cmd protocol.Command) (string, error) {
	addr := net.JoinHostPort(cmd.BankCode, strconv.Itoa(s.cfg.ProxyPort))

	conn, err := net.DialTimeout("tcp", addr, s.cfg.ProxyTimeout)
	if err != nil {
		log.Warningf("proxy dial %s: %v", addr, err)
		if isTimeout(err) {
			return "", ErrProxyTimeout
		}
		return "", ErrProxyUnreachable
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.cfg.ProxyTimeout))

	if _, err := conn.Write([]byte(cmd.Raw + "\r\n")); err != nil {
		log.Warningf("proxy write %s: %v", addr, err)
		return "", proxyErr(err)
	}

	r := bufio.NewReader(conn)
	line, err := readLine(r)
	if err != nil {
		log.Warningf("proxy read %s: %v", addr, err)
		return "", proxyErr(err)
	}
	// 同儕節點連線時會先送出歡迎字串，跳過後才是真正的回應。
	if line == welcomeBanner {
		if line, err = readLine(r); err != nil {
			log.Warningf("proxy read %s: %v", addr, err)
			return "", proxyErr(err)
		}
	}
	return line, nil
}

// readLine 讀取一行 CRLF 結尾的回應並去除行尾。
func readLine(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func proxyErr(err error) error {
	if isTimeout(err) {
		return ErrProxyTimeout
	}
	return ErrProxyUnreachable
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
