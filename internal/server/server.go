// internal/server/server.go
//
// Package server 為 TCP 傳輸層：監聽連線、為每條連線啟動一個 session、
// 並在需要時把指令代理到持有目標帳戶的遠端銀行節點。
// 分層原則與 bank 層一致：server 依賴 bank，bank 不知道傳輸層存在。
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/LeZajoch/alfa-3/internal/bank"
)

var log = logging.MustGetLogger("server")

// Recorder 為外部稽核日誌協作者的介面：每處理一筆指令呼叫一次。
// 檔案命名、輪替與格式皆為實作方的責任。
type Recorder interface {
	Log(level, clientIP, command, errMsg string)
}

// Config 為傳輸層所需的已解析設定；server 自身不讀任何設定檔。
type Config struct {
	BankCode     string        // 本行代碼（比較用，不在此層解析）
	ProxyPort    int           // 同儕節點統一監聽的埠，對外代理時使用
	ProxyTimeout time.Duration // 代理連線與等候回應的時間上限
}

// Server 持有單一 Bank 實例，供所有並行 session 共用。
type Server struct {
	bank  *bank.Bank
	audit Recorder
	cfg   Config
	wg    sync.WaitGroup
}

// New 建立 TCP 伺服器；audit 不得為 nil。
func New(b *bank.Bank, audit Recorder, cfg Config) *Server {
	if cfg.ProxyTimeout <= 0 {
		cfg.ProxyTimeout = 3 * time.Second
	}
	return &Server{bank: b, audit: audit, cfg: cfg}
}

// ListenAndServe 綁定 addr 後進入 Serve 迴圈。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve 持續接受連線，為每條連線啟動一個 session goroutine。
// ctx 取消後停止接受新連線，並等候進行中的 session 完成當前指令。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				// 正常關機：等所有 session 收尾後交還控制權，
				// 由呼叫端做最後一次快照寫入。
				s.wg.Wait()
				return nil
			default:
				return errors.Wrap(err, "accept")
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}
