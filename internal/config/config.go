// internal/config/config.go

// Package config 負責把 viper 載入的原始設定轉成核心所需的已解析值：
// 監聽埠（限定 65525–65535）、本行 bank code（預設為本機非 loopback IPv4）、
// 快照檔與日誌目錄路徑、代理逾時與持久化失敗策略。
// 核心其他套件只拿到解析完成的 Config，不接觸任何設定來源。
package config

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// 允許的監聽埠範圍。
const (
	MinPort = 65525
	MaxPort = 65535
)

// Config 為啟動時解析完成的節點設定。
type Config struct {
	Port          int           // TCP 監聽埠，同時也是對外代理的目標埠
	BankCode      string        // 本行代碼（節點位址）
	DataFile      string        // 快照檔路徑
	LogDir        string        // 稽核日誌目錄
	ProxyTimeout  time.Duration // 代理連線/回應逾時
	PersistStrict bool          // true：快照寫入失敗回滾該筆變更
}

// Load 從 v 讀出設定並驗證；未設定的鍵使用預設值。
func Load(v *viper.Viper) (Config, error) {
	v.SetDefault("port", MinPort)
	v.SetDefault("data_file", "accounts.json")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("proxy_timeout", "3s")
	v.SetDefault("persist_strict", false)

	cfg := Config{
		Port:          v.GetInt("port"),
		BankCode:      v.GetString("ip"),
		DataFile:      v.GetString("data_file"),
		LogDir:        v.GetString("log_dir"),
		ProxyTimeout:  v.GetDuration("proxy_timeout"),
		PersistStrict: v.GetBool("persist_strict"),
	}
	if cfg.Port < MinPort || cfg.Port > MaxPort {
		return Config{}, errors.Errorf("PORT MUST BE IN THE RANGE %d - %d", MinPort, MaxPort)
	}
	if cfg.ProxyTimeout <= 0 {
		cfg.ProxyTimeout = 3 * time.Second
	}
	if cfg.BankCode == "" {
		cfg.BankCode = localIP()
	}
	return cfg, nil
}

// localIP 取得本機第一個非 loopback 的 IPv4 位址作為 bank code；
// 找不到時退回 127.0.0.1（單機測試情境）。
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
