package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeZajoch/alfa-3/internal/auditlog"
	"github.com/LeZajoch/alfa-3/internal/bank"
	"github.com/LeZajoch/alfa-3/internal/config"
	"github.com/LeZajoch/alfa-3/internal/server"
	"github.com/LeZajoch/alfa-3/internal/storage"
)

var log = logging.MustGetLogger("main")

var stdoutLogFormat = logging.MustStringFormatter(
	`%{color:reset}%{color}%{time:15:04:05.000} [%{shortfunc}] [%{level}] %{message}`,
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bank node",
	Long:  "Loads the snapshot, binds the configured port and serves bank protocol clients until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		return run(cfg)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().IntP("port", "p", config.MinPort, "listening port (65525-65535)")
	startCmd.Flags().String("ip", "", "bank code override (defaults to the local IP address)")
	startCmd.Flags().String("data-file", "accounts.json", "snapshot file path")
	startCmd.Flags().String("log-dir", "logs", "audit log directory")
	startCmd.Flags().Bool("persist-strict", false, "roll back a mutation when its snapshot write fails")

	_ = viper.BindPFlag("port", startCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("ip", startCmd.Flags().Lookup("ip"))
	_ = viper.BindPFlag("data_file", startCmd.Flags().Lookup("data-file"))
	_ = viper.BindPFlag("log_dir", startCmd.Flags().Lookup("log-dir"))
	_ = viper.BindPFlag("persist_strict", startCmd.Flags().Lookup("persist-strict"))
}

// run 組裝各模組並啟動節點：
// 還原快照 → 注入持久化鉤子 → 監聽 → 收到訊號後做最後一次快照寫入。
func run(cfg config.Config) error {
	backend := logging.NewLogBackend(os.Stdout, "", 0)
	logging.SetBackend(logging.NewBackendFormatter(backend, stdoutLogFormat))

	b := bank.NewBank(cfg.BankCode)
	if snap, err := storage.LoadSnapshot(cfg.DataFile); err == nil {
		b.Restore(snap)
		log.Infof("restored %d accounts from %s", b.ClientCount(), cfg.DataFile)
	}
	b.SetPersist(func(s storage.Snapshot) error {
		return storage.SaveSnapshot(cfg.DataFile, s)
	}, cfg.PersistStrict)

	audit, err := auditlog.New(cfg.LogDir)
	if err != nil {
		return err
	}

	srv := server.New(b, audit, server.Config{
		BankCode:     cfg.BankCode,
		ProxyPort:    cfg.Port,
		ProxyTimeout: cfg.ProxyTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("listening on :%d with bank code %s", cfg.Port, cfg.BankCode)
	if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
		return err
	}

	// 關機：接受迴圈已停止、所有 session 已收尾，最後再寫一次快照。
	log.Info("shutting down, saving account data")
	return storage.SaveSnapshot(cfg.DataFile, b.Snapshot())
}
