// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, MinPort, cfg.Port)
	assert.Equal(t, "accounts.json", cfg.DataFile)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, 3*time.Second, cfg.ProxyTimeout)
	assert.False(t, cfg.PersistStrict)
	// bank code 預設為本機位址，至少不得為空
	assert.NotEmpty(t, cfg.BankCode)
}

func TestLoadExplicit(t *testing.T) {
	v := viper.New()
	v.Set("port", 65530)
	v.Set("ip", "10.0.0.9")
	v.Set("data_file", "x.json")
	v.Set("log_dir", "audit")
	v.Set("proxy_timeout", "5s")
	v.Set("persist_strict", true)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 65530, cfg.Port)
	assert.Equal(t, "10.0.0.9", cfg.BankCode)
	assert.Equal(t, "x.json", cfg.DataFile)
	assert.Equal(t, "audit", cfg.LogDir)
	assert.Equal(t, 5*time.Second, cfg.ProxyTimeout)
	assert.True(t, cfg.PersistStrict)
}

func TestLoadRejectsPortOutOfRange(t *testing.T) {
	for _, port := range []int{0, 80, 65524, 65536} {
		v := viper.New()
		v.Set("port", port)
		_, err := Load(v)
		assert.Error(t, err, "port %d", port)
	}
}
