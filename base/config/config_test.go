package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/x-xyz/cloutledger/domain"
)

const sample = `
logLevel: debug
storage: mongo
mongo:
  uri: mongodb://localhost:27017/?replicaSet=rs0
  dbName: ledger_test
redis:
  uri: localhost:6379
cache:
  receiptTTL: 1m
escrow:
  treasuryDestination: "0x00000000000000000000000000000000000000d1"
token:
  faucet: true
`

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"), nil)
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.Storage)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, ":9090", cfg.ServerAddress)
	require.Equal(t, 32, cfg.Cache.LocalSizeMB)
	require.Equal(t, 10*time.Minute, cfg.Cache.ReceiptTTL)
	require.Equal(t, 8125, cfg.Metrics.Port)
	require.False(t, cfg.Token.Faucet)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample), nil)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, StorageMongo, cfg.Storage)
	require.Equal(t, "ledger_test", cfg.Mongo.DBName)
	require.Equal(t, "localhost:6379", cfg.Redis.URI)
	require.Equal(t, time.Minute, cfg.Cache.ReceiptTTL)
	require.Equal(t, domain.Address("0x00000000000000000000000000000000000000d1"), cfg.Escrow.TreasuryDestination)
	require.True(t, cfg.Token.Faucet)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("LEDGER_LOGLEVEL", "warn")
	t.Setenv("LEDGER_METRICS_HOST", "datadog-agent")
	t.Setenv("LEDGER_TOKEN_FAUCET", "false")
	t.Setenv("LEDGER_ESCROW_MARKETPLACEDESTINATION", "0x00000000000000000000000000000000000000d2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("address", ":9090", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--address", ":8080"}))

	cfg, err := Load(writeConfig(t, sample), flags)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ServerAddress)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "datadog-agent", cfg.Metrics.Host)
	require.Equal(t, domain.Address("0x00000000000000000000000000000000000000d2"), cfg.Escrow.MarketplaceDestination)
	require.False(t, cfg.Token.Faucet)
}

func TestValidate(t *testing.T) {
	_, err := Load(writeConfig(t, "storage: mongo\n"), nil)
	require.Error(t, err)

	_, err = Load(writeConfig(t, "storage: sqlite\n"), nil)
	require.Error(t, err)
}
