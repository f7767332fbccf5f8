package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"

	"github.com/x-xyz/cloutledger/base/env"
	"github.com/x-xyz/cloutledger/domain"
)

// EnvPrefix prefixes every environment override, e.g. LEDGER_MONGO_URI.
const EnvPrefix = "LEDGER"

type Mongo struct {
	URI            string  `mapstructure:"uri"`
	AuthDBName     string  `mapstructure:"authDBName"`
	DBName         string  `mapstructure:"dbName"`
	EnableSSL      bool    `mapstructure:"enableSSL"`
	PoolMultiplier float64 `mapstructure:"poolMultiplier"`
	CheckIndex     bool    `mapstructure:"checkIndex"`
}

type Redis struct {
	Name           string  `mapstructure:"name"`
	URI            string  `mapstructure:"uri"`
	Password       string  `mapstructure:"password"`
	PoolMultiplier float64 `mapstructure:"poolMultiplier"`
}

type Cache struct {
	// LocalSizeMB sizes the in-process layer.
	LocalSizeMB int           `mapstructure:"localSizeMB"`
	ReceiptTTL  time.Duration `mapstructure:"receiptTTL"`
}

type Metrics struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	App  string `mapstructure:"app"`
}

type Escrow struct {
	TreasuryDestination    domain.Address `mapstructure:"treasuryDestination"`
	MarketplaceDestination domain.Address `mapstructure:"marketplaceDestination"`
}

// Token.Faucet enables native deposits over http; keep it off outside dev.
type Token struct {
	Faucet bool `mapstructure:"faucet"`
}

type Config struct {
	Debug         bool          `mapstructure:"debug"`
	LogLevel      string        `mapstructure:"logLevel"`
	ServerAddress string        `mapstructure:"serverAddress"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// Storage is "mongo" or "memory".
	Storage string  `mapstructure:"storage"`
	Mongo   Mongo   `mapstructure:"mongo"`
	Redis   Redis   `mapstructure:"redis"`
	Cache   Cache   `mapstructure:"cache"`
	Metrics Metrics `mapstructure:"metrics"`
	Escrow  Escrow  `mapstructure:"escrow"`
	Token   Token   `mapstructure:"token"`
}

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// flag name -> config key
var flagKeys = map[string]string{
	"log-level": "logLevel",
	"address":   "serverAddress",
	"storage":   "storage",
	"mongo-uri": "mongo.uri",
	"redis-uri": "redis.uri",
}

// Load merges defaults, the yaml config file, LEDGER_* environment variables
// and flags, later sources winning.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("logLevel", "info")
	v.SetDefault("serverAddress", ":9090")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("storage", StorageMemory)
	v.SetDefault("mongo.dbName", "ledger")
	v.SetDefault("mongo.checkIndex", true)
	v.SetDefault("redis.name", "cache")
	v.SetDefault("cache.localSizeMB", 32)
	v.SetDefault("cache.receiptTTL", 10*time.Minute)
	v.SetDefault("metrics.port", 8125)
	v.SetDefault("metrics.env", env.EnvName())
	v.SetDefault("metrics.app", env.AppName())
	v.SetDefault("token.faucet", false)
	// keys without a default are invisible to Unmarshal's env lookup
	for _, k := range []string{
		"debug", "mongo.uri", "mongo.authDBName", "mongo.enableSSL", "mongo.poolMultiplier",
		"redis.uri", "redis.password", "redis.poolMultiplier", "metrics.host",
		"escrow.treasuryDestination", "escrow.marketplaceDestination",
	} {
		if err := v.BindEnv(k); err != nil {
			return Config{}, xerrors.Errorf("bind env %s: %w", k, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, xerrors.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, xerrors.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("infra/configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, xerrors.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, xerrors.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageMongo:
		if c.Mongo.URI == "" {
			return xerrors.New("mongo storage needs mongo.uri")
		}
	default:
		return xerrors.Errorf("unknown storage %q", c.Storage)
	}
	return nil
}
