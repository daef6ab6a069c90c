package conf

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	// Network configuration
	Net  string
	Port string

	// Database configuration
	Database DatabaseConfig

	// Ledger configuration
	Ledger LedgerConfig

	// Storage configuration
	Storage StorageConfig

	// IPFS content store configuration
	IPFS IPFSConfig

	// Token amounts granted by the service
	Reward RewardConfig

	// Provenance scan configuration
	Indexer IndexerConfig

	// Redis configuration
	Redis RedisConfig

	// HTTP server configuration
	Server ServerConfig
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Type         string // mysql, sqlite, pebble
	Dsn          string // MySQL DSN or SQLite file
	MaxOpenConns int
	MaxIdleConns int
	DataDir      string // PebbleDB data directory
}

// LedgerConfig ledger node and contract configuration
type LedgerConfig struct {
	RpcUrl              string
	PrivateKey          string // service signer key, hex
	ContractAddress     string
	ContractAddressFile string // JSON file with an "address" field
	AbiFile             string // contract artifact with an "abi" field
	GasLimit            uint64 // 0 = estimate per transaction
	PollIntervalMs      int    // receipt poll interval
	MaxAttempts         int    // receipt poll attempts
}

// StorageConfig blob storage configuration
type StorageConfig struct {
	Type  string // ipfs, local, s3, minio, oss
	Local LocalStorageConfig
	OSS   OSSStorageConfig
	S3    S3StorageConfig
	MinIO MinIOStorageConfig
}

// LocalStorageConfig local storage configuration
type LocalStorageConfig struct {
	BasePath string
}

// OSSStorageConfig OSS storage configuration
type OSSStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// S3StorageConfig AWS S3 storage configuration
type S3StorageConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Endpoint  string // Optional custom endpoint
}

// MinIOStorageConfig MinIO storage configuration
type MinIOStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// IPFSConfig IPFS HTTP API configuration
type IPFSConfig struct {
	ApiUrl  string
	Timeout int // seconds
}

// RewardConfig token amounts, decimal strings in whole tokens
type RewardConfig struct {
	RewardAmount  string // paid per successful anchor
	InitialAmount string // granted on registration
}

// IndexerConfig provenance scan configuration
type IndexerConfig struct {
	ScanWindow     uint64 // blocks scanned back from the head
	HistoryWindow  uint64 // blocks covered by transfer history queries
	SwaggerBaseUrl string
}

// RedisConfig redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL int // seconds
}

// ServerConfig http server configuration
type ServerConfig struct {
	RateLimit   int // requests per minute per client, 0 = unlimited
	CorsOrigins []string
}

// Cfg global configuration instance
var Cfg *Config

// legacyEnv environment variable names accepted for backward compatibility
var legacyEnv = map[string]string{
	"ledger.rpc_url":         "ETHEREUM_NODE_URL",
	"ledger.private_key":     "PRIVATE_KEY",
	"ledger.gas_limit":       "GAS_LIMIT",
	"ledger.max_attempts":    "TRANSACTION_TIMEOUT",
	"ipfs.api_url":           "IPFS_NODE_URL",
	"ipfs.timeout":           "IPFS_TIMEOUT",
	"reward.reward_amount":   "REWARD_DNET_AMOUNT",
	"reward.initial_amount":  "INITIAL_DNET_AMOUNT",
	"database.dsn":           "MYSQL_DSN",
	"redis.cache_ttl":        "CACHE_DEFAULT_TIMEOUT",
	"server.rate_limit":      "RATE_LIMIT",
	"server.cors_origins":    "CORS_ORIGINS",
	"indexer.scan_window":    "SCAN_WINDOW",
	"indexer.history_window": "HISTORY_WINDOW",
}

// InitConfig initialize configuration
func InitConfig() error {
	viper.SetConfigFile(GetYaml())
	viper.SetEnvPrefix("ANCHOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := viper.BindEnv(key, "ANCHOR_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if _, err := os.Stat(GetYaml()); err == nil {
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("Fatal error config file: %s", err)
		}
	} else {
		log.Printf("Config file %s not found, using environment and defaults", GetYaml())
	}

	Cfg = &Config{
		Net:  viper.GetString("net"),
		Port: viper.GetString("port"),

		Database: DatabaseConfig{
			Type:         viper.GetString("database.type"),
			Dsn:          viper.GetString("database.dsn"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			DataDir:      viper.GetString("database.data_dir"),
		},

		Ledger: LedgerConfig{
			RpcUrl:              viper.GetString("ledger.rpc_url"),
			PrivateKey:          viper.GetString("ledger.private_key"),
			ContractAddress:     viper.GetString("ledger.contract_address"),
			ContractAddressFile: viper.GetString("ledger.contract_address_file"),
			AbiFile:             viper.GetString("ledger.abi_file"),
			GasLimit:            viper.GetUint64("ledger.gas_limit"),
			PollIntervalMs:      viper.GetInt("ledger.poll_interval_ms"),
			MaxAttempts:         viper.GetInt("ledger.max_attempts"),
		},

		Storage: StorageConfig{
			Type: viper.GetString("storage.type"),
			Local: LocalStorageConfig{
				BasePath: viper.GetString("storage.local.base_path"),
			},
			OSS: OSSStorageConfig{
				Endpoint:  viper.GetString("storage.oss.endpoint"),
				AccessKey: viper.GetString("storage.oss.access_key"),
				SecretKey: viper.GetString("storage.oss.secret_key"),
				Bucket:    viper.GetString("storage.oss.bucket"),
			},
			S3: S3StorageConfig{
				Region:    viper.GetString("storage.s3.region"),
				AccessKey: viper.GetString("storage.s3.access_key"),
				SecretKey: viper.GetString("storage.s3.secret_key"),
				Bucket:    viper.GetString("storage.s3.bucket"),
				Endpoint:  viper.GetString("storage.s3.endpoint"),
			},
			MinIO: MinIOStorageConfig{
				Endpoint:  viper.GetString("storage.minio.endpoint"),
				AccessKey: viper.GetString("storage.minio.access_key"),
				SecretKey: viper.GetString("storage.minio.secret_key"),
				Bucket:    viper.GetString("storage.minio.bucket"),
			},
		},

		IPFS: IPFSConfig{
			ApiUrl:  viper.GetString("ipfs.api_url"),
			Timeout: viper.GetInt("ipfs.timeout"),
		},

		Reward: RewardConfig{
			RewardAmount:  viper.GetString("reward.reward_amount"),
			InitialAmount: viper.GetString("reward.initial_amount"),
		},

		Indexer: IndexerConfig{
			ScanWindow:     viper.GetUint64("indexer.scan_window"),
			HistoryWindow:  viper.GetUint64("indexer.history_window"),
			SwaggerBaseUrl: viper.GetString("indexer.swagger_base_url"),
		},

		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetInt("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			CacheTTL: viper.GetInt("redis.cache_ttl"),
		},

		Server: ServerConfig{
			RateLimit:   parseRateLimit(viper.GetString("server.rate_limit")),
			CorsOrigins: splitList(viper.GetStringSlice("server.cors_origins")),
		},
	}

	applyDefaults(Cfg)
	return nil
}

// applyDefaults fills unset values
func applyDefaults(c *Config) {
	if c.Port == "" {
		c.Port = "5000"
	}
	if c.Database.Type == "" {
		c.Database.Type = "mysql"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.DataDir == "" {
		c.Database.DataDir = "./data/db"
	}
	if c.Ledger.RpcUrl == "" {
		c.Ledger.RpcUrl = "http://localhost:8545"
	}
	if c.Ledger.AbiFile == "" {
		c.Ledger.AbiFile = "./build/contracts/DNetToken.json"
	}
	if c.Ledger.ContractAddressFile == "" {
		c.Ledger.ContractAddressFile = "./contract-address.json"
	}
	if c.Ledger.PollIntervalMs <= 0 {
		c.Ledger.PollIntervalMs = 1000
	}
	if c.Ledger.MaxAttempts <= 0 {
		c.Ledger.MaxAttempts = 30
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "ipfs"
	}
	if c.Storage.Local.BasePath == "" {
		c.Storage.Local.BasePath = "./data/files"
	}
	if c.IPFS.ApiUrl == "" {
		c.IPFS.ApiUrl = "http://localhost:5001"
	}
	if c.IPFS.Timeout <= 0 {
		c.IPFS.Timeout = 30
	}
	if c.Reward.RewardAmount == "" {
		c.Reward.RewardAmount = "1"
	}
	if c.Reward.InitialAmount == "" {
		c.Reward.InitialAmount = "10"
	}
	if c.Indexer.ScanWindow == 0 {
		c.Indexer.ScanWindow = 10000
	}
	if c.Indexer.HistoryWindow == 0 {
		c.Indexer.HistoryWindow = 10000
	}
	if c.Indexer.SwaggerBaseUrl == "" {
		c.Indexer.SwaggerBaseUrl = "localhost:" + c.Port
	}
	if c.Redis.CacheTTL <= 0 {
		c.Redis.CacheTTL = 300
	}
	if len(c.Server.CorsOrigins) == 0 {
		c.Server.CorsOrigins = []string{"*"}
	}
}

// parseRateLimit accepts "100" or "100/minute" and returns requests per minute
func parseRateLimit(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 100
	}
	num, unit, _ := strings.Cut(s, "/")
	var n int
	if _, err := fmt.Sscanf(num, "%d", &n); err != nil || n < 0 {
		return 100
	}
	switch strings.TrimSpace(unit) {
	case "second":
		return n * 60
	case "hour":
		if n < 60 {
			return 1
		}
		return n / 60
	default:
		return n
	}
}

// splitList flattens comma separated entries coming from env vars
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
