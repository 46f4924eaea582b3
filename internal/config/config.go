package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	RefAPI   RefAPIConfig   `yaml:"ref_api"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CacheConfig holds dictionary cache settings.
type CacheConfig struct {
	TTL          time.Duration `yaml:"ttl"           env:"CACHE_TTL"           env-default:"24h"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"CACHE_FETCH_TIMEOUT" env-default:"30s"`
	PageSize     int           `yaml:"page_size"     env:"CACHE_PAGE_SIZE"     env-default:"100"`
	MaxPages     int           `yaml:"max_pages"     env:"CACHE_MAX_PAGES"     env-default:"100"`
	SnapshotKey  string        `yaml:"snapshot_key"  env:"CACHE_SNAPSHOT_KEY"  env-default:"refdict:snapshot"`
	TimestampKey string        `yaml:"timestamp_key" env:"CACHE_TIMESTAMP_KEY" env-default:"refdict:snapshot:ts"`
}

// RefAPIConfig holds settings of the reference-data HTTP API.
type RefAPIConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"REF_API_BASE_URL"   env-default:"http://localhost:8080/api"`
	Timeout   time.Duration `yaml:"timeout"    env:"REF_API_TIMEOUT"    env-default:"10s"`
	RetryWait time.Duration `yaml:"retry_wait" env:"REF_API_RETRY_WAIT" env-default:"500ms"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StorageConfig selects the durable key-value store.
type StorageConfig struct {
	Backend    string `yaml:"backend"     env:"STORAGE_BACKEND"     env-default:"sqlite"`
	SQLitePath string `yaml:"sqlite_path" env:"STORAGE_SQLITE_PATH" env-default:"./refdict.db"`
	// Namespace scopes keys in a shared Postgres table, one per tenant.
	Namespace string `yaml:"namespace" env:"STORAGE_NAMESPACE" env-default:"default"`
}

// DatabaseConfig holds PostgreSQL connection settings. Only used by the
// postgres storage backend.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"   env:"METRICS_ENABLED"   env-default:"true"`
	Namespace string `yaml:"namespace" env:"METRICS_NAMESPACE" env-default:"refdict"`
	Addr      string `yaml:"addr"      env:"METRICS_ADDR"      env-default:":9102"`
}
