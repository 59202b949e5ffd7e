package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	// Network is "tcp" or "unix".
	Network      string
	Host         string
	Port         int
	Socket       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level string
}

type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	MinIdle       time.Duration
}

type StorageConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	BucketSnapshots string
	UseSSL          bool
	Region          string
}

type SecurityConfig struct {
	CSRFSecret                 string
	BearerSecret               string
	BearerTTL                  time.Duration
	SessionCacheTTL            time.Duration
	UnauthenticatedPermissions []string
	LoginSessionFlags          string
}

type JobsConfig struct {
	FlushUsage  string
	ExportUsers string
}

type AppConfig struct {
	Environment      string
	Log              LogConfig
	HTTP             HTTPConfig
	Store            StoreConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Worker           WorkerConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	return load(v)
}

// LoadFile reads an explicit config file instead of searching the default paths.
func LoadFile(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*AppConfig, error) {
	v.SetEnvPrefix("NVRGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for store.driver=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be postgres or memory, got %q", c.Store.Driver)
	}
	switch c.HTTP.Network {
	case "tcp":
	case "unix":
		if c.HTTP.Socket == "" {
			return fmt.Errorf("http.socket is required for http.network=unix")
		}
	default:
		return fmt.Errorf("http.network must be tcp or unix, got %q", c.HTTP.Network)
	}
	if c.Security.CSRFSecret == "" {
		return fmt.Errorf("security.csrfsecret is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "")

	v.SetDefault("http.network", "tcp")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.socket", "")
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("store.driver", "postgres")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("worker.stream", "accounts:events")
	v.SetDefault("worker.group", "account-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "10s")
	v.SetDefault("worker.minidle", "1m")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketsnapshots", "nvrgate-snapshots")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.csrfsecret", "")
	v.SetDefault("security.bearersecret", "")
	v.SetDefault("security.bearerttl", "0s")
	v.SetDefault("security.sessioncachettl", "5m")
	v.SetDefault("security.unauthenticatedpermissions", []string{})
	v.SetDefault("security.loginsessionflags", "http-only,secure,same-site,same-site-strict")

	v.SetDefault("jobs.flushusage", "0 */1 * * * *")
	v.SetDefault("jobs.exportusers", "0 0 3 * * *") // nightly

	v.SetDefault("allowcorsorigins", []string{})
}
