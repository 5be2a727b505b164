package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// 保存先の種類です。
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	Geocoding GeocodingConfig `yaml:"geocoding" envPrefix:"GEOCODING_"`
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

// ServerConfig は HTTP API と gRPC ヘルスチェックの待ち受け設定です。
type ServerConfig struct {
	HTTPAddr           string        `yaml:"http_addr" env:"HTTP_ADDR"`
	GRPCAddr           string        `yaml:"grpc_addr" env:"GRPC_ADDR"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// StorageConfig は永続化先の設定です。
type StorageConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"`
	SeedDemo bool   `yaml:"seed_demo" env:"SEED_DEMO"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。storage.driver が postgres の場合のみ必須です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"HOST"`
	Port               int           `yaml:"port" env:"PORT"`
	User               string        `yaml:"user" env:"USER"`
	Password           string        `yaml:"password" env:"PASSWORD"`
	Name               string        `yaml:"name" env:"NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
}

// RedisConfig は逆ジオコーディング結果のキャッシュ先です。Addr が空の場合はキャッシュしません。
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	TTL      time.Duration `yaml:"-"`
	TTLRaw   string        `yaml:"ttl" env:"TTL"`
}

// GeocodingConfig は逆ジオコーディング API の設定です。
type GeocodingConfig struct {
	Enabled    bool          `yaml:"enabled" env:"ENABLED"`
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	Language   string        `yaml:"language" env:"LANGUAGE"`
	RatePerSec float64       `yaml:"rate_per_sec" env:"RATE_PER_SEC"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout" env:"TIMEOUT"`
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig はトレース送信の設定です。Endpoint が空の場合はトレースを送信しません。
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	Endpoint    string `yaml:"endpoint" env:"EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `yaml:"insecure" env:"EXPORTER_OTLP_INSECURE"`
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("config: server.http_addr must be set")
	}
	shutdown, err := parseDurationAllowEmpty(c.Server.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	if shutdown == 0 {
		shutdown = 10 * time.Second
	}
	c.Server.ShutdownTimeout = shutdown

	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = StorageMemory
	case StorageMemory:
	case StoragePostgres:
		if err := c.Database.validateAndNormalize(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: storage.driver must be %q or %q", StorageMemory, StoragePostgres)
	}

	ttl, err := parseDurationAllowEmpty(c.Redis.TTLRaw)
	if err != nil {
		return fmt.Errorf("config: redis.ttl: %w", err)
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	c.Redis.TTL = ttl

	if err := c.Geocoding.validateAndNormalize(); err != nil {
		return err
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "employee-location-tracker"
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (g *GeocodingConfig) validateAndNormalize() error {
	if g.BaseURL == "" {
		g.BaseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"
	}
	if _, err := url.Parse(g.BaseURL); err != nil {
		return fmt.Errorf("config: geocoding.base_url: %w", err)
	}
	if g.Language == "" {
		g.Language = "en"
	}
	if g.RatePerSec < 0 {
		return fmt.Errorf("config: geocoding.rate_per_sec must not be negative")
	}

	timeout, err := parseDurationAllowEmpty(g.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: geocoding.timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	g.Timeout = timeout
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報はエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
