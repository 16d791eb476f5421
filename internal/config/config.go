package config

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

// DSN строка подключения к postgres; для мигратора дополнительно передаются параметры golang-migrate.
func (d DatabaseConfig) DSN(params ...string) string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Name, d.SSLMode)
	for _, p := range params {
		dsn += "&" + p
	}
	return dsn
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"` // минуты
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// CheckoutConfig параметры транзакции оформления заказа
type CheckoutConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env-default:"3"`
	BaseBackoff time.Duration `yaml:"base_backoff" env-default:"50ms"`
	LockTimeout time.Duration `yaml:"lock_timeout" env-default:"2s"`
	Isolation   string        `yaml:"isolation" env-default:"read_committed"`
}

// IsolationLevel уровень изоляции для database/sql; неизвестное значение - read committed.
// Взаимное исключение дают блокировки строк FOR UPDATE, уровень изоляции его не обеспечивает.
func (c CheckoutConfig) IsolationLevel() sql.IsolationLevel {
	switch c.Isolation {
	case IsolationSerializable:
		return sql.LevelSerializable
	case IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	default:
		return sql.LevelReadCommitted
	}
}

const (
	IsolationSerializable   = "serializable"
	IsolationRepeatableRead = "repeatable_read"
	IsolationReadCommitted  = "read_committed"
)

type CatalogConfig struct {
	LowStockThreshold int `yaml:"low_stock_threshold" env-default:"10"`
}

// KafkaConfig публикация событий OrderPlaced
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env-default:"orders.placed"`
}

// RedisConfig кэш представлений заказов
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Address  string        `yaml:"address" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	OrderTTL time.Duration `yaml:"order_ttl" env-default:"10m"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
