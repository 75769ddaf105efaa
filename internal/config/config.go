package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all cartd configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	HTTP    HTTPConfig
	Catalog ServiceConfig
	Orders  ServiceConfig
	Storage StorageConfig
	Kafka   KafkaConfig
	Cart    CartConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// ServiceConfig describes a REST collaborator (catalog or order service).
type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// StorageConfig selects the durable key-value backend for persisted carts.
type StorageConfig struct {
	Driver string // sqlite, redis, mongo, memory

	SQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	// MongoTTL expires carts untouched for this long. Zero keeps them forever.
	MongoTTL time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type CartConfig struct {
	RehydrateConcurrency int
	MaxProfiles          int
	LookupTimeout        time.Duration
}

var validDrivers = map[string]bool{
	"sqlite": true,
	"redis":  true,
	"mongo":  true,
	"memory": true,
}

// Load reads configuration. Priority (highest to lowest):
// 1. Environment variables with CART_ prefix (e.g., CART_STORAGE_DRIVER)
// 2. config.toml in the working directory or /etc/cartd
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/cartd")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			RequestTimeout:  v.GetDuration("http.request_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
		},
		Catalog: ServiceConfig{
			BaseURL: v.GetString("catalog.base_url"),
			Timeout: v.GetDuration("catalog.timeout"),
		},
		Orders: ServiceConfig{
			BaseURL: v.GetString("orders.base_url"),
			Timeout: v.GetDuration("orders.timeout"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(v.GetString("storage.driver")),
			SQLitePath:      v.GetString("storage.sqlite_path"),
			RedisAddr:       v.GetString("storage.redis_addr"),
			RedisPassword:   v.GetString("storage.redis_password"),
			RedisDB:         v.GetInt("storage.redis_db"),
			MongoURI:        v.GetString("storage.mongo_uri"),
			MongoDatabase:   v.GetString("storage.mongo_database"),
			MongoCollection: v.GetString("storage.mongo_collection"),
			MongoTTL:        v.GetDuration("storage.mongo_ttl"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: splitList(v.GetStringSlice("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
		},
		Cart: CartConfig{
			RehydrateConcurrency: v.GetInt("cart.rehydrate_concurrency"),
			MaxProfiles:          v.GetInt("cart.max_profiles"),
			LookupTimeout:        v.GetDuration("cart.lookup_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList accepts both TOML arrays and comma separated env values.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cartd"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = "http://localhost:8081/api"
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 5 * time.Second
	}
	if cfg.Orders.BaseURL == "" {
		cfg.Orders.BaseURL = "http://localhost:8081/api"
	}
	if cfg.Orders.Timeout == 0 {
		cfg.Orders.Timeout = 10 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "cart.db"
	}
	if cfg.Storage.RedisAddr == "" {
		cfg.Storage.RedisAddr = "localhost:6379"
	}
	if cfg.Storage.MongoURI == "" {
		cfg.Storage.MongoURI = "mongodb://localhost:27017"
	}
	if cfg.Storage.MongoDatabase == "" {
		cfg.Storage.MongoDatabase = "cartdb"
	}
	if cfg.Storage.MongoCollection == "" {
		cfg.Storage.MongoCollection = "carts"
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "cart-checkout"
	}
	if cfg.Cart.RehydrateConcurrency == 0 {
		cfg.Cart.RehydrateConcurrency = 8
	}
	if cfg.Cart.MaxProfiles == 0 {
		cfg.Cart.MaxProfiles = 10000
	}
	if cfg.Cart.LookupTimeout == 0 {
		cfg.Cart.LookupTimeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if !validDrivers[c.Storage.Driver] {
		return fmt.Errorf("invalid storage driver %q", c.Storage.Driver)
	}
	if c.Storage.MongoTTL < 0 {
		return errors.New("storage.mongo_ttl must not be negative")
	}
	if c.Cart.MaxProfiles < 0 {
		return errors.New("cart.max_profiles must not be negative")
	}
	if c.Cart.RehydrateConcurrency < 0 {
		return errors.New("cart.rehydrate_concurrency must not be negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// IsProduction reports whether the app runs with env=production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
