package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "cartd", cfg.App.Name)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "cart.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 8, cfg.Cart.RehydrateConcurrency)
	assert.Equal(t, 10000, cfg.Cart.MaxProfiles)
	assert.Zero(t, cfg.Storage.MongoTTL, "carts do not expire unless configured")
	assert.Equal(t, 5*time.Second, cfg.Cart.LookupTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("CART_STORAGE_DRIVER", "Redis")
	t.Setenv("CART_STORAGE_REDIS_ADDR", "redis:6380")
	t.Setenv("CART_APP_ENV", "production")
	t.Setenv("CART_CART_LOOKUP_TIMEOUT", "250ms")

	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "redis:6380", cfg.Storage.RedisAddr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Cart.LookupTimeout)
	assert.True(t, cfg.IsProduction())
}

func TestFromViper_TOML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("toml")
	err := v.ReadConfig(strings.NewReader(`
[catalog]
base_url = "http://catalog/api"
timeout = "2s"

[kafka]
enabled = true
brokers = ["k1:9092", "k2:9092"]
`))
	require.NoError(t, err)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "http://catalog/api", cfg.Catalog.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Catalog.Timeout)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestFromViper_InvalidDriver(t *testing.T) {
	t.Setenv("CART_STORAGE_DRIVER", "postgres")

	_, err := fromViper(viper.New())
	assert.ErrorContains(t, err, "invalid storage driver")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, splitList([]string{"a:1, b:2", " "}))
}
