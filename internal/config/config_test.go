package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(defaults())
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)

	assert.Equal(t, 10, cfg.WorkoutLimit.Capacity)
	assert.Equal(t, 6*time.Minute, cfg.WorkoutLimit.RefillInterval)
	assert.Equal(t, 20, cfg.ResultLimit.Capacity)
	assert.Equal(t, "ip_route", cfg.ResultLimit.KeyStrategy)

	assert.True(t, cfg.Cache.Methods["GET"])
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	v := defaults()
	v.Set("rate_limit.workouts.capacity", 0)
	v.Set("rate_limit.workouts.refill_tokens", -3)
	v.Set("rate_limit.workouts.refill_interval", "1m")
	v.Set("rate_limit.workouts.ttl", "1s")

	rl := LoadRateLimitConfig(v, "workouts")
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, 5*time.Minute, rl.TTL)
}

func TestValidate(t *testing.T) {
	v := defaults()
	v.Set("db.driver", "postgres")
	_, err := FromViper(v)
	assert.Error(t, err)

	v = defaults()
	v.Set("token.bcrypt_cost", 1)
	_, err = FromViper(v)
	assert.Error(t, err)

	v = defaults()
	v.Set("db.driver", "sqlite")
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "wodboard.db", cfg.DB.SQLitePath)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "app:\n  port: \"9000\"\ndb:\n  driver: sqlite\nhttp:\n  allowed_origins: https://a.example, https://b.example\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("RATE_LIMIT_RESULTS_CAPACITY", "50")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 50, cfg.ResultLimit.Capacity)
}

func TestRedisConfig_Address(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: "6380", Addr: "x:1"}.Address())
	assert.Equal(t, "x:1", RedisConfig{Addr: "x:1"}.Address())
	assert.Equal(t, "localhost:6379", RedisConfig{}.Address())
	assert.Nil(t, NewRedisClient(RedisConfig{Enabled: false}))
}
