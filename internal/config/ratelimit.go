package config

import (
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig parameterizes one Redis token bucket. Capacity is the
// burst size; RefillTokens are added back every RefillInterval.
type RateLimitConfig struct {
	Name           string
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func setRateLimitDefaults(v *viper.Viper, name string, capacity int, every time.Duration) {
	k := "rate_limit." + name + "."
	v.SetDefault(k+"enabled", true)
	v.SetDefault(k+"capacity", capacity)
	v.SetDefault(k+"refill_tokens", 1)
	v.SetDefault(k+"refill_interval", every)
	v.SetDefault(k+"ttl", time.Hour)
	v.SetDefault(k+"key_strategy", "ip_route")
	v.SetDefault(k+"prefix", "rl")
	v.SetDefault(k+"debug", false)
}

// LoadRateLimitConfig reads the limiter called name and clamps the values
// into a usable range.
func LoadRateLimitConfig(v *viper.Viper, name string) RateLimitConfig {
	k := "rate_limit." + name + "."
	def := RateLimitConfig{
		Name:           name,
		Enabled:        v.GetBool(k + "enabled"),
		Capacity:       v.GetInt(k + "capacity"),
		RefillTokens:   v.GetInt(k + "refill_tokens"),
		RefillInterval: v.GetDuration(k + "refill_interval"),
		TTL:            v.GetDuration(k + "ttl"),
		KeyStrategy:    v.GetString(k + "key_strategy"),
		Prefix:         v.GetString(k + "prefix"),
		Debug:          v.GetBool(k + "debug"),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
