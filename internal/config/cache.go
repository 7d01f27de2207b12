package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is off.
// Methods lists the HTTP methods to cache. A successful request with any
// other method drops every entry under Prefix, so leaderboards never
// outlive the write that changed them.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

func setCacheDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.methods", "GET")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("cache.key_strategy", "route_query")
	v.SetDefault("cache.prefix", "cache")
	v.SetDefault("cache.max_body_bytes", 1048576)
}

// LoadCacheConfig builds a CacheConfig. All methods are upper-cased.
func LoadCacheConfig(v *viper.Viper) CacheConfig {
	ttl := v.GetDuration("cache.ttl")
	if ttl <= 0 {
		ttl = time.Second
	}
	return CacheConfig{
		Enabled:      v.GetBool("cache.enabled"),
		Methods:      parseMethods(v.GetString("cache.methods")),
		TTL:          ttl,
		KeyStrategy:  v.GetString("cache.key_strategy"),
		Prefix:       v.GetString("cache.prefix"),
		MaxBodyBytes: v.GetInt("cache.max_body_bytes"),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
