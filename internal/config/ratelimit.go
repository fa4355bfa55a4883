package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Two buckets are used:
// the general one for every /api route and a tighter one for credential and
// payment endpoints (login, password reset, make-payment, book-show).
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    SensitiveCap   int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and normalises values so
// the Lua script never sees a zero capacity or interval.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        SensitiveCap:   envInt("RATE_LIMIT_SENSITIVE_CAPACITY", 10),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    return cfg.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.SensitiveCap < 1 {
        c.SensitiveCap = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}

// Sensitive returns a copy of the config using the tighter capacity and a
// separate key prefix so the two buckets never share state.
func (c RateLimitConfig) Sensitive() RateLimitConfig {
    s := c
    s.Capacity = c.SensitiveCap
    s.Prefix = c.Prefix + ":sensitive"
    return s
}
