package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfig_NormalizesBadValues(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_SENSITIVE_CAPACITY", "-3")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()

    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 1, cfg.SensitiveCap)
    assert.Equal(t, 2*time.Second, cfg.RefillInterval)
    assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestRateLimitConfig_Sensitive(t *testing.T) {
    cfg := RateLimitConfig{Capacity: 60, SensitiveCap: 5, Prefix: "rl"}
    s := cfg.Sensitive()
    assert.Equal(t, 5, s.Capacity)
    assert.Equal(t, "rl:sensitive", s.Prefix)
    assert.Equal(t, 60, cfg.Capacity)
}

func TestLoadQueueConfig_UnknownModeFallsBackToDirect(t *testing.T) {
    t.Setenv("NOTIFY_MODE", "carrier-pigeon")
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://u:p@broker:5672/")

    cfg := LoadQueueConfig()
    assert.Equal(t, NotifyDirect, cfg.Mode)
    assert.Equal(t, "amqp://u:p@broker:5672/", cfg.URL)
}

func TestLoadCacheConfig_Methods(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head ,")
    cfg := LoadCacheConfig()
    assert.True(t, cfg.Methods["GET"])
    assert.True(t, cfg.Methods["HEAD"])
    assert.Len(t, cfg.Methods, 2)
}

func TestLoadPaymentConfig_Defaults(t *testing.T) {
    t.Setenv("PAYMENT_CURRENCY", "")
    t.Setenv("PAYMENT_VERIFY_TRANSACTIONS", "")
    cfg := LoadPaymentConfig()
    assert.Equal(t, "gbp", cfg.Currency)
    assert.False(t, cfg.VerifyTransactions)
}

func TestSplitList(t *testing.T) {
    assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
    assert.Nil(t, splitList(""))
}
