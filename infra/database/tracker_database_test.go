package database

import (
	"testing"
	"time"
)

func TestDefaultPostgresConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultPostgresConfig()
		if cfg.MaxConns != 20 {
			t.Errorf("MaxConns = %d, want 20", cfg.MaxConns)
		}
		if cfg.MinConns != 4 {
			t.Errorf("MinConns = %d, want 4", cfg.MinConns)
		}
		if cfg.ConnectTimeout != 5*time.Second {
			t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("DB_MAX_CONNS", "64")
		if got := DefaultPostgresConfig().MaxConns; got != 64 {
			t.Errorf("MaxConns = %d, want 64", got)
		}
	})

	t.Run("bad env value ignored", func(t *testing.T) {
		t.Setenv("DB_MAX_CONNS", "lots")
		if got := DefaultPostgresConfig().MaxConns; got != 20 {
			t.Errorf("MaxConns = %d, want default 20", got)
		}
	})
}

func TestDefaultRedisConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultRedisConfig()
		if cfg.PoolSize != 30 {
			t.Errorf("PoolSize = %d, want 30", cfg.PoolSize)
		}
		if cfg.ReadTimeout != 2*time.Second {
			t.Errorf("ReadTimeout = %v, want 2s", cfg.ReadTimeout)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("REDIS_POOL_SIZE", "100")
		if got := DefaultRedisConfig().PoolSize; got != 100 {
			t.Errorf("PoolSize = %d, want 100", got)
		}
	})
}
