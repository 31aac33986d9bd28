package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidConfig    = errors.New("invalid storage configuration")
	ErrInvalidStoreType = errors.New("invalid storage driver")
)

// Driver names the backend of a Store.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

const defaultTTL = 24 * time.Hour

// Store keeps opaque records by key. Get returns ErrNotFound for missing or expired records.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RedisConfig holds the connection settings of the redis driver.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Config struct {
	Driver Driver        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

// New creates the store selected by cfg.Driver. An empty driver selects memory.
func New(cfg Config) (Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(ttl), nil
	case DriverRedis:
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("%w: redis address is required", ErrInvalidConfig)
		}
		if cfg.Redis.TTL > 0 {
			ttl = cfg.Redis.TTL
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisStore(client, ttl), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoreType, cfg.Driver)
	}
}
