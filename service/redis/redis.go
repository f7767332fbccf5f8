package redis

import (
	"errors"
	"time"

	"github.com/x-xyz/cloutledger/base/ctx"
)

// Forever is the expire value for keys without ttl
const Forever = time.Duration(0)

var (
	// ErrNotFound is returned when the key does not exist
	ErrNotFound = errors.New("redis: key not found")
	// ErrNoTTL is returned by TTL when the key exists without expire
	ErrNoTTL = errors.New("redis: key has no ttl")
	// ErrNoPool is returned when the service is built without a pool
	ErrNoPool = errors.New("redis: no pool")
)

// Service is the subset of redis commands the cache and health check need
type Service interface {
	Get(c ctx.Ctx, key string) ([]byte, error)
	Set(c ctx.Ctx, key string, val []byte, expire time.Duration) error
	Del(c ctx.Ctx, keys ...string) (int, error)
	Exists(c ctx.Ctx, key string) (bool, error)
	Incrby(c ctx.Ctx, key string, val int) (int64, error)
	TTL(c ctx.Ctx, key string) (int, error)
	Ping(c ctx.Ctx) error
}
