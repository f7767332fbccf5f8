// Package provider holds the storage backends behind service/cache: an
// in-process LRU, redis, and a compound of both.
package provider

import (
	"errors"
	"time"

	"github.com/x-xyz/cloutledger/base/ctx"
)

// ErrNotFound means the key is absent or has expired.
var ErrNotFound = errors.New("cache miss")

// Provider stores opaque bytes under string keys. A zero ttl returned by Get
// or Incr means the key never expires.
type Provider interface {
	Get(c ctx.Ctx, key string) ([]byte, time.Duration, error)
	Set(c ctx.Ctx, key string, value []byte, ttl time.Duration) error
	// Incr adds val to an existing counter and fails with ErrNotFound
	// otherwise.
	Incr(c ctx.Ctx, key string, val int) (int64, time.Duration, error)
	Del(c ctx.Ctx, key string) error
}
