package redis

import (
	"errors"
	"time"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/service/cache/provider"
	"github.com/x-xyz/cloutledger/service/redis"
)

type impl struct {
	redis redis.Service
}

func NewRedis(redis redis.Service) provider.Provider {
	return &impl{redis}
}

func (im *impl) ttl(c ctx.Ctx, key string) (time.Duration, error) {
	ttl, err := im.redis.TTL(c, key)
	if errors.Is(err, redis.ErrNoTTL) {
		return 0, nil
	} else if errors.Is(err, redis.ErrNotFound) {
		return 0, provider.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).WithField("key", key).Error("redis.TTL failed")
		return 0, err
	}
	return time.Duration(ttl) * time.Second, nil
}

func (im *impl) Get(c ctx.Ctx, key string) ([]byte, time.Duration, error) {
	val, err := im.redis.Get(c, key)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, 0, provider.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).WithField("key", key).Error("redis.Get failed")
		return nil, 0, err
	}

	ttl, err := im.ttl(c, key)
	if err != nil {
		return nil, 0, err
	}
	return val, ttl, nil
}

func (im *impl) Set(c ctx.Ctx, key string, value []byte, ttl time.Duration) error {
	if err := im.redis.Set(c, key, value, ttl); err != nil {
		c.WithField("err", err).WithField("key", key).Error("redis.Set failed")
		return err
	}
	return nil
}

// Incr only touches existing keys, matching the local provider.
func (im *impl) Incr(c ctx.Ctx, key string, val int) (int64, time.Duration, error) {
	if exists, err := im.redis.Exists(c, key); err != nil {
		c.WithField("err", err).WithField("key", key).Error("redis.Exists failed")
		return 0, 0, err
	} else if !exists {
		return 0, 0, provider.ErrNotFound
	}

	res, err := im.redis.Incrby(c, key, val)
	if err != nil {
		c.WithField("err", err).WithField("key", key).Error("redis.Incrby failed")
		return 0, 0, err
	}

	ttl, err := im.ttl(c, key)
	if err != nil {
		return 0, 0, err
	}
	return res, ttl, nil
}

func (im *impl) Del(c ctx.Ctx, key string) error {
	if _, err := im.redis.Del(c, key); err != nil {
		c.WithField("err", err).WithField("key", key).Error("redis.Del failed")
		return err
	}
	return nil
}
